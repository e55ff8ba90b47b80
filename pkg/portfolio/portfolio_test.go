package portfolio

import (
	"os"
	"path/filepath"
	"testing"

	"trading-core/internal/model"
)

func TestResolvePresets(t *testing.T) {
	fs, err := Resolve(File{Portfolio: "A"})
	if err != nil {
		t.Fatalf("Resolve A: %v", err)
	}
	if len(fs.Entries()) != len(PresetA) {
		t.Fatalf("preset A resolved %d entries, expected %d", len(fs.Entries()), len(PresetA))
	}
	fc, ok := fs.Lookup("ETHUSDT", "30m")
	if !ok || fc.StreakHi != 4 {
		t.Fatalf("ETHUSDT 30m lookup: ok=%v fc=%+v", ok, fc)
	}

	// Empty portfolio selector falls back to B.
	fs, err = Resolve(File{})
	if err != nil {
		t.Fatalf("Resolve default: %v", err)
	}
	if _, ok := fs.Lookup("XRPUSDT", "15m"); !ok {
		t.Fatal("default portfolio missing XRPUSDT 15m (preset B entry)")
	}
}

func TestResolveCustom(t *testing.T) {
	if _, err := Resolve(File{Portfolio: "custom"}); err == nil {
		t.Fatal("empty custom portfolio accepted")
	}

	fs, err := Resolve(File{
		Portfolio: "custom",
		Strategies: []model.FilterConfig{
			{Instrument: "DOGEUSDT", Timeframe: "3m", Enabled: true, StreakLo: -2, StreakHi: 2, ATRPctThreshold: 0.5},
		},
	})
	if err != nil {
		t.Fatalf("Resolve custom: %v", err)
	}
	fc, ok := fs.Lookup("DOGEUSDT", "3m")
	if !ok || fc.StreakLo != -2 {
		t.Fatalf("custom lookup: ok=%v fc=%+v", ok, fc)
	}
}

func TestResolveUnknownPortfolio(t *testing.T) {
	if _, err := Resolve(File{Portfolio: "C"}); err == nil {
		t.Fatal("unknown portfolio accepted")
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trading.yaml")
	yaml := `portfolio: custom
strategies:
  - instrument: BTCUSDT
    timeframe: 5m
    enabled: true
    streak_lo: 0
    streak_hi: 3
    atr_pct_threshold: 0.9
    position_qty: 1
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	fs, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	fc, ok := fs.Lookup("BTCUSDT", "5m")
	if !ok {
		t.Fatal("loaded set missing BTCUSDT 5m")
	}
	if !fc.Enabled || fc.ATRPctThreshold != 0.9 {
		t.Fatalf("loaded entry=%+v", fc)
	}
}

func TestLoadMissingFileFallsBackToB(t *testing.T) {
	fs, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(fs.Entries()) != len(PresetB) {
		t.Fatalf("fallback resolved %d entries, expected preset B's %d", len(fs.Entries()), len(PresetB))
	}
}

func TestInstruments(t *testing.T) {
	fs := NewFilterSet(PresetB)
	instruments := fs.Instruments()
	want := map[string]bool{"XRPUSDT": true, "SOLUSDT": true, "BTCUSDT": true}
	if len(instruments) != len(want) {
		t.Fatalf("instruments=%v", instruments)
	}
	for _, in := range instruments {
		if !want[in] {
			t.Fatalf("unexpected instrument %s", in)
		}
	}
}
