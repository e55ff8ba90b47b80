package aggregator

import (
	"errors"
	"testing"

	"trading-core/internal/model"
)

func bar1m(openSec int64, o, h, l, c, v float64) model.Bar {
	return model.Bar{
		Instrument: "BTCUSDT", Timeframe: "1m",
		OpenTime: openSec * 1000,
		Open:     o, High: h, Low: l, Close: c, Volume: v,
		Closed: true,
	}
}

func TestFiveMinuteRollup(t *testing.T) {
	agg := New([]string{"5m"})

	// Bars at 300..540s fill the 5m slot starting at 300s; the bar at
	// 600s crosses the boundary and emits it.
	inputs := []model.Bar{
		bar1m(300, 10, 12, 9, 11, 1),
		bar1m(360, 11, 15, 10, 14, 2),
		bar1m(420, 14, 14, 8, 9, 3),
		bar1m(480, 9, 10, 9, 10, 4),
		bar1m(540, 10, 11, 9.5, 10.5, 5),
	}
	for _, b := range inputs {
		out, err := agg.Add(b)
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if len(out) != 0 {
			t.Fatalf("premature emission at %d", b.OpenTime)
		}
	}

	out, err := agg.Add(bar1m(600, 10.5, 11, 10, 10.8, 1))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 emitted bar, got %d", len(out))
	}

	got := out[0]
	if got.OpenTime != 300_000 {
		t.Fatalf("open_time=%d, expected 300000", got.OpenTime)
	}
	if got.OpenTime%model.PeriodMs["5m"] != 0 {
		t.Fatalf("open_time %d not aligned to 5m period", got.OpenTime)
	}
	if got.Open != 10 || got.High != 15 || got.Low != 8 || got.Close != 10.5 {
		t.Fatalf("OHLC mismatch: %+v", got)
	}
	if got.Volume != 15 {
		t.Fatalf("volume=%v, expected 15", got.Volume)
	}
	if !got.Closed {
		t.Fatal("emitted bar not marked closed")
	}
}

func TestAllTimeframesAlign(t *testing.T) {
	agg := New(nil)

	// 65 minutes of 1m bars (0..3840s), so every hour-aligned slot is
	// closed; every emitted bar must sit on its period boundary and
	// volumes must sum to the source minutes.
	emitted := map[string][]model.Bar{}
	for sec := int64(0); sec < 3900; sec += 60 {
		out, err := agg.Add(bar1m(sec, 1, 2, 0.5, 1.5, 1))
		if err != nil {
			t.Fatalf("Add @%ds: %v", sec, err)
		}
		for _, b := range out {
			emitted[b.Timeframe] = append(emitted[b.Timeframe], b)
		}
	}

	wantCount := map[string]int{"3m": 21, "5m": 12, "15m": 4, "30m": 2}
	for tf, bars := range emitted {
		if len(bars) != wantCount[tf] {
			t.Fatalf("%s: %d bars emitted, expected %d", tf, len(bars), wantCount[tf])
		}
		period := model.PeriodMs[tf]
		for _, b := range bars {
			if b.OpenTime%period != 0 {
				t.Fatalf("%s bar open_time %d not aligned", tf, b.OpenTime)
			}
			if b.Volume != float64(period/model.MsPerMinute) {
				t.Fatalf("%s bar volume=%v, expected %v", tf, b.Volume, period/model.MsPerMinute)
			}
		}
	}
}

func TestRoundTripAlreadyAligned(t *testing.T) {
	// Aggregate an hour of 1m bars into 5m bars, then feed those 5m bars
	// (opens already aligned to 5m) back into a second instance: it must
	// reproduce the same 5m bars.
	first := New([]string{"5m"})
	var fiveMin []model.Bar
	for sec := int64(0); sec < 3600; sec += 60 {
		out, err := first.Add(bar1m(sec, 10, 11, 9, 10.5, 2))
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		fiveMin = append(fiveMin, out...)
	}

	second := New([]string{"5m"})
	var again []model.Bar
	inputs := append([]model.Bar{}, fiveMin...)
	// One more aligned bar closes the last re-aggregated slot.
	flush := fiveMin[len(fiveMin)-1]
	flush.OpenTime += model.PeriodMs["5m"]
	inputs = append(inputs, flush)
	for _, b := range inputs {
		b.Timeframe = "1m"
		out, err := second.Add(b)
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		again = append(again, out...)
	}

	if len(fiveMin) != len(again) {
		t.Fatalf("round trip emitted %d vs %d bars", len(fiveMin), len(again))
	}
	for i := range fiveMin {
		if fiveMin[i] != again[i] {
			t.Fatalf("bar %d differs: %+v vs %+v", i, fiveMin[i], again[i])
		}
	}
}

func TestOutOfOrderRejected(t *testing.T) {
	agg := New([]string{"5m"})
	if _, err := agg.Add(bar1m(300, 1, 2, 0.5, 1.5, 1)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := agg.Add(bar1m(360, 1, 2, 0.5, 1.5, 1)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	_, err := agg.Add(bar1m(300, 1, 2, 0.5, 1.5, 1))
	if !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}
}

func TestNonOneMinuteInputRejected(t *testing.T) {
	agg := New(nil)
	b := bar1m(300, 1, 2, 0.5, 1.5, 1)
	b.Timeframe = "5m"
	if _, err := agg.Add(b); err == nil {
		t.Fatal("5m input accepted")
	}
}
