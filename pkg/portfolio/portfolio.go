// Package portfolio holds the signal quality filter configuration:
// the per-(instrument, timeframe) whitelist with streak and ATR
// percentile bounds, plus the two canonical presets.
package portfolio

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"trading-core/internal/model"
)

// PresetA is the low-drawdown portfolio (4 strategies).
var PresetA = []model.FilterConfig{
	{Instrument: "XRPUSDT", Timeframe: "30m", Enabled: true, StreakLo: 0, StreakHi: 3, ATRPctThreshold: 0.60, PositionQty: 50000},
	{Instrument: "SOLUSDT", Timeframe: "5m", Enabled: true, StreakLo: 0, StreakHi: 3, ATRPctThreshold: 0.80, PositionQty: 500},
	{Instrument: "BTCUSDT", Timeframe: "15m", Enabled: true, StreakLo: 0, StreakHi: 7, ATRPctThreshold: 0.90, PositionQty: 1},
	{Instrument: "ETHUSDT", Timeframe: "30m", Enabled: true, StreakLo: 0, StreakHi: 4, ATRPctThreshold: 0.90, PositionQty: 10},
}

// PresetB is the default portfolio (5 strategies).
var PresetB = []model.FilterConfig{
	{Instrument: "XRPUSDT", Timeframe: "30m", Enabled: true, StreakLo: 0, StreakHi: 3, ATRPctThreshold: 0.60, PositionQty: 50000},
	{Instrument: "XRPUSDT", Timeframe: "15m", Enabled: true, StreakLo: 0, StreakHi: 4, ATRPctThreshold: 0.80, PositionQty: 50000},
	{Instrument: "SOLUSDT", Timeframe: "5m", Enabled: true, StreakLo: 0, StreakHi: 3, ATRPctThreshold: 0.80, PositionQty: 500},
	{Instrument: "BTCUSDT", Timeframe: "15m", Enabled: true, StreakLo: 0, StreakHi: 7, ATRPctThreshold: 0.90, PositionQty: 1},
	{Instrument: "BTCUSDT", Timeframe: "5m", Enabled: true, StreakLo: 0, StreakHi: 3, ATRPctThreshold: 0.90, PositionQty: 1},
}

// FilterSet is the resolved whitelist the signal generator gates on.
// A nil *FilterSet means no filter configuration is loaded and every
// candidate passes (legacy/testing mode). A non-nil set makes
// membership mandatory: unknown keys reject.
type FilterSet struct {
	entries map[string]model.FilterConfig
}

// NewFilterSet indexes the given entries by key.
func NewFilterSet(configs []model.FilterConfig) *FilterSet {
	fs := &FilterSet{entries: make(map[string]model.FilterConfig, len(configs))}
	for _, fc := range configs {
		fs.entries[model.Key(fc.Instrument, fc.Timeframe)] = fc
	}
	return fs
}

// Lookup returns the filter entry for a key.
func (fs *FilterSet) Lookup(instrument, timeframe string) (model.FilterConfig, bool) {
	fc, ok := fs.entries[model.Key(instrument, timeframe)]
	return fc, ok
}

// Entries returns every configured filter entry.
func (fs *FilterSet) Entries() []model.FilterConfig {
	out := make([]model.FilterConfig, 0, len(fs.entries))
	for _, fc := range fs.entries {
		out = append(out, fc)
	}
	return out
}

// Instruments returns the distinct instruments the portfolio covers.
func (fs *FilterSet) Instruments() []string {
	seen := make(map[string]bool)
	var out []string
	for _, fc := range fs.entries {
		if !seen[fc.Instrument] {
			seen[fc.Instrument] = true
			out = append(out, fc.Instrument)
		}
	}
	return out
}

// File is the on-disk YAML layout.
type File struct {
	Portfolio  string               `yaml:"portfolio"`
	Strategies []model.FilterConfig `yaml:"strategies"`
}

// Load reads the trading portfolio YAML. A missing file falls back to
// preset B, matching the historical default. portfolio must be one of
// "A", "B" or "custom"; custom requires at least one strategy entry.
func Load(path string) (*FilterSet, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewFilterSet(PresetB), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read portfolio config: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse portfolio config: %w", err)
	}
	return Resolve(file)
}

// Resolve turns a parsed File into a FilterSet.
func Resolve(file File) (*FilterSet, error) {
	switch file.Portfolio {
	case "", "B":
		return NewFilterSet(PresetB), nil
	case "A":
		return NewFilterSet(PresetA), nil
	case "custom":
		if len(file.Strategies) == 0 {
			return nil, fmt.Errorf("portfolio=custom requires at least one strategies entry")
		}
		return NewFilterSet(file.Strategies), nil
	default:
		return nil, fmt.Errorf("portfolio must be one of A, B, custom; got %q", file.Portfolio)
	}
}
