package atrtracker

import (
	"math"
	"testing"
)

func TestPercentileUndefinedBelowMinSamples(t *testing.T) {
	tr := New(200, 10_000)
	for i := 0; i < 199; i++ {
		tr.Update("BTCUSDT", "5m", float64(i+1))
	}
	if _, ok := tr.Percentile("BTCUSDT", "5m", 100); ok {
		t.Fatal("percentile defined with 199 samples")
	}

	tr.Update("BTCUSDT", "5m", 200)
	pct, ok := tr.Percentile("BTCUSDT", "5m", 100)
	if !ok {
		t.Fatal("percentile undefined with exactly 200 samples")
	}
	if pct != 0.5 {
		t.Fatalf("pct=%v, expected 0.5", pct)
	}
}

func TestPercentileEmpiricalCDF(t *testing.T) {
	tr := New(4, 10_000)
	for _, v := range []float64{1, 2, 3, 4} {
		tr.Update("ETHUSDT", "15m", v)
	}

	tests := []struct {
		query float64
		want  float64
	}{
		{0.5, 0},
		{1, 0.25},
		{2.5, 0.5},
		{4, 1},
		{10, 1},
	}
	for _, tt := range tests {
		got, ok := tr.Percentile("ETHUSDT", "15m", tt.query)
		if !ok {
			t.Fatalf("percentile undefined for query %v", tt.query)
		}
		if got != tt.want {
			t.Fatalf("pct(%v)=%v, expected %v", tt.query, got, tt.want)
		}
	}
}

func TestInvalidValuesDropped(t *testing.T) {
	tr := New(1, 10)
	tr.Update("X", "1m", math.NaN())
	tr.Update("X", "1m", math.Inf(1))
	tr.Update("X", "1m", 0)
	tr.Update("X", "1m", -3)
	if n := tr.Count("X", "1m"); n != 0 {
		t.Fatalf("count=%d after invalid updates, expected 0", n)
	}
}

func TestRingEvictsOldest(t *testing.T) {
	tr := New(1, 3)
	for _, v := range []float64{1, 2, 3, 4} {
		tr.Update("X", "1m", v)
	}
	if n := tr.Count("X", "1m"); n != 3 {
		t.Fatalf("count=%d, expected 3", n)
	}
	// History is now {2,3,4}: value 1 evicted, so pct(1) = 0.
	pct, ok := tr.Percentile("X", "1m", 1)
	if !ok || pct != 0 {
		t.Fatalf("pct(1)=%v ok=%v, expected 0 after eviction", pct, ok)
	}
}

func TestBulkLoad(t *testing.T) {
	tr := New(3, 5)
	vals := []float64{1, math.NaN(), 2, -1, 3, 4, 5, 6, 7}
	loaded := tr.BulkLoad("SOLUSDT", "5m", vals)
	if loaded != 7 {
		t.Fatalf("loaded=%d, expected 7 valid values", loaded)
	}
	// Capacity 5 keeps the most recent: {3,4,5,6,7}.
	if n := tr.Count("SOLUSDT", "5m"); n != 5 {
		t.Fatalf("count=%d, expected 5", n)
	}
	pct, ok := tr.Percentile("SOLUSDT", "5m", 2)
	if !ok || pct != 0 {
		t.Fatalf("pct(2)=%v ok=%v, expected 0", pct, ok)
	}
	if !tr.Ready("SOLUSDT", "5m") {
		t.Fatal("tracker not ready after bulk load")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	tr := New(1, 10)
	tr.Update("A", "1m", 1)
	tr.Update("B", "1m", 100)
	pct, ok := tr.Percentile("A", "1m", 50)
	if !ok || pct != 1 {
		t.Fatalf("A pct=%v ok=%v, expected 1", pct, ok)
	}
	pct, ok = tr.Percentile("B", "1m", 50)
	if !ok || pct != 0 {
		t.Fatalf("B pct=%v ok=%v, expected 0", pct, ok)
	}
}
