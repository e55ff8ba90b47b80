// Package monitor exposes the engine's operational counters and the
// closed-bar processing latency histogram.
package monitor

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// EngineMetrics tracks overall engine activity.
type EngineMetrics struct {
	// Latency histograms
	BarLatency  *LatencyHistogram
	TickLatency *LatencyHistogram

	// Counters
	barsProcessed    uint64
	ticksProcessed   uint64
	signalsEmitted   uint64
	signalsClosed    uint64
	staleBarsDropped uint64
	errorsCount      uint64

	mu         sync.RWMutex
	lastUpdate time.Time
}

// LatencyHistogram tracks latency samples with a sliding window and
// lazily recomputed stats.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool
	cachedStats LatencyStats
}

// LatencyStats is a percentile summary of a histogram window.
type LatencyStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean_ms"`
	P50   float64 `json:"p50_ms"`
	P95   float64 `json:"p95_ms"`
	P99   float64 `json:"p99_ms"`
	Max   float64 `json:"max_ms"`
}

// NewEngineMetrics creates a new metrics instance.
func NewEngineMetrics() *EngineMetrics {
	return &EngineMetrics{
		BarLatency:  NewLatencyHistogram(1000),
		TickLatency: NewLatencyHistogram(1000),
		lastUpdate:  time.Now(),
	}
}

// NewLatencyHistogram creates a sliding window histogram.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

// Stats computes (or returns cached) percentile statistics.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty {
		return h.cachedStats
	}

	n := len(h.samples)
	stats := LatencyStats{Count: n}
	if n > 0 {
		sorted := make([]float64, n)
		copy(sorted, h.samples)
		sort.Float64s(sorted)

		sum := 0.0
		for _, s := range sorted {
			sum += s
		}
		stats.Mean = sum / float64(n)
		stats.P50 = sorted[n*50/100]
		stats.P95 = sorted[min(n*95/100, n-1)]
		stats.P99 = sorted[min(n*99/100, n-1)]
		stats.Max = sorted[n-1]
	}

	h.cachedStats = stats
	h.dirty = false
	return stats
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// IncBars records one processed closed bar.
func (m *EngineMetrics) IncBars() { atomic.AddUint64(&m.barsProcessed, 1) }

// IncTicks records one processed trade print.
func (m *EngineMetrics) IncTicks() { atomic.AddUint64(&m.ticksProcessed, 1) }

// IncSignals records one emitted signal.
func (m *EngineMetrics) IncSignals() { atomic.AddUint64(&m.signalsEmitted, 1) }

// IncClosed records one closed signal.
func (m *EngineMetrics) IncClosed() { atomic.AddUint64(&m.signalsClosed, 1) }

// IncStale records one discarded stale/out-of-order bar and returns
// the new total.
func (m *EngineMetrics) IncStale() uint64 { return atomic.AddUint64(&m.staleBarsDropped, 1) }

// IncErrors records one error.
func (m *EngineMetrics) IncErrors() { atomic.AddUint64(&m.errorsCount, 1) }

// Snapshot is the read-only metrics view served by the API.
type Snapshot struct {
	BarsProcessed    uint64       `json:"bars_processed"`
	TicksProcessed   uint64       `json:"ticks_processed"`
	SignalsEmitted   uint64       `json:"signals_emitted"`
	SignalsClosed    uint64       `json:"signals_closed"`
	StaleBarsDropped uint64       `json:"stale_bars_dropped"`
	ErrorsCount      uint64       `json:"errors_count"`
	BarLatency       LatencyStats `json:"bar_latency"`
	TickLatency      LatencyStats `json:"tick_latency"`
}

// GetSnapshot returns the current counter values.
func (m *EngineMetrics) GetSnapshot() Snapshot {
	return Snapshot{
		BarsProcessed:    atomic.LoadUint64(&m.barsProcessed),
		TicksProcessed:   atomic.LoadUint64(&m.ticksProcessed),
		SignalsEmitted:   atomic.LoadUint64(&m.signalsEmitted),
		SignalsClosed:    atomic.LoadUint64(&m.signalsClosed),
		StaleBarsDropped: atomic.LoadUint64(&m.staleBarsDropped),
		ErrorsCount:      atomic.LoadUint64(&m.errorsCount),
		BarLatency:       m.BarLatency.Stats(),
		TickLatency:      m.TickLatency.Stats(),
	}
}
