package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SystemMetrics tracks pipeline and runtime performance.
type SystemMetrics struct {
	mu sync.RWMutex

	// Latency histograms
	DecisionLatency *LatencyHistogram
	AdapterLatency  *LatencyHistogram
	DBLatency       *LatencyHistogram

	// Counters
	tradesExecuted uint64
	tradesDenied   uint64
	capitalBlocks  uint64
	regimeBlocks   uint64
	errorsCount    uint64

	lastTradeAt time.Time
	lastUpdate  time.Time
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

// NewSystemMetrics creates a new metrics instance.
func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		DecisionLatency: NewLatencyHistogram(1000),
		AdapterLatency:  NewLatencyHistogram(1000),
		DBLatency:       NewLatencyHistogram(1000),
		lastUpdate:      time.Now(),
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

// RecordDuration converts duration to ms and records.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg, p50, p95, p99. Recomputed only when
// samples have changed since the last call.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}

	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	min, max := sorted[0], sorted[n-1]
	for _, v := range sorted {
		sum += v
	}

	h.cachedStats = LatencyStats{
		Min:   min,
		Max:   max,
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false

	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

// RecordTradeExecution counts an executed trade and stamps its time.
func (m *SystemMetrics) RecordTradeExecution(ts time.Time) {
	atomic.AddUint64(&m.tradesExecuted, 1)
	m.mu.Lock()
	m.lastTradeAt = ts
	m.mu.Unlock()
}

// IncrementDenied counts a gate denial.
func (m *SystemMetrics) IncrementDenied() {
	atomic.AddUint64(&m.tradesDenied, 1)
}

// IncrementCapitalBlocks counts a capital-layer veto.
func (m *SystemMetrics) IncrementCapitalBlocks() {
	atomic.AddUint64(&m.capitalBlocks, 1)
}

// IncrementRegimeBlocks counts a regime-layer veto.
func (m *SystemMetrics) IncrementRegimeBlocks() {
	atomic.AddUint64(&m.regimeBlocks, 1)
}

// IncrementErrors increments error counter.
func (m *SystemMetrics) IncrementErrors() {
	atomic.AddUint64(&m.errorsCount, 1)
}

// MetricsSnapshot is a point-in-time metrics snapshot.
type MetricsSnapshot struct {
	DecisionLatency LatencyStats `json:"decision_latency"`
	AdapterLatency  LatencyStats `json:"adapter_latency"`
	DBLatency       LatencyStats `json:"db_latency"`
	TradesExecuted  uint64       `json:"trades_executed"`
	TradesDenied    uint64       `json:"trades_denied"`
	CapitalBlocks   uint64       `json:"capital_blocks"`
	RegimeBlocks    uint64       `json:"regime_blocks"`
	ErrorsCount     uint64       `json:"errors_count"`
	LastTradeAt     time.Time    `json:"last_trade_at"`
	GoroutineCount  int          `json:"goroutine_count"`
	HeapAlloc       uint64       `json:"heap_alloc_bytes"`
	HeapSys         uint64       `json:"heap_sys_bytes"`
	Timestamp       time.Time    `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *SystemMetrics) GetSnapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.mu.RLock()
	lastTrade := m.lastTradeAt
	m.mu.RUnlock()

	return MetricsSnapshot{
		DecisionLatency: m.DecisionLatency.Stats(),
		AdapterLatency:  m.AdapterLatency.Stats(),
		DBLatency:       m.DBLatency.Stats(),
		TradesExecuted:  atomic.LoadUint64(&m.tradesExecuted),
		TradesDenied:    atomic.LoadUint64(&m.tradesDenied),
		CapitalBlocks:   atomic.LoadUint64(&m.capitalBlocks),
		RegimeBlocks:    atomic.LoadUint64(&m.regimeBlocks),
		ErrorsCount:     atomic.LoadUint64(&m.errorsCount),
		LastTradeAt:     lastTrade,
		GoroutineCount:  runtime.NumGoroutine(),
		HeapAlloc:       memStats.HeapAlloc,
		HeapSys:         memStats.HeapSys,
		Timestamp:       time.Now(),
	}
}

// Timer helps measure operation duration.
type Timer struct {
	start     time.Time
	histogram *LatencyHistogram
}

// NewTimer creates a timer that records to the given histogram.
func NewTimer(h *LatencyHistogram) *Timer {
	return &Timer{
		start:     time.Now(),
		histogram: h,
	}
}

// Stop records elapsed time to histogram.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.histogram != nil {
		t.histogram.RecordDuration(elapsed)
	}
	return elapsed
}
