package monitor

import (
	"testing"
	"time"
)

func TestLatencyHistogramStats(t *testing.T) {
	h := NewLatencyHistogram(10)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		h.Record(v)
	}

	s := h.Stats()
	if s.Count != 5 || s.Min != 1 || s.Max != 5 {
		t.Fatalf("stats = %+v", s)
	}
	if s.Avg != 3 {
		t.Fatalf("avg = %v, want 3", s.Avg)
	}
}

func TestLatencyHistogramSlidesWindow(t *testing.T) {
	h := NewLatencyHistogram(3)
	for _, v := range []float64{10, 20, 30, 40} {
		h.Record(v)
	}

	s := h.Stats()
	if s.Count != 3 || s.Min != 20 || s.Max != 40 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestLatencyHistogramCachesUntilDirty(t *testing.T) {
	h := NewLatencyHistogram(10)
	h.Record(5)

	first := h.Stats()
	second := h.Stats()
	if first != second {
		t.Fatalf("cached stats changed: %+v vs %+v", first, second)
	}

	h.Record(15)
	third := h.Stats()
	if third.Count != 2 || third.Max != 15 {
		t.Fatalf("stats after new sample = %+v", third)
	}
}

func TestCountersAndSnapshot(t *testing.T) {
	m := NewSystemMetrics()

	ts := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	m.RecordTradeExecution(ts)
	m.RecordTradeExecution(ts.Add(time.Minute))
	m.IncrementDenied()
	m.IncrementCapitalBlocks()
	m.IncrementRegimeBlocks()
	m.IncrementErrors()

	snap := m.GetSnapshot()
	if snap.TradesExecuted != 2 || snap.TradesDenied != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.CapitalBlocks != 1 || snap.RegimeBlocks != 1 || snap.ErrorsCount != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if !snap.LastTradeAt.Equal(ts.Add(time.Minute)) {
		t.Fatalf("last trade at = %v", snap.LastTradeAt)
	}
	if snap.GoroutineCount <= 0 {
		t.Fatalf("goroutine count = %d", snap.GoroutineCount)
	}
}
