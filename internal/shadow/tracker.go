// Package shadow records trades the system would have placed, tagged
// with the market context at decision time, for later comparison against
// live performance.
package shadow

import (
	"sync"
	"time"

	"governance-core/internal/trade"
)

// Record is one would-have-traded entry.
type Record struct {
	Request    trade.Request `json:"request"`
	Result     trade.Result  `json:"result"`
	Timestamp  time.Time     `json:"timestamp"`
	Regime     string        `json:"regime"`
	Confidence float64       `json:"confidence"`
}

// Summary aggregates the tracked records.
type Summary struct {
	Count      int     `json:"count"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	NetPnL     float64 `json:"net_pnl"`
	GrossValue float64 `json:"gross_value"`
}

// Tracker is the append-only shadow record store.
type Tracker struct {
	mu      sync.RWMutex
	records []Record
	max     int
}

// NewTracker creates a tracker keeping at most max records; older
// entries are dropped. max <= 0 means unbounded.
func NewTracker(max int) *Tracker {
	return &Tracker{max: max}
}

func (t *Tracker) TrackShadowExecution(req trade.Request, res trade.Result, ts time.Time, regime string, confidence float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = append(t.records, Record{
		Request:    req,
		Result:     res,
		Timestamp:  ts,
		Regime:     regime,
		Confidence: confidence,
	})
	if t.max > 0 && len(t.records) > t.max {
		t.records = t.records[len(t.records)-t.max:]
	}
	return nil
}

// Records returns a copy of all tracked records, oldest first.
func (t *Tracker) Records() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Summary aggregates wins, losses and net PnL across all records.
func (t *Tracker) Summary() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var s Summary
	for _, r := range t.records {
		s.Count++
		s.GrossValue += r.Result.Value
		s.NetPnL += r.Result.PnL
		switch {
		case r.Result.PnL > 0:
			s.Wins++
		case r.Result.PnL < 0:
			s.Losses++
		}
	}
	return s
}
