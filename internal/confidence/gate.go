// Package confidence gates real execution on model confidence. Missing,
// stale or low confidence is a configuration fault: real orders must not
// go out while the signal source is degraded.
package confidence

import (
	"fmt"
	"sync"
	"time"
)

// Gate tracks the latest observed model confidence and its age.
type Gate struct {
	mu            sync.RWMutex
	minConfidence float64
	maxAge        time.Duration
	latest        float64
	observedAt    time.Time
	now           func() time.Time
}

func NewGate(minConfidence float64, maxAge time.Duration) *Gate {
	if minConfidence <= 0 {
		minConfidence = 0.5
	}
	if maxAge <= 0 {
		maxAge = 5 * time.Minute
	}
	return &Gate{
		minConfidence: minConfidence,
		maxAge:        maxAge,
		now:           time.Now,
	}
}

// SetClock overrides the gate's time source. Test hook.
func (g *Gate) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
}

// Observe records a fresh confidence reading.
func (g *Gate) Observe(confidence float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.latest = confidence
	g.observedAt = g.now()
}

// EnforceRealExecutionAllowed returns an error when no reading exists,
// the latest reading is stale, or it is below the minimum.
func (g *Gate) EnforceRealExecutionAllowed() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.observedAt.IsZero() {
		return fmt.Errorf("no confidence reading observed")
	}
	if age := g.now().Sub(g.observedAt); age > g.maxAge {
		return fmt.Errorf("confidence reading is stale: age %s exceeds %s", age.Round(time.Second), g.maxAge)
	}
	if g.latest < g.minConfidence {
		return fmt.Errorf("confidence %.2f below minimum %.2f", g.latest, g.minConfidence)
	}
	return nil
}

// Latest returns the most recent reading and when it was observed.
func (g *Gate) Latest() (float64, time.Time) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.latest, g.observedAt
}
