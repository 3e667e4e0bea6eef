package mode

import (
	"sync"
	"time"

	"governance-core/internal/events"
)

// Mode is the single system-wide operating posture.
type Mode string

const (
	Aggressive  Mode = "AGGRESSIVE"
	ObserveOnly Mode = "OBSERVE_ONLY"
)

// Permissions is derived from the current mode, never stored.
type Permissions struct {
	TradingAllowed       bool     `json:"trading_allowed"`
	MaxRiskPctPerTrade   float64  `json:"max_risk_pct_per_trade"`
	MaxLeverage          float64  `json:"max_leverage"`
	AllowedStrategyTypes []string `json:"allowed_strategy_types"`
}

// aggressiveStrategyTypes is the fixed allow-list of strategy types that
// may trade while the system is AGGRESSIVE.
var aggressiveStrategyTypes = []string{
	"conservative", "balanced", "aggressive", "income",
	"momentum", "seasonal", "defensive", "scalping",
}

// PermissionsFor maps a mode to its permission set. Any unrecognized mode
// value fails safe to the OBSERVE_ONLY set.
func PermissionsFor(m Mode) Permissions {
	switch m {
	case Aggressive:
		types := make([]string, len(aggressiveStrategyTypes))
		copy(types, aggressiveStrategyTypes)
		return Permissions{
			TradingAllowed:       true,
			MaxRiskPctPerTrade:   30,
			MaxLeverage:          1,
			AllowedStrategyTypes: types,
		}
	default:
		return Permissions{TradingAllowed: false}
	}
}

// Transition is one appended entry of the mode history.
type Transition struct {
	Mode      Mode      `json:"mode"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Controller is the exclusive owner of the operating mode. It performs no
// I/O and does not fail under normal operation.
type Controller struct {
	mu      sync.RWMutex
	current Mode
	history []Transition
	bus     *events.Bus
	now     func() time.Time
}

// NewController creates a controller in the given initial mode. The
// initial mode is recorded as the first history entry.
func NewController(initial Mode, bus *events.Bus) *Controller {
	c := &Controller{
		current: initial,
		bus:     bus,
		now:     time.Now,
	}
	c.history = append(c.history, Transition{
		Mode:      initial,
		Reason:    "initial mode",
		Timestamp: c.now(),
	})
	return c
}

// Mode returns the current operating mode.
func (c *Controller) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Permissions derives the permission set for the current mode.
func (c *Controller) Permissions() Permissions {
	return PermissionsFor(c.Mode())
}

// TradingAllowed is an O(1) convenience over Permissions.
func (c *Controller) TradingAllowed() bool {
	return c.Permissions().TradingAllowed
}

// Set swaps the mode and appends a history entry. Setting the current
// mode again is a no-op and records nothing.
func (c *Controller) Set(m Mode, reason string) {
	c.mu.Lock()
	if c.current == m {
		c.mu.Unlock()
		return
	}
	c.current = m
	tr := Transition{Mode: m, Reason: reason, Timestamp: c.now()}
	c.history = append(c.history, tr)
	c.mu.Unlock()

	if c.bus != nil {
		c.bus.Publish(events.EventModeChanged, tr)
	}
}

// History returns a snapshot of the mode history. The history is
// append-only and never pruned during the process lifetime.
func (c *Controller) History() []Transition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Transition, len(c.history))
	copy(out, c.history)
	return out
}
