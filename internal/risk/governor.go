package risk

import (
	"fmt"
	"log"
	"sync"
	"time"

	"governance-core/internal/events"
	"governance-core/internal/trade"
)

// probationPct is the fraction of a shutdown limit at which the governor
// moves from ACTIVE to PROBATION instead of shutting down.
const probationPct = 0.80

// Governor tracks system-wide and per-strategy risk metrics and decides
// whether proposed trades may proceed. A single mutex serializes the
// decide-and-enforce path so that a breach detected during approval
// transitions state before any concurrent approval can read it.
type Governor struct {
	mu sync.Mutex

	state  State
	limits Limits

	initialCapital float64
	currentCapital float64

	systemDailyLoss   float64
	systemDrawdownPct float64

	strategyDailyLoss map[string]float64
	strategyNet       map[string]float64
	strategyPeak      map[string]float64
	assetExposure     map[string]float64

	lastReset time.Time
	history   []Transition

	bus *events.Bus
	now func() time.Time
}

// NewGovernor creates a governor in ACTIVE state with the given limits
// and starting capital. Zero-valued limits fields fall back to defaults.
func NewGovernor(limits Limits, initialCapital float64, bus *events.Bus) *Governor {
	def := DefaultLimits()
	if limits.MaxSystemDrawdownPct <= 0 {
		limits.MaxSystemDrawdownPct = def.MaxSystemDrawdownPct
	}
	if limits.MaxSystemDailyLoss <= 0 {
		limits.MaxSystemDailyLoss = def.MaxSystemDailyLoss
	}
	if limits.MaxStrategyDrawdownPct <= 0 {
		limits.MaxStrategyDrawdownPct = def.MaxStrategyDrawdownPct
	}
	if limits.MaxStrategyDailyLoss <= 0 {
		limits.MaxStrategyDailyLoss = def.MaxStrategyDailyLoss
	}
	if limits.MaxAssetExposure <= 0 {
		limits.MaxAssetExposure = def.MaxAssetExposure
	}
	if limits.MaxPositionSizePct <= 0 {
		limits.MaxPositionSizePct = def.MaxPositionSizePct
	}

	g := &Governor{
		state:             StateActive,
		limits:            limits,
		initialCapital:    initialCapital,
		currentCapital:    initialCapital,
		strategyDailyLoss: make(map[string]float64),
		strategyNet:       make(map[string]float64),
		strategyPeak:      make(map[string]float64),
		assetExposure:     make(map[string]float64),
		bus:               bus,
		now:               time.Now,
	}
	g.lastReset = g.now()
	g.history = append(g.history, Transition{
		State:     StateActive,
		Reason:    "initial state",
		Timestamp: g.lastReset,
	})
	return g
}

// SetClock overrides the governor's time source. Test hook.
func (g *Governor) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
}

// ApproveTrade runs the ordered limit checks against the proposed trade.
// It is decide-and-enforce: a system-level breach observed here
// transitions the governor to SHUTDOWN before the denial is returned, so
// the very next approval sees the terminal state without re-deriving the
// breach.
func (g *Governor) ApproveTrade(req trade.Request) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.maybeResetDailyLocked()

	if g.state == StateShutdown {
		return Decision{Reason: "risk state is SHUTDOWN"}
	}
	if g.state == StatePaused {
		return Decision{Reason: "risk state is PAUSED"}
	}

	if g.systemDrawdownPct >= g.limits.MaxSystemDrawdownPct {
		g.transitionLocked(StateShutdown, fmt.Sprintf(
			"system drawdown %.2f%% breached limit %.2f%%",
			g.systemDrawdownPct, g.limits.MaxSystemDrawdownPct))
		return Decision{Reason: fmt.Sprintf(
			"system drawdown %.2f%% exceeds limit %.2f%%",
			g.systemDrawdownPct, g.limits.MaxSystemDrawdownPct)}
	}

	if g.systemDailyLoss >= g.limits.MaxSystemDailyLoss {
		g.transitionLocked(StateShutdown, fmt.Sprintf(
			"system daily loss %.2f breached limit %.2f",
			g.systemDailyLoss, g.limits.MaxSystemDailyLoss))
		return Decision{Reason: fmt.Sprintf(
			"system daily loss %.2f exceeds limit %.2f",
			g.systemDailyLoss, g.limits.MaxSystemDailyLoss)}
	}

	if dd := g.strategyDrawdownLocked(req.StrategyID); dd >= g.limits.MaxStrategyDrawdownPct {
		return Decision{Reason: fmt.Sprintf(
			"strategy %s drawdown %.2f%% exceeds limit %.2f%%",
			req.StrategyID, dd, g.limits.MaxStrategyDrawdownPct)}
	}

	if loss := g.strategyDailyLoss[req.StrategyID]; loss >= g.limits.MaxStrategyDailyLoss {
		return Decision{Reason: fmt.Sprintf(
			"strategy %s daily loss %.2f exceeds limit %.2f",
			req.StrategyID, loss, g.limits.MaxStrategyDailyLoss)}
	}

	if exp := g.assetExposure[req.Pair] + req.EstimatedValue; exp > g.limits.MaxAssetExposure {
		return Decision{Reason: fmt.Sprintf(
			"exposure on %s would reach %.2f, limit %.2f",
			req.Pair, exp, g.limits.MaxAssetExposure)}
	}

	if g.currentCapital > 0 {
		pct := req.EstimatedValue / g.currentCapital * 100
		if pct > g.limits.MaxPositionSizePct {
			return Decision{Reason: fmt.Sprintf(
				"position size %.2f%% of capital exceeds limit %.2f%%",
				pct, g.limits.MaxPositionSizePct)}
		}
	}

	return Decision{Allowed: true}
}

// RecordTradeExecution folds a completed trade into the governor's
// metrics and re-evaluates system limits against the updated numbers.
// Unsuccessful results are ignored.
func (g *Governor) RecordTradeExecution(res trade.Result) {
	if !res.Success {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.maybeResetDailyLocked()

	if res.PnL < 0 {
		loss := -res.PnL
		g.systemDailyLoss += loss
		g.strategyDailyLoss[res.StrategyID] += loss
	}

	g.currentCapital += res.PnL
	if g.initialCapital > 0 {
		dd := (g.initialCapital - g.currentCapital) / g.initialCapital * 100
		if dd < 0 {
			dd = 0
		}
		g.systemDrawdownPct = dd
	}

	g.strategyNet[res.StrategyID] += res.PnL
	if net := g.strategyNet[res.StrategyID]; net > g.strategyPeak[res.StrategyID] {
		g.strategyPeak[res.StrategyID] = net
	}

	g.assetExposure[res.Pair] += res.Value

	g.evaluateLimitsLocked()
}

// evaluateLimitsLocked re-checks system limits after metrics moved.
// Breaches shut down; approaching a limit while ACTIVE moves to
// PROBATION and raises a risk alert.
func (g *Governor) evaluateLimitsLocked() {
	if g.state == StateShutdown {
		return
	}

	switch {
	case g.systemDrawdownPct >= g.limits.MaxSystemDrawdownPct:
		g.transitionLocked(StateShutdown, fmt.Sprintf(
			"system drawdown %.2f%% breached limit %.2f%%",
			g.systemDrawdownPct, g.limits.MaxSystemDrawdownPct))
	case g.systemDailyLoss >= g.limits.MaxSystemDailyLoss:
		g.transitionLocked(StateShutdown, fmt.Sprintf(
			"system daily loss %.2f breached limit %.2f",
			g.systemDailyLoss, g.limits.MaxSystemDailyLoss))
	case g.state == StateActive &&
		(g.systemDrawdownPct >= g.limits.MaxSystemDrawdownPct*probationPct ||
			g.systemDailyLoss >= g.limits.MaxSystemDailyLoss*probationPct):
		g.transitionLocked(StateProbation, fmt.Sprintf(
			"drawdown %.2f%% / daily loss %.2f approaching limits",
			g.systemDrawdownPct, g.systemDailyLoss))
		if g.bus != nil {
			g.bus.Publish(events.EventRiskAlert, map[string]any{
				"state":               string(StateProbation),
				"system_drawdown_pct": g.systemDrawdownPct,
				"system_daily_loss":   g.systemDailyLoss,
			})
		}
	}
}

// maybeResetDailyLocked zeros the daily-loss counters when the calendar
// day has rolled over since the last reset. Lazy: evaluated on the next
// touch rather than by a timer.
func (g *Governor) maybeResetDailyLocked() {
	now := g.now()
	ly, lm, ld := g.lastReset.Date()
	ny, nm, nd := now.Date()
	if ly == ny && lm == nm && ld == nd {
		return
	}
	g.systemDailyLoss = 0
	g.strategyDailyLoss = make(map[string]float64)
	g.lastReset = now
	log.Printf("[Risk] daily loss counters reset (%04d-%02d-%02d)", ny, nm, nd)
}

func (g *Governor) strategyDrawdownLocked(strategyID string) float64 {
	peak := g.strategyPeak[strategyID]
	if peak <= 0 {
		return 0
	}
	net := g.strategyNet[strategyID]
	dd := (peak - net) / peak * 100
	if dd < 0 {
		return 0
	}
	return dd
}

// transitionLocked appends a history entry and publishes the change.
// SHUTDOWN is terminal for automatic transitions; only SetState leaves it.
func (g *Governor) transitionLocked(next State, reason string) {
	if g.state == next {
		return
	}
	if g.state == StateShutdown {
		return
	}
	prev := g.state
	g.state = next
	t := Transition{State: next, Reason: reason, Timestamp: g.now()}
	g.history = append(g.history, t)
	log.Printf("[Risk] state %s -> %s: %s", prev, next, reason)
	if g.bus != nil {
		g.bus.Publish(events.EventRiskStateChanged, t)
	}
}

// SetState is the manual override. It is the only path out of SHUTDOWN.
func (g *Governor) SetState(next State, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == next {
		return
	}
	prev := g.state
	g.state = next
	t := Transition{State: next, Reason: reason, Timestamp: g.now()}
	g.history = append(g.history, t)
	log.Printf("[Risk] state %s -> %s (manual): %s", prev, next, reason)
	if g.bus != nil {
		g.bus.Publish(events.EventRiskStateChanged, t)
	}
}

// RiskState returns the current state.
func (g *Governor) RiskState() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Metrics returns a defensive copy of the current metrics.
func (g *Governor) Metrics() Metrics {
	g.mu.Lock()
	defer g.mu.Unlock()

	m := Metrics{
		SystemDrawdownPct: g.systemDrawdownPct,
		SystemDailyLoss:   g.systemDailyLoss,
		StrategyDrawdown:  make(map[string]float64, len(g.strategyNet)),
		StrategyDailyLoss: make(map[string]float64, len(g.strategyDailyLoss)),
		AssetExposure:     make(map[string]float64, len(g.assetExposure)),
		InitialCapital:    g.initialCapital,
		CurrentCapital:    g.currentCapital,
	}
	for id := range g.strategyNet {
		m.StrategyDrawdown[id] = g.strategyDrawdownLocked(id)
	}
	for id, v := range g.strategyDailyLoss {
		m.StrategyDailyLoss[id] = v
	}
	for pair, v := range g.assetExposure {
		m.AssetExposure[pair] = v
	}
	return m
}

// StateHistory returns a copy of the state transition history.
func (g *Governor) StateHistory() []Transition {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Transition, len(g.history))
	copy(out, g.history)
	return out
}

// Limits returns the configured limit set.
func (g *Governor) Limits() Limits {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limits
}

// CurrentCapital returns the governor's view of working capital.
func (g *Governor) CurrentCapital() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentCapital
}

// UpdateInitialCapital rebases the drawdown calculation, e.g. after a
// deposit or withdrawal.
func (g *Governor) UpdateInitialCapital(capital float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.initialCapital = capital
	g.currentCapital = capital
	g.systemDrawdownPct = 0
	log.Printf("[Risk] capital rebased to %.2f", capital)
}
