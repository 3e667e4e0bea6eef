package risk

import (
	"strings"
	"testing"
	"time"

	"governance-core/internal/events"
	"governance-core/internal/trade"
)

func newTestGovernor() *Governor {
	return NewGovernor(DefaultLimits(), 10000, nil)
}

func winResult(strategy, pair string, pnl float64) trade.Result {
	return trade.Result{
		Success:    true,
		StrategyID: strategy,
		Pair:       pair,
		PnL:        pnl,
		Value:      100,
		Timestamp:  time.Now(),
	}
}

func TestApproveTradeCleanSlate(t *testing.T) {
	g := newTestGovernor()
	d := g.ApproveTrade(trade.NewRequest("strat-1", "BTC/USD", trade.ActionBuy, 0.01, 50000))
	if !d.Allowed {
		t.Fatalf("clean-slate trade denied: %s", d.Reason)
	}
}

func TestApproveTradeDeniedWhenPaused(t *testing.T) {
	g := newTestGovernor()
	g.SetState(StatePaused, "operator pause")

	d := g.ApproveTrade(trade.NewRequest("strat-1", "BTC/USD", trade.ActionBuy, 0.001, 50000))
	if d.Allowed {
		t.Fatal("trade approved while PAUSED")
	}
	if !strings.Contains(d.Reason, "PAUSED") {
		t.Fatalf("reason %q does not mention PAUSED", d.Reason)
	}
}

func TestApproveTradeSystemDailyLossShutsDown(t *testing.T) {
	g := newTestGovernor()

	// Accumulate losses past the daily limit. Recording already pushes
	// the governor into SHUTDOWN.
	g.RecordTradeExecution(winResult("strat-1", "BTC/USD", -600))
	if got := g.RiskState(); got != StateShutdown {
		t.Fatalf("state = %v, want SHUTDOWN", got)
	}

	d := g.ApproveTrade(trade.NewRequest("strat-1", "BTC/USD", trade.ActionBuy, 0.001, 50000))
	if d.Allowed {
		t.Fatal("trade approved after system shutdown")
	}
}

func TestApproveTradeEnforcesShutdownOnStaleMetrics(t *testing.T) {
	g := newTestGovernor()

	// Drive metrics past the limit without the recording path noticing
	// (manual state reset simulates an operator overriding too early).
	g.RecordTradeExecution(winResult("strat-1", "BTC/USD", -600))
	g.SetState(StateActive, "premature operator reset")

	d := g.ApproveTrade(trade.NewRequest("strat-1", "BTC/USD", trade.ActionBuy, 0.001, 50000))
	if d.Allowed {
		t.Fatal("trade approved while daily loss still breaches limit")
	}
	if got := g.RiskState(); got != StateShutdown {
		t.Fatalf("approval did not enforce SHUTDOWN, state = %v", got)
	}
}

func TestStrategyDailyLossDeniesWithoutShutdown(t *testing.T) {
	g := newTestGovernor()

	g.RecordTradeExecution(winResult("strat-1", "BTC/USD", -250))

	d := g.ApproveTrade(trade.NewRequest("strat-1", "BTC/USD", trade.ActionBuy, 0.001, 50000))
	if d.Allowed {
		t.Fatal("trade approved past strategy daily loss limit")
	}
	if got := g.RiskState(); got == StateShutdown {
		t.Fatal("strategy-level breach must not shut the system down")
	}

	// A different strategy is unaffected by strat-1's losses... until the
	// system-level daily loss also trips.
	d2 := g.ApproveTrade(trade.NewRequest("strat-2", "ETH/USD", trade.ActionBuy, 0.01, 3000))
	if !d2.Allowed {
		t.Fatalf("independent strategy denied: %s", d2.Reason)
	}
}

func TestAssetExposureLimit(t *testing.T) {
	g := newTestGovernor()

	// Deploy 900 into BTC/USD.
	res := winResult("strat-1", "BTC/USD", 0)
	res.Value = 900
	g.RecordTradeExecution(res)

	// 200 more would push exposure past the 1000 limit.
	d := g.ApproveTrade(trade.NewRequest("strat-1", "BTC/USD", trade.ActionBuy, 0.004, 50000))
	if d.Allowed {
		t.Fatal("trade approved past asset exposure limit")
	}
	if !strings.Contains(d.Reason, "exposure") {
		t.Fatalf("reason %q does not mention exposure", d.Reason)
	}
}

func TestPositionSizeLimit(t *testing.T) {
	g := newTestGovernor()

	// 35% of 10k capital against a 30% cap.
	d := g.ApproveTrade(trade.NewRequest("strat-1", "SOL/USD", trade.ActionBuy, 35, 100))
	if d.Allowed {
		t.Fatal("oversized position approved")
	}
	if !strings.Contains(d.Reason, "position size") {
		t.Fatalf("reason %q does not mention position size", d.Reason)
	}
}

func TestProbationTransition(t *testing.T) {
	bus := events.NewBus()
	alerts, unsub := bus.Subscribe(events.EventRiskAlert, 4)
	defer unsub()

	g := NewGovernor(DefaultLimits(), 10000, bus)

	// 80% of the 500 daily loss limit.
	g.RecordTradeExecution(winResult("strat-1", "BTC/USD", -400))

	if got := g.RiskState(); got != StateProbation {
		t.Fatalf("state = %v, want PROBATION", got)
	}
	select {
	case <-alerts:
	case <-time.After(time.Second):
		t.Fatal("no risk alert published on probation entry")
	}

	// Probation still approves trades.
	d := g.ApproveTrade(trade.NewRequest("strat-2", "ETH/USD", trade.ActionBuy, 0.01, 3000))
	if !d.Allowed {
		t.Fatalf("probation denied trade: %s", d.Reason)
	}
}

func TestShutdownIsTerminalForAutomaticTransitions(t *testing.T) {
	g := newTestGovernor()

	g.RecordTradeExecution(winResult("strat-1", "BTC/USD", -600))
	if g.RiskState() != StateShutdown {
		t.Fatal("expected SHUTDOWN")
	}

	// Further records must not move the state automatically.
	g.RecordTradeExecution(winResult("strat-1", "BTC/USD", 1000))
	if g.RiskState() != StateShutdown {
		t.Fatal("automatic transition left SHUTDOWN")
	}

	// Manual recovery is the only exit.
	g.SetState(StateActive, "operator recovery after review")
	if g.RiskState() != StateActive {
		t.Fatal("manual recovery failed")
	}
}

func TestDailyLossResetsOnCalendarDay(t *testing.T) {
	g := newTestGovernor()

	current := time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC)
	g.SetClock(func() time.Time { return current })

	g.RecordTradeExecution(winResult("strat-1", "BTC/USD", -250))
	d := g.ApproveTrade(trade.NewRequest("strat-1", "BTC/USD", trade.ActionBuy, 0.001, 50000))
	if d.Allowed {
		t.Fatal("trade approved past strategy daily loss limit")
	}

	// Next calendar day: counters reset lazily on the next check.
	current = time.Date(2025, 6, 11, 0, 5, 0, 0, time.UTC)
	d = g.ApproveTrade(trade.NewRequest("strat-1", "BTC/USD", trade.ActionBuy, 0.001, 50000))
	if !d.Allowed {
		t.Fatalf("daily counters did not reset: %s", d.Reason)
	}

	// Drawdown is cumulative and must survive the reset.
	m := g.Metrics()
	if m.SystemDailyLoss != 0 {
		t.Fatalf("system daily loss = %v after reset, want 0", m.SystemDailyLoss)
	}
	if m.SystemDrawdownPct == 0 {
		t.Fatal("system drawdown must not reset with the calendar day")
	}
}

func TestMetricsReturnsDefensiveCopy(t *testing.T) {
	g := newTestGovernor()
	g.RecordTradeExecution(winResult("strat-1", "BTC/USD", -10))

	m := g.Metrics()
	m.AssetExposure["BTC/USD"] = 999999

	if got := g.Metrics().AssetExposure["BTC/USD"]; got == 999999 {
		t.Fatal("metrics map is shared with internal state")
	}
}

func TestStateHistoryAppendOnly(t *testing.T) {
	g := newTestGovernor()
	g.SetState(StatePaused, "pause")
	g.SetState(StateActive, "resume")

	h := g.StateHistory()
	if len(h) != 3 {
		t.Fatalf("history length = %d, want 3", len(h))
	}
	if h[0].State != StateActive || h[1].State != StatePaused || h[2].State != StateActive {
		t.Fatalf("unexpected history %+v", h)
	}
}

func TestUpdateInitialCapitalRebasesDrawdown(t *testing.T) {
	g := newTestGovernor()
	g.RecordTradeExecution(winResult("strat-1", "BTC/USD", -100))
	if g.Metrics().SystemDrawdownPct == 0 {
		t.Fatal("expected nonzero drawdown before rebase")
	}

	g.UpdateInitialCapital(20000)
	m := g.Metrics()
	if m.SystemDrawdownPct != 0 {
		t.Fatalf("drawdown = %v after rebase, want 0", m.SystemDrawdownPct)
	}
	if m.CurrentCapital != 20000 {
		t.Fatalf("current capital = %v, want 20000", m.CurrentCapital)
	}
}
