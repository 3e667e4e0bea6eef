package gate

import (
	"fmt"

	"governance-core/internal/mode"
	"governance-core/internal/risk"
	"governance-core/internal/trade"
)

// Source identifies which layer produced a permission verdict.
type Source string

const (
	SourceModeController Source = "MODE_CONTROLLER"
	SourceRiskGovernor   Source = "RISK_GOVERNOR"
	SourceApproved       Source = "APPROVED"
)

// Result is the gate's verdict on a single proposed trade.
type Result struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Source  Source `json:"source"`
}

// Gate composes the mode controller and the risk governor into one
// permission check. The mode check always runs first; the risk governor
// is never consulted while the mode disallows trading.
type Gate struct {
	modes *mode.Controller
	risk  *risk.Governor
}

func New(modes *mode.Controller, governor *risk.Governor) *Gate {
	return &Gate{modes: modes, risk: governor}
}

// Check evaluates the proposed trade against both layers in order.
func (g *Gate) Check(req trade.Request) Result {
	if !g.modes.TradingAllowed() {
		return Result{
			Reason: fmt.Sprintf("mode %s does not permit trading", g.modes.Mode()),
			Source: SourceModeController,
		}
	}

	if d := g.risk.ApproveTrade(req); !d.Allowed {
		return Result{
			Reason: fmt.Sprintf("[%s] %s", g.risk.RiskState(), d.Reason),
			Source: SourceRiskGovernor,
		}
	}

	return Result{Allowed: true, Source: SourceApproved}
}

// TradingAllowed is the cheap ambient check: mode permits trading and the
// risk state is neither PAUSED nor SHUTDOWN. It consults no per-trade
// limits.
func (g *Gate) TradingAllowed() bool {
	if !g.modes.TradingAllowed() {
		return false
	}
	switch g.risk.RiskState() {
	case risk.StatePaused, risk.StateShutdown:
		return false
	}
	return true
}
