// Package governance wires the capital, regime, mode and risk layers
// into the single pipeline that every proposed trade passes through.
package governance

import (
	"governance-core/internal/capital"
	"governance-core/internal/confidence"
	"governance-core/internal/events"
	"governance-core/internal/execution"
	"governance-core/internal/gate"
	"governance-core/internal/mode"
	"governance-core/internal/regime"
	"governance-core/internal/risk"
)

// CapitalGate answers whether a trade's notional can be funded.
type CapitalGate interface {
	CheckCapital(strategyID string, value float64) capital.Decision
}

// RegimeGate answers whether a strategy type may trade the symbol under
// the current market regime, and accepts price observations.
type RegimeGate interface {
	CheckEligibility(strategyType, symbol string) regime.Eligibility
	UpdatePriceHistory(symbol string, price float64)
}

// System bundles the governance layers. Fields are exported so the API
// and main wiring can reach individual layers directly.
type System struct {
	Modes      *mode.Controller
	Risk       *risk.Governor
	Gate       *gate.Gate
	Exec       *execution.Manager
	Capital    CapitalGate
	Regimes    RegimeGate
	Confidence *confidence.Gate
	Bus        *events.Bus
}

// Status is the aggregate view served on the status endpoint.
type Status struct {
	Mode             mode.Mode        `json:"mode"`
	Permissions      mode.Permissions `json:"permissions"`
	RiskState        risk.State       `json:"risk_state"`
	RiskMetrics      risk.Metrics     `json:"risk_metrics"`
	ExecutionMode    execution.Mode   `json:"execution_mode"`
	ExecutionAllowed bool             `json:"execution_allowed"`
	Capital          capital.Snapshot `json:"capital,omitempty"`
}

// Status assembles the aggregate snapshot.
func (s *System) Status() Status {
	st := Status{
		Mode:             s.Modes.Mode(),
		Permissions:      s.Modes.Permissions(),
		RiskState:        s.Risk.RiskState(),
		RiskMetrics:      s.Risk.Metrics(),
		ExecutionMode:    s.Exec.Mode(),
		ExecutionAllowed: s.Exec.IsExecutionAllowed(),
	}
	if pool, ok := s.Capital.(*capital.Pool); ok && pool != nil {
		st.Capital = pool.Snapshot()
	}
	return st
}
