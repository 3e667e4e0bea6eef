package risk

import "time"

// State is the governor's own health state, independent of the operating
// mode. It moves monotonically toward SHUTDOWN under breach conditions;
// recovery is manual only.
type State string

const (
	StateActive    State = "ACTIVE"
	StateProbation State = "PROBATION"
	StatePaused    State = "PAUSED"
	StateShutdown  State = "SHUTDOWN"
)

// Limits is the configuration ceiling for each tracked metric. Defaults
// are hard-coded but overridable at construction or from a YAML profile.
type Limits struct {
	MaxSystemDrawdownPct   float64 `json:"max_system_drawdown_pct" yaml:"max_system_drawdown_pct"`
	MaxSystemDailyLoss     float64 `json:"max_system_daily_loss" yaml:"max_system_daily_loss"`
	MaxStrategyDrawdownPct float64 `json:"max_strategy_drawdown_pct" yaml:"max_strategy_drawdown_pct"`
	MaxStrategyDailyLoss   float64 `json:"max_strategy_daily_loss" yaml:"max_strategy_daily_loss"`
	MaxAssetExposure       float64 `json:"max_asset_exposure" yaml:"max_asset_exposure"`
	MaxPositionSizePct     float64 `json:"max_position_size_pct" yaml:"max_position_size_pct"`
}

// DefaultLimits returns the hard-coded limit set.
func DefaultLimits() Limits {
	return Limits{
		MaxSystemDrawdownPct:   25,
		MaxSystemDailyLoss:     500,
		MaxStrategyDrawdownPct: 15,
		MaxStrategyDailyLoss:   200,
		MaxAssetExposure:       1000,
		MaxPositionSizePct:     30,
	}
}

// Metrics is a point-in-time copy of the governor's risk metrics.
type Metrics struct {
	SystemDrawdownPct float64            `json:"system_drawdown_pct"`
	SystemDailyLoss   float64            `json:"system_daily_loss"`
	StrategyDrawdown  map[string]float64 `json:"strategy_drawdown_pct"`
	StrategyDailyLoss map[string]float64 `json:"strategy_daily_loss"`
	AssetExposure     map[string]float64 `json:"asset_exposure"`
	InitialCapital    float64            `json:"initial_capital"`
	CurrentCapital    float64            `json:"current_capital"`
}

// Transition is one appended entry of the risk-state history.
type Transition struct {
	State     State     `json:"state"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Decision is the outcome of one decide-and-enforce approval pass.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}
