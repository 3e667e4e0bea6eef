package db

import "time"

// Execution is one persisted trade outcome (successful or failed).
type Execution struct {
	ID             string    `json:"id"`
	StrategyID     string    `json:"strategy_id"`
	Pair           string    `json:"pair"`
	Action         string    `json:"action"`
	ExecutionType  string    `json:"execution_type"`
	Success        bool      `json:"success"`
	Value          float64   `json:"value"`
	PnL            float64   `json:"pnl"`
	ExecutionPrice float64   `json:"execution_price"`
	FilledQty      float64   `json:"filled_qty"`
	Fees           float64   `json:"fees"`
	Reason         string    `json:"reason,omitempty"`
	ExecutedAt     time.Time `json:"executed_at"`
}

// Denial is one persisted gate denial.
type Denial struct {
	ID         string    `json:"id"`
	StrategyID string    `json:"strategy_id"`
	Pair       string    `json:"pair"`
	Source     string    `json:"source"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// ModeTransition is one persisted operating-mode change.
type ModeTransition struct {
	ID         int64     `json:"id"`
	Mode       string    `json:"mode"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RiskTransition is one persisted risk-state change.
type RiskTransition struct {
	ID         int64     `json:"id"`
	State      string    `json:"state"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}
