package trade

import "time"

// ExecutionType tags how a single trade result was produced.
type ExecutionType string

const (
	ExecSimulated ExecutionType = "SIMULATED"
	ExecReal      ExecutionType = "REAL"
	ExecShadow    ExecutionType = "SHADOW"
	ExecSentinel  ExecutionType = "SENTINEL"
)

// Actions accepted on a Request.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// Request is one trade intent. It is built once per decision cycle and
// never mutated after construction.
type Request struct {
	StrategyID     string  `json:"strategy_id"`
	Pair           string  `json:"pair"`
	Action         string  `json:"action"` // BUY or SELL
	Amount         float64 `json:"amount"`
	Price          float64 `json:"price"`
	EstimatedValue float64 `json:"estimated_value"` // Amount * Price, USD
	StopLoss       float64 `json:"stop_loss,omitempty"`
	TakeProfit     float64 `json:"take_profit,omitempty"`
}

// NewRequest builds a request and derives EstimatedValue from amount and
// price.
func NewRequest(strategyID, pair, action string, amount, price float64) Request {
	return Request{
		StrategyID:     strategyID,
		Pair:           pair,
		Action:         action,
		Amount:         amount,
		Price:          price,
		EstimatedValue: amount * price,
	}
}

// Result is the outcome of exactly one execution attempt. Immutable after
// creation.
type Result struct {
	Success        bool          `json:"success"`
	Pair           string        `json:"pair"`
	StrategyID     string        `json:"strategy_id"`
	Timestamp      time.Time     `json:"timestamp"`
	Value          float64       `json:"value"` // realized or estimated USD value
	PnL            float64       `json:"pnl"`   // signed USD, 0 until a position closes
	OrderID        string        `json:"order_id,omitempty"`
	ExecutionPrice float64       `json:"execution_price,omitempty"`
	FilledQuantity float64       `json:"filled_quantity,omitempty"`
	Fees           float64       `json:"fees,omitempty"`
	Slippage       float64       `json:"slippage,omitempty"`
	ExecutionType  ExecutionType `json:"execution_type,omitempty"`
	Reason         string        `json:"reason,omitempty"` // denial or failure reason
}

// Failed builds a zero-value failure result for a request.
func Failed(req Request, ts time.Time, reason string) Result {
	return Result{
		Success:    false,
		Pair:       req.Pair,
		StrategyID: req.StrategyID,
		Timestamp:  ts,
		Reason:     reason,
	}
}
