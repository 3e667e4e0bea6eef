// Package exchange defines the venue adapter contract shared by every
// execution path. Adapters never interpret governance decisions; they
// receive already-approved orders and report what happened.
package exchange

import "context"

// OrderReceipt is the normalized result of one order attempt. A venue
// rejection is a receipt with Success=false, not an error; errors are
// reserved for transport and adapter faults.
type OrderReceipt struct {
	Success        bool    `json:"success"`
	OrderID        string  `json:"order_id,omitempty"`
	ExecutionPrice float64 `json:"execution_price,omitempty"`
	FilledQuantity float64 `json:"filled_quantity,omitempty"`
	Fees           float64 `json:"fees,omitempty"`
	Slippage       float64 `json:"slippage,omitempty"`
	Reason         string  `json:"reason,omitempty"`
}

// Adapter places orders on a venue, real or simulated.
type Adapter interface {
	PlaceBuyOrder(ctx context.Context, pair string, amount, price float64) (OrderReceipt, error)
	PlaceSellOrder(ctx context.Context, pair string, amount, price float64) (OrderReceipt, error)
}
