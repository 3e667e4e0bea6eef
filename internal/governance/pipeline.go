package governance

import (
	"context"
	"log"

	"governance-core/internal/trade"
)

// Outcome is the result of one pipeline pass. A trade blocked before the
// execution layer carries no Result; BlockReason says which layer vetoed
// it and why.
type Outcome struct {
	Result         *trade.Result `json:"result,omitempty"`
	CapitalBlocked bool          `json:"capital_blocked,omitempty"`
	RegimeBlocked  bool          `json:"regime_blocked,omitempty"`
	BlockReason    string        `json:"block_reason,omitempty"`
}

// ProcessTrade runs the canonical pipeline: capital check, regime
// eligibility, then the execution manager (which applies the mode and
// risk gates itself). The order is fixed so cheap vetoes run before any
// governance state is touched.
func (s *System) ProcessTrade(ctx context.Context, req trade.Request, strategyType string) (Outcome, error) {
	if s.Capital != nil {
		if d := s.Capital.CheckCapital(req.StrategyID, req.EstimatedValue); !d.Allowed {
			log.Printf("[Pipeline] capital block for %s/%s: %s", req.StrategyID, req.Pair, d.Reason)
			return Outcome{CapitalBlocked: true, BlockReason: d.Reason}, nil
		}
	}

	if s.Regimes != nil {
		elig := s.Regimes.CheckEligibility(strategyType, req.Pair)
		if !elig.Allowed {
			log.Printf("[Pipeline] regime block for %s/%s: %s", req.StrategyID, req.Pair, elig.Reason)
			return Outcome{RegimeBlocked: true, BlockReason: elig.Reason}, nil
		}
		// Feed the layers that learn from market context only once the
		// trade clears the cheap vetoes.
		s.Regimes.UpdatePriceHistory(req.Pair, req.Price)
		if s.Confidence != nil && elig.Confidence > 0 {
			s.Confidence.Observe(elig.Confidence)
		}
	}

	res, err := s.Exec.ExecuteTrade(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Result: &res}, nil
}
