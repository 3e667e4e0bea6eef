// Package capital tracks the working-capital pool and answers whether a
// proposed trade's notional can be funded. It runs before the governance
// gate in the pipeline: a trade the pool cannot fund never reaches the
// mode or risk layers.
package capital

import (
	"fmt"
	"log"
	"sync"
)

// Decision is the outcome of a funding check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Snapshot is a point-in-time copy of the pool.
type Snapshot struct {
	Total       float64            `json:"total"`
	Available   float64            `json:"available"`
	Deployed    float64            `json:"deployed"`
	Allocations map[string]float64 `json:"allocations,omitempty"`
}

// Pool is the account-level capital ledger. Deployed funds sit in open
// positions, tracked per strategy.
type Pool struct {
	mu          sync.RWMutex
	total       float64
	available   float64
	allocations map[string]float64
}

func NewPool(initial float64) *Pool {
	return &Pool{
		total:       initial,
		available:   initial,
		allocations: make(map[string]float64),
	}
}

// CheckCapital answers whether the pool can fund the given notional for
// the strategy without mutating anything.
func (p *Pool) CheckCapital(strategyID string, value float64) Decision {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if value <= 0 {
		return Decision{Reason: fmt.Sprintf("invalid trade value %.2f for %s", value, strategyID)}
	}
	if value > p.available {
		return Decision{Reason: fmt.Sprintf(
			"insufficient capital for %s: need %.2f, available %.2f", strategyID, value, p.available)}
	}
	return Decision{Allowed: true}
}

// Allocate moves available funds into a strategy's open deployment.
func (p *Pool) Allocate(strategyID string, value float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if value <= 0 {
		return fmt.Errorf("invalid allocation %.2f", value)
	}
	if value > p.available {
		return fmt.Errorf("insufficient capital: need %.2f, available %.2f", value, p.available)
	}
	p.available -= value
	p.allocations[strategyID] += value
	log.Printf("[Capital] %s allocated %.2f (available %.2f)", strategyID, value, p.available)
	return nil
}

// Release returns deployed funds to the available pool without PnL,
// e.g. after a failed fill. Clamped to the strategy's allocation.
func (p *Pool) Release(strategyID string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if alloc := p.allocations[strategyID]; value > alloc {
		value = alloc
	}
	p.allocations[strategyID] -= value
	p.available += value
	if p.allocations[strategyID] <= 0 {
		delete(p.allocations, strategyID)
	}
}

// ApplyPnL settles a closed position: the deployed notional comes back
// to available adjusted by realized profit or loss.
func (p *Pool) ApplyPnL(strategyID string, deployedValue, pnl float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if alloc := p.allocations[strategyID]; deployedValue > alloc {
		deployedValue = alloc
	}
	p.allocations[strategyID] -= deployedValue
	if p.allocations[strategyID] <= 0 {
		delete(p.allocations, strategyID)
	}
	p.available += deployedValue + pnl
	p.total += pnl
	if p.available < 0 {
		p.available = 0
	}
	log.Printf("[Capital] %s settled %.2f with pnl %+.2f (total %.2f)", strategyID, deployedValue, pnl, p.total)
}

// Snapshot returns a copy of the pool state.
func (p *Pool) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var deployed float64
	allocs := make(map[string]float64, len(p.allocations))
	for id, v := range p.allocations {
		deployed += v
		allocs[id] = v
	}
	return Snapshot{
		Total:       p.total,
		Available:   p.available,
		Deployed:    deployed,
		Allocations: allocs,
	}
}

// Allocation returns a strategy's currently deployed notional.
func (p *Pool) Allocation(strategyID string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.allocations[strategyID]
}

// SetTotal rebases the pool, e.g. on deposit or withdrawal.
func (p *Pool) SetTotal(total float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
	p.available = total
	p.allocations = make(map[string]float64)
	log.Printf("[Capital] pool rebased to %.2f", total)
}
