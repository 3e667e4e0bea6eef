// Package sim is an in-memory exchange adapter. It fills every order
// instantly with configurable slippage, fees and gateway latency, and
// keeps a simple cash balance so buy orders can be rejected on
// insufficient funds the way a real venue would.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"governance-core/pkg/exchange"
)

type Config struct {
	FeeRate             float64 // decimal, e.g. 0.0004 = 4 bps
	SlippageBps         float64 // basis points of slippage applied on fills
	GatewayLatencyMinMs int     // simulated gateway latency lower bound
	GatewayLatencyMaxMs int     // simulated gateway latency upper bound
	InitialBalance      float64
}

type position struct {
	quantity   float64
	entryPrice float64
}

// Exchange implements exchange.Adapter against in-memory state.
type Exchange struct {
	mu        sync.Mutex
	cfg       Config
	balance   float64
	positions map[string]*position
	rng       *rand.Rand
}

func New(cfg Config) *Exchange {
	if cfg.GatewayLatencyMaxMs > 0 && cfg.GatewayLatencyMinMs > cfg.GatewayLatencyMaxMs {
		cfg.GatewayLatencyMinMs, cfg.GatewayLatencyMaxMs = cfg.GatewayLatencyMaxMs, cfg.GatewayLatencyMinMs
	}
	return &Exchange{
		cfg:       cfg,
		balance:   cfg.InitialBalance,
		positions: make(map[string]*position),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetSeed replaces the slippage RNG with a deterministic one. Test hook.
func (e *Exchange) SetSeed(seed int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rng = rand.New(rand.NewSource(seed))
}

func (e *Exchange) PlaceBuyOrder(ctx context.Context, pair string, amount, price float64) (exchange.OrderReceipt, error) {
	return e.place(ctx, pair, "BUY", amount, price)
}

func (e *Exchange) PlaceSellOrder(ctx context.Context, pair string, amount, price float64) (exchange.OrderReceipt, error) {
	return e.place(ctx, pair, "SELL", amount, price)
}

func (e *Exchange) place(ctx context.Context, pair, side string, amount, price float64) (exchange.OrderReceipt, error) {
	if amount <= 0 {
		return exchange.OrderReceipt{}, fmt.Errorf("sim: amount must be positive, got %f", amount)
	}

	if err := e.sleepLatency(ctx); err != nil {
		return exchange.OrderReceipt{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	fillPrice := price
	slippage := 0.0
	if price > 0 && e.cfg.SlippageBps > 0 {
		noise := e.rng.Float64() * e.cfg.SlippageBps / 10000.0
		if side == "BUY" {
			fillPrice = price * (1 + noise)
		} else {
			fillPrice = price * (1 - noise)
		}
		slippage = fillPrice - price
	}

	orderValue := amount * fillPrice
	fee := orderValue * e.cfg.FeeRate

	if side == "BUY" && fillPrice > 0 && orderValue+fee > e.balance {
		return exchange.OrderReceipt{
			Reason: fmt.Sprintf("insufficient balance: need %.2f, have %.2f", orderValue+fee, e.balance),
		}, nil
	}

	if fillPrice > 0 {
		if side == "BUY" {
			e.balance -= orderValue + fee
		} else {
			e.balance += orderValue - fee
		}
	}
	e.updatePosition(pair, side, amount, fillPrice)

	return exchange.OrderReceipt{
		Success:        true,
		OrderID:        uuid.NewString(),
		ExecutionPrice: fillPrice,
		FilledQuantity: amount,
		Fees:           fee,
		Slippage:       slippage,
	}, nil
}

func (e *Exchange) sleepLatency(ctx context.Context) error {
	if e.cfg.GatewayLatencyMaxMs <= 0 {
		return nil
	}
	minMs := e.cfg.GatewayLatencyMinMs
	if minMs < 0 {
		minMs = 0
	}
	delayMs := minMs
	if span := e.cfg.GatewayLatencyMaxMs - minMs; span > 0 {
		e.mu.Lock()
		delayMs += e.rng.Intn(span + 1)
		e.mu.Unlock()
	}
	if delayMs <= 0 {
		return nil
	}
	select {
	case <-time.After(time.Duration(delayMs) * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Exchange) updatePosition(pair, side string, qty, price float64) {
	pos, ok := e.positions[pair]
	if !ok {
		if side == "BUY" {
			e.positions[pair] = &position{quantity: qty, entryPrice: price}
		}
		return
	}
	if side == "BUY" {
		totalValue := pos.quantity*pos.entryPrice + qty*price
		pos.quantity += qty
		if pos.quantity != 0 {
			pos.entryPrice = totalValue / pos.quantity
		}
	} else {
		pos.quantity -= qty
		if pos.quantity <= 0 {
			delete(e.positions, pair)
		}
	}
}

// Balance returns the current cash balance.
func (e *Exchange) Balance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balance
}

// Position returns the open quantity and entry price for a pair.
func (e *Exchange) Position(pair string) (qty, entry float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if pos, ok := e.positions[pair]; ok {
		return pos.quantity, pos.entryPrice
	}
	return 0, 0
}
