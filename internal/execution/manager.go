package execution

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"governance-core/internal/events"
	"governance-core/internal/gate"
	"governance-core/internal/mode"
	"governance-core/internal/risk"
	"governance-core/internal/trade"
	"governance-core/pkg/exchange"
)

// Mode selects the execution path. It is fixed at construction; changing
// it requires building a new manager.
type Mode string

const (
	ModeSimulation Mode = "SIMULATION"
	ModeReal       Mode = "REAL"
	ModeShadow     Mode = "SHADOW"
	ModeSentinel   Mode = "SENTINEL"
)

// DefaultSentinelCapitalCap bounds capital at risk in SENTINEL mode.
const DefaultSentinelCapitalCap = 100.0

var (
	ErrAdapterRequired       = errors.New("execution mode requires an exchange adapter")
	ErrShadowTrackerRequired = errors.New("shadow mode requires a shadow tracker")
	ErrSentinelCapExceeded   = errors.New("capital exceeds sentinel cap")
)

// ConfidenceGate blocks real execution when model confidence is missing,
// stale or too low. A returned error is a configuration fault, not a
// denial.
type ConfidenceGate interface {
	EnforceRealExecutionAllowed() error
}

// ShadowTracker receives would-have-traded records from SHADOW mode.
type ShadowTracker interface {
	TrackShadowExecution(req trade.Request, res trade.Result, ts time.Time, regime string, confidence float64) error
}

// RuntimeTracker observes executed trades for metrics purposes.
type RuntimeTracker interface {
	RecordTradeExecution(ts time.Time)
}

// RegimeSource supplies the current regime snapshot for shadow records.
type RegimeSource interface {
	RegimeSnapshot(symbol string) (regime string, confidence float64, ok bool)
}

// HistoryEntry is one appended record of the execution history: the
// request, the gate verdict, and the result when one was produced.
type HistoryEntry struct {
	Request       trade.Request       `json:"request"`
	Permission    *gate.Result        `json:"permission,omitempty"`
	Result        *trade.Result       `json:"result,omitempty"`
	Timestamp     time.Time           `json:"timestamp"`
	ExecutionType trade.ExecutionType `json:"execution_type,omitempty"`
}

// Manager routes approved trades to the execution path selected by its
// mode. A single mutex covers the whole gate-check / execute / record
// sequence so a trade approved under one risk state cannot be recorded
// under another.
type Manager struct {
	mu sync.Mutex

	execMode Mode
	modes    *mode.Controller
	risk     *risk.Governor
	gate     *gate.Gate

	adapter    exchange.Adapter
	shadow     ShadowTracker
	confidence ConfidenceGate
	runtime    RuntimeTracker
	regimes    RegimeSource

	sentinelCap float64
	bus         *events.Bus
	history     []HistoryEntry
	now         func() time.Time
}

// Config carries the manager's collaborators. Adapter, Shadow,
// Confidence, Runtime and Regimes are optional depending on mode; the
// mandatory ones are enforced at execution time so construction stays
// infallible.
type Config struct {
	Mode        Mode
	Modes       *mode.Controller
	Risk        *risk.Governor
	Gate        *gate.Gate
	Adapter     exchange.Adapter
	Shadow      ShadowTracker
	Confidence  ConfidenceGate
	Runtime     RuntimeTracker
	Regimes     RegimeSource
	SentinelCap float64
	Bus         *events.Bus
}

func NewManager(cfg Config) *Manager {
	cap := cfg.SentinelCap
	if cap <= 0 {
		cap = DefaultSentinelCapitalCap
	}
	return &Manager{
		execMode:    cfg.Mode,
		modes:       cfg.Modes,
		risk:        cfg.Risk,
		gate:        cfg.Gate,
		adapter:     cfg.Adapter,
		shadow:      cfg.Shadow,
		confidence:  cfg.Confidence,
		runtime:     cfg.Runtime,
		regimes:     cfg.Regimes,
		sentinelCap: cap,
		bus:         cfg.Bus,
		now:         time.Now,
	}
}

// SetClock overrides the manager's time source. Test hook.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// ExecuteTrade runs one trade through gate check, fail-safe verification,
// the mode-selected execution path, and metric recording. Denials come
// back as unsuccessful results with the gate's reason; a returned error
// means execution could not be attempted at all and nothing was recorded.
func (m *Manager) ExecuteTrade(ctx context.Context, req trade.Request) (trade.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.now()

	perm := m.gate.Check(req)
	if !perm.Allowed {
		res := trade.Failed(req, ts, perm.Reason)
		m.history = append(m.history, HistoryEntry{
			Request:    req,
			Permission: &perm,
			Timestamp:  ts,
		})
		if m.bus != nil {
			m.bus.Publish(events.EventDecisionDenied, map[string]any{
				"strategy_id": req.StrategyID,
				"pair":        req.Pair,
				"reason":      perm.Reason,
				"source":      string(perm.Source),
			})
		}
		return res, nil
	}

	// Independent re-verification of the two kill conditions. The gate
	// already checked both, so a failure here means a layer disagreed
	// with its own verdict.
	if cur := m.modes.Mode(); cur == mode.ObserveOnly {
		log.Printf("[Exec] REFUSING TRADE: gate approved %s/%s but mode is %s", req.StrategyID, req.Pair, cur)
		m.publishAlert("gate approval contradicts observe-only mode", req)
		return m.refuseTrade(req, ts, "refused: mode verification failed after approval"), nil
	}
	if st := m.risk.RiskState(); st == risk.StateShutdown {
		log.Printf("[Exec] REFUSING TRADE: gate approved %s/%s but risk state is %s", req.StrategyID, req.Pair, st)
		m.publishAlert("gate approval contradicts shutdown risk state", req)
		return m.refuseTrade(req, ts, "refused: risk state verification failed after approval"), nil
	}

	if m.bus != nil {
		m.bus.Publish(events.EventDecisionApproved, map[string]any{
			"strategy_id": req.StrategyID,
			"pair":        req.Pair,
			"mode":        string(m.execMode),
		})
	}

	var (
		res trade.Result
		err error
	)
	switch m.execMode {
	case ModeReal:
		res, err = m.executeReal(ctx, req, ts)
	case ModeShadow:
		res, err = m.executeShadow(ctx, req, ts)
	case ModeSentinel:
		res, err = m.executeSentinel(ctx, req, ts)
	default:
		res, err = m.executeSimulated(ctx, req, ts)
	}
	if err != nil {
		return trade.Result{}, err
	}

	m.risk.RecordTradeExecution(res)
	if m.runtime != nil && m.execMode != ModeReal {
		m.runtime.RecordTradeExecution(ts)
	}

	m.history = append(m.history, HistoryEntry{
		Request:       req,
		Permission:    &perm,
		Result:        &res,
		Timestamp:     ts,
		ExecutionType: res.ExecutionType,
	})
	if m.bus != nil {
		m.bus.Publish(events.EventTradeExecuted, res)
	}
	return res, nil
}

func (m *Manager) executeReal(ctx context.Context, req trade.Request, ts time.Time) (trade.Result, error) {
	if m.confidence != nil {
		if err := m.confidence.EnforceRealExecutionAllowed(); err != nil {
			return trade.Result{}, fmt.Errorf("real execution blocked: %w", err)
		}
	}
	if m.adapter == nil {
		return trade.Result{}, fmt.Errorf("real mode: %w", ErrAdapterRequired)
	}
	res := m.executeOnExchange(ctx, req, ts)
	res.ExecutionType = trade.ExecReal
	return res, nil
}

func (m *Manager) executeSimulated(ctx context.Context, req trade.Request, ts time.Time) (trade.Result, error) {
	if m.adapter == nil {
		// Legacy path: synthesize a perfect local fill. Never under
		// observe-only, which was re-verified above.
		res := m.synthesizeFill(req, ts)
		res.ExecutionType = trade.ExecSimulated
		return res, nil
	}
	res := m.executeOnExchange(ctx, req, ts)
	res.ExecutionType = trade.ExecSimulated
	return res, nil
}

func (m *Manager) executeShadow(ctx context.Context, req trade.Request, ts time.Time) (trade.Result, error) {
	if m.shadow == nil {
		return trade.Result{}, fmt.Errorf("shadow mode: %w", ErrShadowTrackerRequired)
	}
	if m.adapter == nil {
		return trade.Result{}, fmt.Errorf("shadow mode: %w", ErrAdapterRequired)
	}

	res := m.executeOnExchange(ctx, req, ts)
	res.ExecutionType = trade.ExecShadow

	regime := "UNKNOWN"
	confidence := 0.0
	if m.regimes != nil {
		if r, c, ok := m.regimes.RegimeSnapshot(req.Pair); ok {
			regime, confidence = r, c
		}
	}
	// Tracking is off the hot path; failures are logged, never surfaced.
	go func(req trade.Request, res trade.Result) {
		if err := m.shadow.TrackShadowExecution(req, res, ts, regime, confidence); err != nil {
			log.Printf("[Exec] shadow tracking failed for %s/%s: %v", req.StrategyID, req.Pair, err)
		}
	}(req, res)

	return res, nil
}

func (m *Manager) executeSentinel(ctx context.Context, req trade.Request, ts time.Time) (trade.Result, error) {
	if capital := m.risk.CurrentCapital(); capital > m.sentinelCap {
		return trade.Result{}, fmt.Errorf("%w: capital %.2f, cap %.2f",
			ErrSentinelCapExceeded, capital, m.sentinelCap)
	}
	if m.adapter == nil {
		return trade.Result{}, fmt.Errorf("sentinel mode: %w", ErrAdapterRequired)
	}
	res := m.executeOnExchange(ctx, req, ts)
	res.ExecutionType = trade.ExecSentinel
	return res, nil
}

// executeOnExchange places the order and normalizes the receipt into a
// trade.Result. Adapter errors become failed results rather than
// propagating, so a flaky venue still leaves an auditable record.
func (m *Manager) executeOnExchange(ctx context.Context, req trade.Request, ts time.Time) trade.Result {
	var (
		receipt exchange.OrderReceipt
		err     error
	)
	switch req.Action {
	case trade.ActionBuy:
		receipt, err = m.adapter.PlaceBuyOrder(ctx, req.Pair, req.Amount, req.Price)
	case trade.ActionSell:
		receipt, err = m.adapter.PlaceSellOrder(ctx, req.Pair, req.Amount, req.Price)
	default:
		return trade.Failed(req, ts, fmt.Sprintf("unknown action %q", req.Action))
	}
	if err != nil {
		log.Printf("[Exec] adapter error for %s/%s: %v", req.StrategyID, req.Pair, err)
		return trade.Failed(req, ts, fmt.Sprintf("adapter error: %v", err))
	}
	if !receipt.Success {
		return trade.Failed(req, ts, receipt.Reason)
	}

	price := receipt.ExecutionPrice
	if price <= 0 {
		price = req.Price
	}
	qty := receipt.FilledQuantity
	if qty <= 0 {
		qty = req.Amount
	}
	return trade.Result{
		Success:        true,
		Pair:           req.Pair,
		StrategyID:     req.StrategyID,
		Timestamp:      ts,
		Value:          price * qty,
		OrderID:        receipt.OrderID,
		ExecutionPrice: price,
		FilledQuantity: qty,
		Fees:           receipt.Fees,
		Slippage:       receipt.Slippage,
	}
}

// synthesizeFill produces a frictionless fill at the requested price.
func (m *Manager) synthesizeFill(req trade.Request, ts time.Time) trade.Result {
	if req.Action != trade.ActionBuy && req.Action != trade.ActionSell {
		return trade.Failed(req, ts, fmt.Sprintf("unknown action %q", req.Action))
	}
	return trade.Result{
		Success:        true,
		Pair:           req.Pair,
		StrategyID:     req.StrategyID,
		Timestamp:      ts,
		Value:          req.EstimatedValue,
		ExecutionPrice: req.Price,
		FilledQuantity: req.Amount,
	}
}

// refuseTrade records a post-approval refusal in the execution history.
// Reaching it means a governance layer contradicted its own verdict, so
// the refusal must leave an audit trace.
func (m *Manager) refuseTrade(req trade.Request, ts time.Time, reason string) trade.Result {
	res := trade.Failed(req, ts, reason)
	m.history = append(m.history, HistoryEntry{
		Request:   req,
		Result:    &res,
		Timestamp: ts,
	})
	return res
}

func (m *Manager) publishAlert(msg string, req trade.Request) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(events.EventRiskAlert, map[string]any{
		"alert":       msg,
		"strategy_id": req.StrategyID,
		"pair":        req.Pair,
	})
}

// IsExecutionAllowed is the ambient pre-check exposed to callers that
// want to skip signal generation entirely when nothing could trade.
func (m *Manager) IsExecutionAllowed() bool {
	return m.gate.TradingAllowed()
}

// Mode returns the execution mode fixed at construction.
func (m *Manager) Mode() Mode {
	return m.execMode
}

// History returns a copy of the execution history, oldest first.
func (m *Manager) History() []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]HistoryEntry, len(m.history))
	copy(out, m.history)
	return out
}
