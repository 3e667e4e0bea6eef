// Package journal persists governance events to the decision journal.
// It observes the event bus; it never drives execution, and persistence
// failures are logged, not surfaced.
package journal

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"governance-core/internal/events"
	"governance-core/internal/mode"
	"governance-core/internal/risk"
	"governance-core/internal/trade"
	"governance-core/pkg/db"
)

const subscribeBuffer = 256

// Journal subscribes to governance events and writes them to the
// database in a background goroutine per topic.
type Journal struct {
	db  *db.Database
	bus *events.Bus
}

func New(database *db.Database, bus *events.Bus) *Journal {
	return &Journal{db: database, bus: bus}
}

// Start subscribes to all journaled topics. Goroutines exit when ctx is
// cancelled.
func (j *Journal) Start(ctx context.Context) {
	executed, unsubExec := j.bus.Subscribe(events.EventTradeExecuted, subscribeBuffer)
	denied, unsubDen := j.bus.Subscribe(events.EventDecisionDenied, subscribeBuffer)
	modeCh, unsubMode := j.bus.Subscribe(events.EventModeChanged, subscribeBuffer)
	riskCh, unsubRisk := j.bus.Subscribe(events.EventRiskStateChanged, subscribeBuffer)

	go func() {
		defer unsubExec()
		defer unsubDen()
		defer unsubMode()
		defer unsubRisk()
		for {
			select {
			case <-ctx.Done():
				return
			case v := <-executed:
				if res, ok := v.(trade.Result); ok {
					j.writeExecution(ctx, res)
				}
			case v := <-denied:
				if m, ok := v.(map[string]any); ok {
					j.writeDenial(ctx, m)
				}
			case v := <-modeCh:
				if t, ok := v.(mode.Transition); ok {
					j.writeModeTransition(ctx, t)
				}
			case v := <-riskCh:
				if t, ok := v.(risk.Transition); ok {
					j.writeRiskTransition(ctx, t)
				}
			}
		}
	}()
}

func (j *Journal) writeExecution(ctx context.Context, res trade.Result) {
	e := db.Execution{
		ID:             uuid.NewString(),
		StrategyID:     res.StrategyID,
		Pair:           res.Pair,
		ExecutionType:  string(res.ExecutionType),
		Success:        res.Success,
		Value:          res.Value,
		PnL:            res.PnL,
		ExecutionPrice: res.ExecutionPrice,
		FilledQty:      res.FilledQuantity,
		Fees:           res.Fees,
		Reason:         res.Reason,
		ExecutedAt:     res.Timestamp,
	}
	if e.ExecutedAt.IsZero() {
		e.ExecutedAt = time.Now()
	}
	if err := j.db.CreateExecution(ctx, e); err != nil {
		log.Printf("[Journal] execution write failed: %v", err)
	}
}

func (j *Journal) writeDenial(ctx context.Context, m map[string]any) {
	den := db.Denial{
		ID:         uuid.NewString(),
		StrategyID: str(m["strategy_id"]),
		Pair:       str(m["pair"]),
		Source:     str(m["source"]),
		Reason:     str(m["reason"]),
	}
	if err := j.db.CreateDenial(ctx, den); err != nil {
		log.Printf("[Journal] denial write failed: %v", err)
	}
}

func (j *Journal) writeModeTransition(ctx context.Context, t mode.Transition) {
	err := j.db.CreateModeTransition(ctx, db.ModeTransition{
		Mode:       string(t.Mode),
		Reason:     t.Reason,
		OccurredAt: t.Timestamp,
	})
	if err != nil {
		log.Printf("[Journal] mode transition write failed: %v", err)
	}
}

func (j *Journal) writeRiskTransition(ctx context.Context, t risk.Transition) {
	err := j.db.CreateRiskTransition(ctx, db.RiskTransition{
		State:      string(t.State),
		Reason:     t.Reason,
		OccurredAt: t.Timestamp,
	})
	if err != nil {
		log.Printf("[Journal] risk transition write failed: %v", err)
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
