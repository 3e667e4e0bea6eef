package db

import (
	"context"
	"fmt"
)

// CreateExecution inserts a trade outcome.
func (d *Database) CreateExecution(ctx context.Context, e Execution) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO executions (id, strategy_id, pair, action, execution_type, success,
		        value, pnl, execution_price, filled_qty, fees, reason, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.StrategyID, e.Pair, e.Action, e.ExecutionType, e.Success,
		e.Value, e.PnL, e.ExecutionPrice, e.FilledQty, e.Fees, e.Reason, e.ExecutedAt)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// CreateDenial inserts a gate denial.
func (d *Database) CreateDenial(ctx context.Context, den Denial) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO denials (id, strategy_id, pair, source, reason)
		VALUES (?, ?, ?, ?, ?)
	`, den.ID, den.StrategyID, den.Pair, den.Source, den.Reason)
	if err != nil {
		return fmt.Errorf("insert denial: %w", err)
	}
	return nil
}

// CreateModeTransition inserts an operating-mode change.
func (d *Database) CreateModeTransition(ctx context.Context, t ModeTransition) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO mode_transitions (mode, reason, occurred_at)
		VALUES (?, ?, ?)
	`, t.Mode, t.Reason, t.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert mode transition: %w", err)
	}
	return nil
}

// CreateRiskTransition inserts a risk-state change.
func (d *Database) CreateRiskTransition(ctx context.Context, t RiskTransition) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO risk_transitions (state, reason, occurred_at)
		VALUES (?, ?, ?)
	`, t.State, t.Reason, t.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert risk transition: %w", err)
	}
	return nil
}

// GetExecutions returns the latest executions, newest first.
func (d *Database) GetExecutions(ctx context.Context, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, strategy_id, pair, action, COALESCE(execution_type, ''), success,
		       value, pnl, execution_price, filled_qty, fees, COALESCE(reason, ''), executed_at
		FROM executions
		ORDER BY executed_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var out []Execution
	for rows.Next() {
		var e Execution
		if err := rows.Scan(&e.ID, &e.StrategyID, &e.Pair, &e.Action, &e.ExecutionType, &e.Success,
			&e.Value, &e.PnL, &e.ExecutionPrice, &e.FilledQty, &e.Fees, &e.Reason, &e.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetDenials returns the latest denials, newest first.
func (d *Database) GetDenials(ctx context.Context, limit int) ([]Denial, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, strategy_id, pair, source, reason, created_at
		FROM denials
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query denials: %w", err)
	}
	defer rows.Close()

	var out []Denial
	for rows.Next() {
		var den Denial
		if err := rows.Scan(&den.ID, &den.StrategyID, &den.Pair, &den.Source, &den.Reason, &den.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan denial: %w", err)
		}
		out = append(out, den)
	}
	return out, rows.Err()
}

// GetRiskTransitions returns the risk-state audit trail, oldest first.
func (d *Database) GetRiskTransitions(ctx context.Context, limit int) ([]RiskTransition, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, state, COALESCE(reason, ''), occurred_at
		FROM risk_transitions
		ORDER BY occurred_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query risk transitions: %w", err)
	}
	defer rows.Close()

	var out []RiskTransition
	for rows.Next() {
		var t RiskTransition
		if err := rows.Scan(&t.ID, &t.State, &t.Reason, &t.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan risk transition: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
