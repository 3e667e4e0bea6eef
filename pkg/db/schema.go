package db

import (
	"database/sql"
	"fmt"
)

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS executions (
    id TEXT PRIMARY KEY,
    strategy_id TEXT NOT NULL,
    pair TEXT NOT NULL,
    action TEXT NOT NULL,
    execution_type TEXT,
    success INTEGER NOT NULL,
    value REAL DEFAULT 0,
    pnl REAL DEFAULT 0,
    execution_price REAL DEFAULT 0,
    filled_qty REAL DEFAULT 0,
    fees REAL DEFAULT 0,
    reason TEXT,
    executed_at DATETIME NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS denials (
    id TEXT PRIMARY KEY,
    strategy_id TEXT NOT NULL,
    pair TEXT NOT NULL,
    source TEXT NOT NULL,
    reason TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS mode_transitions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    mode TEXT NOT NULL,
    reason TEXT,
    occurred_at DATETIME NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS risk_transitions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    state TEXT NOT NULL,
    reason TEXT,
    occurred_at DATETIME NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_executions_strategy ON executions(strategy_id, executed_at);
CREATE INDEX IF NOT EXISTS idx_denials_strategy ON denials(strategy_id, created_at);
`

// Migrate applies the schema. Idempotent.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
