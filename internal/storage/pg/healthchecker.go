package pg

import (
	"context"
	"log/slog"
)

// HealthChecker reports healthy when the database answers and the grade ledger schema is migrated.
type HealthChecker struct {
	pool *ConnectionPool
}

func NewHealthChecker(pool *ConnectionPool) *HealthChecker {
	return &HealthChecker{
		pool: pool,
	}
}

func (hc *HealthChecker) Healthy(ctx context.Context) bool {
	if hc.pool == nil {
		return false
	}

	if err := hc.pool.Ping(ctx); err != nil {
		slog.Warn("Postgres ping failed", "error", err)
		return false
	}

	var migrated bool
	err := hc.pool.conn.QueryRow(ctx, `SELECT to_regclass('grade_entries') IS NOT NULL`).Scan(&migrated)
	if err != nil || !migrated {
		slog.Warn("Grade ledger schema missing", "error", err)
		return false
	}
	return true
}
