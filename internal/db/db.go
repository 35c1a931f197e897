// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking. The pool is created once per process and
// shared by the dispatch pipeline and the audit sink.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fermicalendar/notifier/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	auditTable := cfg.AuditTableName()
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn, auditTable)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers all statements the dispatch pipeline
// and audit sink use. Prepared statements eliminate parse overhead on the
// hot per-subscriber loop.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn, auditTable string) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Subscribers with push delivery enabled, one row per device.
		"push_subscribers": `
			SELECT
				p.sub_id,
				p.device_id,
				p.endpoint,
				p.send_push_with_notifications,
				s.tags,
				s.notification_day_before,
				s.notification_time,
				s.email
			FROM push AS p
			JOIN subscribers AS s ON p.sub_id = s.id
			ORDER BY p.sub_id, p.device_id`,

		// Dedup ledger
		"sent_push_uids":   "SELECT uid FROM push_sent WHERE sub_id = $1 AND device_id = $2",
		"insert_push_sent": "INSERT INTO push_sent (sub_id, uid, device_id) VALUES ($1, $2, $3)",

		// Audit log
		"insert_audit_log": fmt.Sprintf(
			"INSERT INTO %s (type, message, timestamp) VALUES ($1, $2, $3)", auditTable),
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
