package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Audit record kinds.
const (
	AuditInfo    = "info"
	AuditSuccess = "success"
	AuditError   = "error"
)

// DBAudit records pass milestones in the audit table through the shared
// pool. Write failures are logged and swallowed: the audit trail must never
// take down a dispatch pass.
type DBAudit struct {
	pool   *pgxpool.Pool
	loc    *time.Location
	logger *slog.Logger
}

// NewDBAudit creates an audit sink on the shared connection pool.
func NewDBAudit(pool *pgxpool.Pool, loc *time.Location, logger *slog.Logger) *DBAudit {
	if logger == nil {
		logger = slog.Default()
	}
	return &DBAudit{pool: pool, loc: loc, logger: logger}
}

// Record writes one audit row.
func (a *DBAudit) Record(ctx context.Context, kind, message string) {
	if _, err := a.pool.Exec(ctx, "insert_audit_log", kind, message, time.Now().In(a.loc)); err != nil {
		a.logger.Warn("Audit write failed", "kind", kind, "error", err)
	}
}

// NopAudit discards all records. Used by dry runs and tests.
type NopAudit struct{}

func (NopAudit) Record(context.Context, string, string) {}
