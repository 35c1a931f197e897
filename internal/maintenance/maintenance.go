// Package maintenance keeps the audit log bounded between dispatch passes.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TrimAuditLog clears informational audit rows once a pass has completed
// cleanly: when the most recent row is a success marker, everything except
// success and error rows is purged. Error rows are kept so a failing
// deployment retains its trail.
func TrimAuditLog(ctx context.Context, pool *pgxpool.Pool, table string, logger *slog.Logger) error {
	var lastKind string
	err := pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT type FROM %s ORDER BY timestamp DESC LIMIT 1`, table),
	).Scan(&lastKind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read last audit row: %w", err)
	}

	if lastKind != "success" {
		logger.Debug("Audit trim skipped, last pass did not complete", "last", lastKind)
		return nil
	}

	tag, err := pool.Exec(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE type != 'success' AND type != 'error'`, table))
	if err != nil {
		return fmt.Errorf("trim audit log: %w", err)
	}
	if tag.RowsAffected() > 0 {
		logger.Info("Trimmed audit log", "rows", tag.RowsAffected())
	}
	return nil
}
