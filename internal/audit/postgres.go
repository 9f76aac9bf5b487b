package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

const createStmt = `
CREATE TABLE IF NOT EXISTS operation_log (
	id         UUID PRIMARY KEY,
	operation  TEXT NOT NULL,
	details    JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL
)`

// PostgresRecorder persists audit records to an operation_log table.
// Write failures are logged, never surfaced: the audit trail is
// best-effort by contract.
type PostgresRecorder struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRecorder opens the database, verifies connectivity and
// ensures the operation_log table exists.
func NewPostgresRecorder(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresRecorder, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}
	if _, err := db.ExecContext(ctx, createStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("create operation_log: %w", err)
	}
	return &PostgresRecorder{db: db, logger: logger}, nil
}

// Record inserts one row.
func (r *PostgresRecorder) Record(ctx context.Context, operation string, details map[string]any) {
	payload, err := json.Marshal(details)
	if err != nil {
		r.logger.Warn("audit details not serializable", "operation", operation, "error", err)
		payload = []byte("{}")
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO operation_log (id, operation, details, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), operation, payload, time.Now().UTC())
	if err != nil {
		r.logger.Warn("audit insert failed", "operation", operation, "error", err)
	}
}

// Close releases the database handle.
func (r *PostgresRecorder) Close() error { return r.db.Close() }
