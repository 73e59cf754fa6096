package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"LiteratureDigest/internal/domain"
	"LiteratureDigest/internal/ports"
)

const ledgerTable = "digest_runs"

const schema = `CREATE TABLE IF NOT EXISTS digest_runs (
    id          BIGSERIAL PRIMARY KEY,
    started_at  TIMESTAMPTZ NOT NULL,
    subject     TEXT NOT NULL,
    topic       TEXT NOT NULL,
    considered  INTEGER NOT NULL,
    included    INTEGER NOT NULL,
    skipped     INTEGER NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    delivered   BOOLEAN NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresLedger appends one row per topic for every digest run.
type PostgresLedger struct {
	db *sql.DB
}

var _ ports.RunLedger = (*PostgresLedger)(nil)

// NewPostgresLedger wires a sql.DB implementation.
func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Open connects to Postgres using the lib/pq driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the ledger table when missing.
func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	if l.db == nil {
		return nil
	}
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create %s: %w", ledgerTable, err)
	}
	return nil
}

// RecordRun inserts the per-topic accounting of run.
func (l *PostgresLedger) RecordRun(ctx context.Context, run domain.RunSummary) error {
	if l.db == nil || len(run.Topics) == 0 {
		return nil
	}

	query, args, err := buildInsert(run)
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return nil
}

func buildInsert(run domain.RunSummary) (string, []any, error) {
	insert := sq.Insert(ledgerTable).
		Columns("started_at", "subject", "topic", "considered", "included", "skipped", "error", "delivered").
		PlaceholderFormat(sq.Dollar)

	for _, topic := range run.Topics {
		var errText string
		if topic.Err != nil {
			errText = topic.Err.Error()
		}
		insert = insert.Values(
			run.StartedAt,
			run.Subject,
			topic.Keyword,
			topic.Considered,
			topic.Included,
			topic.Skipped,
			errText,
			run.Delivered,
		)
	}

	return insert.ToSql()
}
