package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/storefront-api/internal/audit"
)

const auditSchema = `
	CREATE TABLE IF NOT EXISTS rate_limit_rejections (
		id           TEXT PRIMARY KEY,
		operation_id TEXT NOT NULL,
		method       TEXT NOT NULL,
		path         TEXT NOT NULL,
		client_key   TEXT NOT NULL,
		client_ip    TEXT NOT NULL,
		user_agent   TEXT NOT NULL,
		request_id   TEXT,
		count        BIGINT NOT NULL,
		max_requests BIGINT NOT NULL,
		window_ms    BIGINT NOT NULL,
		retry_after  BIGINT NOT NULL,
		rejected_at  TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS rate_limit_rejections_client_key_idx
		ON rate_limit_rejections (client_key, rejected_at);
`

// AuditPostgresStore is a PostgreSQL implementation of audit.Store.
type AuditPostgresStore struct {
	pool *pgxpool.Pool
}

// NewAuditPostgresStore creates a new PostgreSQL-backed audit store.
func NewAuditPostgresStore(pool *pgxpool.Pool) *AuditPostgresStore {
	return &AuditPostgresStore{pool: pool}
}

// EnsureSchema creates the rejections table if it does not exist.
func (p *AuditPostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, auditSchema)

	return err
}

// SaveRejection stores a rejection event. Redelivered events are ignored.
func (p *AuditPostgresStore) SaveRejection(ctx context.Context, event *audit.RejectionEvent) error {
	query := `
		INSERT INTO rate_limit_rejections (
			id, operation_id, method, path, client_key, client_ip, user_agent,
			request_id, count, max_requests, window_ms, retry_after, rejected_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := p.pool.Exec(ctx, query,
		event.ID,
		event.OperationID,
		event.Method,
		event.Path,
		event.ClientKey,
		event.ClientIP,
		event.UserAgent,
		nullableString(event.RequestID),
		event.Count,
		event.MaxRequests,
		event.WindowMs,
		event.RetryAfter,
		event.RejectedAt,
	)

	return err
}

// CountRejections returns how many rejections a client key received since t.
func (p *AuditPostgresStore) CountRejections(ctx context.Context, clientKey string, since time.Time) (int64, error) {
	query := `
		SELECT count(*)
		FROM rate_limit_rejections
		WHERE client_key = $1 AND rejected_at >= $2
	`

	var count int64

	if err := p.pool.QueryRow(ctx, query, clientKey, since).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// Compile-time check.
var _ audit.Store = (*AuditPostgresStore)(nil)
