// Package store handles all database and cache interactions.
//
// postgres.go -- pgxpool connection setup and handshake audit queries.
// Creates a connection pool at startup, shared across all handlers.
// All queries use parameterized statements (no string concatenation).
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// The store used by program to connect with Postgres db
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool, pings it, and returns a
// ready-to-use store. Call once at startup from main.go...the returned store
// is safe for concurrent use.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool}, nil
}

// Close shuts down the connection pool and releases all resources.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// CheckHealth pings the database.
func (s *PostgresStore) CheckHealth(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// RecordHandshake inserts one audit row. A zero ID is replaced with a fresh UUID v7.
func (s *PostgresStore) RecordHandshake(ctx context.Context, ev HandshakeEvent) error {
	if ev.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generating event id: %w", err)
		}
		ev.ID = id
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO handshake_events (id, provider, phase, outcome, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.Provider, ev.Phase, ev.Outcome, ev.IPAddress, ev.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("inserting handshake event: %w", err)
	}
	return nil
}

// ListHandshakes returns the newest events for provider, at most limit rows.
// Audit read-back for operators and tests; no request path calls it.
func (s *PostgresStore) ListHandshakes(ctx context.Context, provider string, limit int) ([]HandshakeEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, provider, phase, outcome, ip_address, user_agent, created_at
		FROM handshake_events
		WHERE provider = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		provider, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying handshake events: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (HandshakeEvent, error) {
		var ev HandshakeEvent
		err := row.Scan(&ev.ID, &ev.Provider, &ev.Phase, &ev.Outcome, &ev.IPAddress, &ev.UserAgent, &ev.CreatedAt)
		return ev, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning handshake events: %w", err)
	}
	return events, nil
}

// CleanupHandshakes deletes events older than retention and returns the row count.
func (s *PostgresStore) CleanupHandshakes(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM handshake_events WHERE created_at < $1",
		time.Now().Add(-retention),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old handshake events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// NoopAuditStore is used when DATABASE_URL is unset. Every write is dropped.
type NoopAuditStore struct{}

func (NoopAuditStore) RecordHandshake(context.Context, HandshakeEvent) error { return nil }

// CheckHealth reports ErrAuditDisabled so health checks can tell "off" from "down".
func (NoopAuditStore) CheckHealth(context.Context) error { return ErrAuditDisabled }
