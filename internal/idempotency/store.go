package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PGStore is the postgres-backed idempotency store. Each service points
// it at its own database, which partitions the keyspace per logical
// operation.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// EnsureSchema creates the records table if absent.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
CREATE TABLE IF NOT EXISTS idempotency_records (
    key           TEXT PRIMARY KEY,
    request_hash  TEXT NOT NULL,
    status_code   INT NOT NULL,
    response_body BYTEA,
    created_at    TIMESTAMPTZ NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("idempotency schema: %w", err)
	}
	return nil
}

// Begin reserves key for this request or classifies the existing
// record. The INSERT is the single atomic create-if-absent step: when
// two callers race on a brand-new key, the primary-key constraint lets
// exactly one win; the loser re-reads the winner's row.
func (s *PGStore) Begin(ctx context.Context, key, requestHash string) (BeginResult, error) {
	_, err := s.db.Exec(ctx,
		"INSERT INTO idempotency_records (key, request_hash, status_code, response_body, created_at) VALUES ($1, $2, $3, NULL, $4)",
		key, requestHash, StatusReserved, time.Now().UTC())
	if err == nil {
		return BeginResult{State: Fresh}, nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return BeginResult{}, fmt.Errorf("idempotency reservation: %w", err)
	}

	var storedHash string
	var status int
	var body []byte
	err = s.db.QueryRow(ctx,
		"SELECT request_hash, status_code, response_body FROM idempotency_records WHERE key = $1",
		key).Scan(&storedHash, &status, &body)
	if err != nil {
		if err == pgx.ErrNoRows {
			// Row vanished between INSERT and SELECT; keys are never
			// deleted, so this is a store fault.
			return BeginResult{}, fmt.Errorf("idempotency record for %q disappeared", key)
		}
		return BeginResult{}, fmt.Errorf("idempotency lookup: %w", err)
	}

	if storedHash != requestHash {
		return BeginResult{State: Conflict}, nil
	}
	if status == StatusReserved {
		return BeginResult{State: InFlight}, nil
	}
	return BeginResult{State: Replay, Status: status, Body: body}, nil
}

// Complete finalizes a reserved key with the outcome that every replay
// of the same request will return verbatim.
func (s *PGStore) Complete(ctx context.Context, key string, status int, body []byte) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE idempotency_records SET status_code = $1, response_body = $2 WHERE key = $3",
		status, body, key)
	if err != nil {
		return fmt.Errorf("idempotency finalize: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("idempotency finalize: no reservation for key %q", key)
	}
	return nil
}
