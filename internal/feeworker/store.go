package feeworker

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cicerogomeslima/bankmore/internal/domain"
)

// PGStore owns the fees table, written once per processed event.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
CREATE TABLE IF NOT EXISTS fees (
    id         TEXT PRIMARY KEY,
    account_id TEXT NOT NULL,
    at         TIMESTAMPTZ NOT NULL,
    amount     NUMERIC NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("fee schema: %w", err)
	}
	return nil
}

func (s *PGStore) InsertFee(ctx context.Context, f domain.FeeRecord) error {
	_, err := s.db.Exec(ctx,
		"INSERT INTO fees (id, account_id, at, amount) VALUES ($1, $2, $3, $4)",
		f.ID, f.AccountID, f.At, f.Amount.String())
	if err != nil {
		return fmt.Errorf("fee insert: %w", err)
	}
	return nil
}
