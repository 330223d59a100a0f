package transfer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cicerogomeslima/bankmore/internal/domain"
)

// PGStore owns the append-only transfers table.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
CREATE TABLE IF NOT EXISTS transfers (
    id             TEXT PRIMARY KEY,
    origin_id      TEXT NOT NULL,
    destination_id TEXT NOT NULL,
    amount         NUMERIC NOT NULL,
    at             TIMESTAMPTZ NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("transfer schema: %w", err)
	}
	return nil
}

func (s *PGStore) InsertTransfer(ctx context.Context, t domain.Transfer) error {
	_, err := s.db.Exec(ctx,
		"INSERT INTO transfers (id, origin_id, destination_id, amount, at) VALUES ($1, $2, $3, $4, $5)",
		t.ID, t.OriginID, t.DestinationID, t.Amount.String(), t.At)
	if err != nil {
		return fmt.Errorf("transfer insert: %w", err)
	}
	return nil
}

// GetTransfer retrieves one persisted transfer.
func (s *PGStore) GetTransfer(ctx context.Context, id string) (*domain.Transfer, error) {
	var t domain.Transfer
	var amount string
	err := s.db.QueryRow(ctx,
		"SELECT id, origin_id, destination_id, amount::text, at FROM transfers WHERE id = $1",
		id).Scan(&t.ID, &t.OriginID, &t.DestinationID, &amount, &t.At)
	if err != nil {
		return nil, err
	}
	if err := t.Amount.Scan(amount); err != nil {
		return nil, fmt.Errorf("transfer amount parse: %w", err)
	}
	return &t, nil
}
