package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cicerogomeslima/bankmore/internal/domain"
)

var ErrAccountNotFound = errors.New("account not found")

// PGStore owns the accounts and movements tables. Movements are
// append-only; nothing here updates or deletes them.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
CREATE TABLE IF NOT EXISTS accounts (
    id     TEXT PRIMARY KEY,
    number TEXT NOT NULL UNIQUE,
    active BOOLEAN NOT NULL
);
CREATE TABLE IF NOT EXISTS movements (
    id         TEXT PRIMARY KEY,
    account_id TEXT NOT NULL REFERENCES accounts(id),
    at         TIMESTAMPTZ NOT NULL,
    kind       TEXT NOT NULL,
    amount     NUMERIC NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_movements_account ON movements(account_id)`)
	if err != nil {
		return fmt.Errorf("ledger schema: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by internal id.
func (s *PGStore) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.scanAccount(s.db.QueryRow(ctx,
		"SELECT id, number, active FROM accounts WHERE id = $1", id))
}

// GetAccountByNumber retrieves an account by its human-facing number.
func (s *PGStore) GetAccountByNumber(ctx context.Context, number string) (*domain.Account, error) {
	return s.scanAccount(s.db.QueryRow(ctx,
		"SELECT id, number, active FROM accounts WHERE number = $1", number))
}

func (s *PGStore) scanAccount(row pgx.Row) (*domain.Account, error) {
	var acc domain.Account
	if err := row.Scan(&acc.ID, &acc.Number, &acc.Active); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("account lookup: %w", err)
	}
	return &acc, nil
}

// AppendMovement inserts one ledger entry.
func (s *PGStore) AppendMovement(ctx context.Context, m domain.Movement) error {
	_, err := s.db.Exec(ctx,
		"INSERT INTO movements (id, account_id, at, kind, amount) VALUES ($1, $2, $3, $4, $5)",
		m.ID, m.AccountID, m.At, string(m.Kind), m.Amount.String())
	if err != nil {
		return fmt.Errorf("movement insert: %w", err)
	}
	return nil
}

// SumMovements recomputes the authoritative balance: credits minus
// debits over every movement of the account, at full precision.
func (s *PGStore) SumMovements(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var raw string
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(CASE WHEN kind = 'C' THEN amount ELSE -amount END), 0)::text
		   FROM movements WHERE account_id = $1`,
		accountID).Scan(&raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance sum: %w", err)
	}
	sum, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance sum parse: %w", err)
	}
	return sum, nil
}
