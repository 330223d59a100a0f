// Package ledger holds the account ledger: the append-only movement
// store that is the only source of truth for balances, and the cached
// read path derived from it.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cicerogomeslima/bankmore/internal/domain"
)

// Store is the durable account/movement storage the service writes
// through. *PGStore satisfies it; tests substitute fakes.
type Store interface {
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	GetAccountByNumber(ctx context.Context, number string) (*domain.Account, error)
	AppendMovement(ctx context.Context, m domain.Movement) error
	SumMovements(ctx context.Context, accountID string) (decimal.Decimal, error)
}

// Cache is the shared balance cache collaborator. All methods are
// best-effort; see the cache package.
type Cache interface {
	Get(ctx context.Context, accountID string) ([]byte, bool)
	Set(ctx context.Context, accountID string, body []byte)
	Invalidate(ctx context.Context, accountID string)
}

type Service struct {
	store  Store
	cache  Cache
	logger *slog.Logger
}

func NewService(store Store, cache Cache, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger}
}

// MovementCommand is an authenticated movement request. TargetNumber
// is optional; when present it names an account that may differ from
// the caller's own.
type MovementCommand struct {
	CallerID     string
	TargetNumber string
	Kind         domain.MovementKind
	Amount       decimal.Decimal
}

// ResolveAccount translates an account number to the internal account,
// rejecting unknown and deactivated accounts.
func (s *Service) ResolveAccount(ctx context.Context, number string) (*domain.Account, error) {
	acc, err := s.store.GetAccountByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, domain.InvalidAccount()
		}
		return nil, err
	}
	if !acc.Active {
		return nil, domain.InactiveAccount()
	}
	return acc, nil
}

// RecordMovement applies an authenticated movement. A target account
// other than the caller's own only accepts credits: the caller may put
// money into any active account but may take it out of its own only.
func (s *Service) RecordMovement(ctx context.Context, cmd MovementCommand) (string, error) {
	accountID := cmd.CallerID
	if cmd.TargetNumber != "" {
		target, err := s.ResolveAccount(ctx, cmd.TargetNumber)
		if err != nil {
			return "", err
		}
		if target.ID != cmd.CallerID && cmd.Kind != domain.Credit {
			return "", domain.InvalidType("only credit is allowed on a third-party account")
		}
		accountID = target.ID
	}
	return s.append(ctx, accountID, cmd.Kind, cmd.Amount)
}

// RecordInternalMovement applies a movement on behalf of another
// service, addressed by internal account id. The caller is trusted;
// only account and value validation apply.
func (s *Service) RecordInternalMovement(ctx context.Context, accountID string, kind domain.MovementKind, amount decimal.Decimal) (string, error) {
	return s.append(ctx, accountID, kind, amount)
}

func (s *Service) append(ctx context.Context, accountID string, kind domain.MovementKind, amount decimal.Decimal) (string, error) {
	acc, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return "", domain.InvalidAccount()
		}
		return "", err
	}
	if !acc.Active {
		return "", domain.InactiveAccount()
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return "", domain.InvalidAmount()
	}
	if !kind.Valid() {
		return "", domain.InvalidType("movement kind must be C or D")
	}

	m := domain.Movement{
		ID:        uuid.NewString(),
		AccountID: accountID,
		At:        time.Now().UTC(),
		Kind:      kind,
		Amount:    amount,
	}
	if err := s.store.AppendMovement(ctx, m); err != nil {
		return "", err
	}

	// Invalidate before returning so a read issued after this call
	// never sees the pre-write cached value past its own start.
	s.cache.Invalidate(ctx, accountID)
	return m.ID, nil
}

// Balance serves the read-optimized balance envelope: cached when
// fresh, otherwise recomputed from the movement log and written back
// with the configured TTL. Cache trouble degrades to recomputation.
func (s *Service) Balance(ctx context.Context, accountID string) ([]byte, error) {
	acc, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, domain.InvalidAccount()
		}
		return nil, err
	}
	if !acc.Active {
		return nil, domain.InactiveAccount()
	}

	if body, ok := s.cache.Get(ctx, accountID); ok {
		return body, nil
	}

	sum, err := s.store.SumMovements(ctx, accountID)
	if err != nil {
		return nil, err
	}

	resp := domain.BalanceResponse{
		AccountNumber: acc.Number,
		HolderName:    "N/D",
		AsOf:          time.Now().UTC(),
		Balance:       sum.Round(2),
	}
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("balance marshal: %w", err)
	}

	s.cache.Set(ctx, accountID, body)
	return body, nil
}
