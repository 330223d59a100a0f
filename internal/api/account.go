package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/cicerogomeslima/bankmore/internal/domain"
	"github.com/cicerogomeslima/bankmore/internal/idempotency"
	"github.com/cicerogomeslima/bankmore/internal/ledger"
)

// LedgerService is the ledger surface the account handlers expose.
type LedgerService interface {
	ResolveAccount(ctx context.Context, number string) (*domain.Account, error)
	RecordMovement(ctx context.Context, cmd ledger.MovementCommand) (string, error)
	RecordInternalMovement(ctx context.Context, accountID string, kind domain.MovementKind, amount decimal.Decimal) (string, error)
	Balance(ctx context.Context, accountID string) ([]byte, error)
}

// IdempotencyStore is the dedup ledger shared by the mutating handlers.
type IdempotencyStore interface {
	Begin(ctx context.Context, key, requestHash string) (idempotency.BeginResult, error)
	Complete(ctx context.Context, key string, status int, body []byte) error
}

type AccountHandler struct {
	svc    LedgerService
	idem   IdempotencyStore
	logger *slog.Logger
}

func NewAccountHandler(svc LedgerService, idem IdempotencyStore, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{svc: svc, idem: idem, logger: logger}
}

// MovementRequest is the authenticated movement payload. AccountNumber
// is optional and names a target that may differ from the caller's own
// account.
type MovementRequest struct {
	RequestID     string              `json:"requestId"`
	AccountNumber string              `json:"accountNumber,omitempty"`
	Amount        decimal.Decimal     `json:"amount"`
	Kind          domain.MovementKind `json:"kind"`
}

// InternalMovementRequest is the service-to-service movement payload,
// addressed by internal account id in the path.
type InternalMovementRequest struct {
	RequestID string              `json:"requestId"`
	Amount    decimal.Decimal     `json:"amount"`
	Kind      domain.MovementKind `json:"kind"`
}

func (h *AccountHandler) CreateMovement(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/movements"))
	defer timer.ObserveDuration()

	caller := callerID(r)
	if caller == "" {
		respondFailure(w, domain.Unauthorized(), "POST", "/movements")
		return
	}

	var req MovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed JSON body"}, "POST", "/movements")
		return
	}

	key := idempotencyKey(r, req.RequestID)
	if key == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "missing Idempotency-Key and requestId"}, "POST", "/movements")
		return
	}

	hash := idempotency.RequestHash(req.AccountNumber, req.Amount.String(), string(req.Kind), caller)
	h.withIdempotency(w, r, key, hash, "/movements", func(ctx context.Context) (int, []byte, error) {
		_, err := h.svc.RecordMovement(ctx, ledger.MovementCommand{
			CallerID:     caller,
			TargetNumber: req.AccountNumber,
			Kind:         req.Kind,
			Amount:       req.Amount,
		})
		if err != nil {
			return 0, nil, err
		}
		return http.StatusNoContent, nil, nil
	})
}

func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("GET", "/balance"))
	defer timer.ObserveDuration()

	caller := callerID(r)
	if caller == "" {
		respondFailure(w, domain.Unauthorized(), "GET", "/balance")
		return
	}

	body, err := h.svc.Balance(r.Context(), caller)
	if err != nil {
		respondFailure(w, err, "GET", "/balance")
		return
	}
	respondStored(w, http.StatusOK, body, "GET", "/balance")
}

// ResolveAccountID is the internal account-registry endpoint: account
// number in, internal id out.
func (h *AccountHandler) ResolveAccountID(w http.ResponseWriter, r *http.Request) {
	number := mux.Vars(r)["number"]

	acc, err := h.svc.ResolveAccount(r.Context(), number)
	if err != nil {
		respondFailure(w, err, "GET", "/internal/accounts/{number}/id")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"accountId": acc.ID}, "GET", "/internal/accounts/{number}/id")
}

// CreateInternalMovement is the remote ledger-mutation boundary used by
// the transfer saga and the fee worker. It dedups on its own keyspace
// so a retried or compensating call never applies twice.
func (h *AccountHandler) CreateInternalMovement(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/internal/movements"))
	defer timer.ObserveDuration()

	accountID := mux.Vars(r)["id"]

	var req InternalMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed JSON body"}, "POST", "/internal/movements")
		return
	}

	key := idempotencyKey(r, req.RequestID)
	if key == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "missing Idempotency-Key and requestId"}, "POST", "/internal/movements")
		return
	}

	hash := idempotency.RequestHash(accountID, req.Amount.String(), string(req.Kind))
	h.withIdempotency(w, r, key, hash, "/internal/movements", func(ctx context.Context) (int, []byte, error) {
		_, err := h.svc.RecordInternalMovement(ctx, accountID, req.Kind, req.Amount)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusNoContent, nil, nil
	})
}

// withIdempotency wraps a mutating operation in the Begin/Complete
// protocol: fresh keys execute and record their outcome, replays return
// the recorded outcome verbatim, conflicts never execute.
func (h *AccountHandler) withIdempotency(w http.ResponseWriter, r *http.Request, key, hash, endpoint string, op func(ctx context.Context) (int, []byte, error)) {
	begin, err := h.idem.Begin(r.Context(), key, hash)
	if err != nil {
		h.logger.Error("idempotency begin failed", "key", key, "err", err)
		respondFailure(w, err, r.Method, endpoint)
		return
	}

	switch begin.State {
	case idempotency.Conflict:
		respondFailure(w, domain.KeyConflict(), r.Method, endpoint)
		return
	case idempotency.InFlight:
		respondFailure(w, domain.InProgress(), r.Method, endpoint)
		return
	case idempotency.Replay:
		respondStored(w, begin.Status, begin.Body, r.Method, endpoint)
		return
	}

	status, body, err := op(r.Context())
	if err != nil {
		var f *domain.Failure
		if !errors.As(err, &f) {
			h.logger.Error("movement failed", "key", key, "err", err)
			f = domain.NewFailure(domain.FailureUpstream, http.StatusInternalServerError, "internal error")
		}
		status, body = f.Status, f.Body()
	}

	if err := h.idem.Complete(r.Context(), key, status, body); err != nil {
		h.logger.Error("idempotency finalize failed", "key", key, "err", err)
		respondFailure(w, err, r.Method, endpoint)
		return
	}
	respondStored(w, status, body, r.Method, endpoint)
}
