// Package transfer coordinates a money transfer as a saga over two
// remote ledger calls: debit the origin, credit the destination, and
// compensate the origin when the credit leg fails after the debit
// already landed.
package transfer

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cicerogomeslima/bankmore/internal/domain"
	"github.com/cicerogomeslima/bankmore/internal/idempotency"
	"github.com/cicerogomeslima/bankmore/internal/ledgerclient"
)

// State names one node of the saga state machine. Terminal states are
// DebitFailed, Compensated, CompensationFailed and Done.
type State string

const (
	StateStart              State = "start"
	StateIdempotencyChecked State = "idempotency_checked"
	StateDebitPending       State = "debit_pending"
	StateDebitFailed        State = "debit_failed"
	StateDebitOK            State = "debit_ok"
	StateCreditPending      State = "credit_pending"
	StateCreditFailed       State = "credit_failed"
	StateCompensating       State = "compensating"
	StateCompensated        State = "compensated"
	StateCompensationFailed State = "compensation_failed"
	StateCreditOK           State = "credit_ok"
	StatePersisted          State = "persisted"
	StatePublished          State = "published"
	StateDone               State = "done"
)

// IdempotencyStore is the dedup ledger guarding the transfer endpoint.
type IdempotencyStore interface {
	Begin(ctx context.Context, key, requestHash string) (idempotency.BeginResult, error)
	Complete(ctx context.Context, key string, status int, body []byte) error
}

// LedgerClient is the remote ledger-mutation boundary.
type LedgerClient interface {
	PostMovement(ctx context.Context, accountID, idempotencyKey string, m ledgerclient.MovementRequest) (ledgerclient.MovementResult, error)
}

// Store persists completed transfers.
type Store interface {
	InsertTransfer(ctx context.Context, t domain.Transfer) error
}

// Publisher emits the transfer-completed event, at-least-once.
type Publisher interface {
	Publish(ctx context.Context, ev domain.TransferCompletedEvent) error
}

// Request is one transfer attempt, already authenticated and keyed.
type Request struct {
	Key           string
	OriginID      string
	DestinationID string
	Amount        decimal.Decimal
}

// Outcome is what the caller gets: an HTTP-shaped status and body,
// whether it was replayed from the idempotency store, and the state the
// saga terminated in.
type Outcome struct {
	Status   int
	Body     []byte
	Replayed bool
	State    State
}

type Orchestrator struct {
	idem      IdempotencyStore
	ledger    LedgerClient
	store     Store
	publisher Publisher
	logger    *slog.Logger
}

func NewOrchestrator(idem IdempotencyStore, ledger LedgerClient, store Store, publisher Publisher, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{idem: idem, ledger: ledger, store: store, publisher: publisher, logger: logger}
}

// Execute runs the saga for one request. Errors are returned only for
// infrastructure faults around the idempotency store itself; every
// business outcome, success or failure, arrives as an Outcome.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (Outcome, error) {
	state := StateStart
	advance := func(s State) {
		state = s
		o.logger.Debug("saga transition", "key", req.Key, "state", s)
	}

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		f := domain.InvalidAmount()
		return Outcome{Status: f.Status, Body: f.Body(), State: state}, nil
	}

	hash := idempotency.RequestHash(req.OriginID, req.DestinationID, req.Amount.String())
	begin, err := o.idem.Begin(ctx, req.Key, hash)
	if err != nil {
		return Outcome{}, err
	}

	switch begin.State {
	case idempotency.Conflict:
		f := domain.KeyConflict()
		return Outcome{Status: f.Status, Body: f.Body(), State: state}, nil
	case idempotency.InFlight:
		f := domain.InProgress()
		return Outcome{Status: f.Status, Body: f.Body(), State: state}, nil
	case idempotency.Replay:
		return Outcome{Status: begin.Status, Body: begin.Body, Replayed: true, State: StateDone}, nil
	}
	advance(StateIdempotencyChecked)

	// Debit always precedes credit: a debit failure needs no
	// compensation because nothing has succeeded yet.
	advance(StateDebitPending)
	debit, err := o.ledger.PostMovement(ctx, req.OriginID, idempotency.LegKey(req.Key, "debit"),
		ledgerclient.MovementRequest{RequestID: uuid.NewString(), Amount: req.Amount, Kind: domain.Debit})
	if err != nil {
		// Timeout or transport failure on the debit leg is safe to
		// surface directly; the ledger-side key dedups any retry.
		advance(StateDebitFailed)
		o.logger.Warn("debit leg failed", "key", req.Key, "origin", req.OriginID, "err", err)
		f := domain.Upstream("debit against origin account failed")
		return o.finalize(ctx, req.Key, f.Status, f.Body(), state)
	}
	if !debit.OK() {
		advance(StateDebitFailed)
		return o.finalize(ctx, req.Key, debit.Status, debit.Body, state)
	}
	advance(StateDebitOK)

	advance(StateCreditPending)
	credit, err := o.ledger.PostMovement(ctx, req.DestinationID, idempotency.LegKey(req.Key, "credit"),
		ledgerclient.MovementRequest{RequestID: uuid.NewString(), Amount: req.Amount, Kind: domain.Credit})
	if err != nil || !credit.OK() {
		// A credit timeout is indistinguishable from a lost response,
		// so it compensates like any credit failure. The reversal
		// carries its own derived key; if the credit did land and the
		// saga is retried, the ledger will not reverse twice.
		advance(StateCreditFailed)
		status, body := credit.Status, credit.Body
		if err != nil {
			o.logger.Warn("credit leg failed", "key", req.Key, "destination", req.DestinationID, "err", err)
			f := domain.Upstream("credit against destination account failed")
			status, body = f.Status, f.Body()
		}
		return o.compensate(ctx, req, status, body)
	}
	advance(StateCreditOK)

	t := domain.Transfer{
		ID:            uuid.NewString(),
		OriginID:      req.OriginID,
		DestinationID: req.DestinationID,
		Amount:        req.Amount,
		At:            time.Now().UTC(),
	}
	if err := o.store.InsertTransfer(ctx, t); err != nil {
		o.logger.Error("transfer persist failed after both legs succeeded", "key", req.Key, "err", err)
		f := domain.Upstream("transfer could not be recorded")
		f.Status = http.StatusInternalServerError
		return o.finalize(ctx, req.Key, f.Status, f.Body(), state)
	}
	advance(StatePersisted)

	ev := domain.TransferCompletedEvent{
		TransferID:    t.ID,
		OriginID:      t.OriginID,
		DestinationID: t.DestinationID,
		Amount:        t.Amount,
		At:            t.At,
	}
	if err := o.publisher.Publish(ctx, ev); err != nil {
		// The transfer is durable; losing the event only delays the
		// fee. Surfacing an error here would make a completed transfer
		// look failed, so log and move on.
		o.logger.Error("transfer event publish failed", "transfer", t.ID, "err", err)
	} else {
		advance(StatePublished)
	}

	out, err := o.finalize(ctx, req.Key, http.StatusNoContent, nil, StateDone)
	if err == nil && out.State == StateDone {
		o.logger.Info("transfer completed", "transfer", t.ID, "origin", t.OriginID,
			"destination", t.DestinationID, "amount", t.Amount.String())
	}
	return out, err
}

// compensate reverses the already-applied debit with a credit back to
// the origin, then finalizes the saga with the credit leg's failure.
// The direction is always credit-to-origin: the origin is the only
// account this saga is guaranteed to have taken money from.
func (o *Orchestrator) compensate(ctx context.Context, req Request, creditStatus int, creditBody []byte) (Outcome, error) {
	o.logger.Debug("saga transition", "key", req.Key, "state", StateCompensating)
	rev, err := o.ledger.PostMovement(ctx, req.OriginID, idempotency.LegKey(req.Key, "reversal"),
		ledgerclient.MovementRequest{RequestID: uuid.NewString(), Amount: req.Amount, Kind: domain.Credit})
	if err != nil || !rev.OK() {
		// The origin is debited, not credited, and not reversed. This
		// is a fund-safety violation that needs manual reconciliation,
		// distinct from an ordinary failed transfer.
		o.logger.Error("COMPENSATION FAILED: origin debited without reversal, manual reconciliation required",
			"key", req.Key, "origin", req.OriginID, "amount", req.Amount.String(), "err", err)
		f := domain.NewFailure(domain.FailureCompensation, http.StatusInternalServerError,
			"transfer failed and the reversal of the origin debit also failed")
		return o.finalize(ctx, req.Key, f.Status, f.Body(), StateCompensationFailed)
	}
	return o.finalize(ctx, req.Key, creditStatus, creditBody, StateCompensated)
}

// finalize records the outcome against the idempotency key so every
// future replay returns it verbatim, then hands it to the caller.
func (o *Orchestrator) finalize(ctx context.Context, key string, status int, body []byte, state State) (Outcome, error) {
	if err := o.idem.Complete(ctx, key, status, body); err != nil {
		return Outcome{}, err
	}
	return Outcome{Status: status, Body: body, State: state}, nil
}
