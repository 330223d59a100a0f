package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/cicerogomeslima/bankmore/internal/domain"
	"github.com/cicerogomeslima/bankmore/internal/transfer"
)

// Orchestrator runs the transfer saga for one request.
type Orchestrator interface {
	Execute(ctx context.Context, req transfer.Request) (transfer.Outcome, error)
}

type TransferHandler struct {
	orch   Orchestrator
	logger *slog.Logger
}

func NewTransferHandler(orch Orchestrator, logger *slog.Logger) *TransferHandler {
	return &TransferHandler{orch: orch, logger: logger}
}

// TransferRequest is the client payload: move Amount from the caller's
// account to DestinationID.
type TransferRequest struct {
	RequestID     string          `json:"requestId"`
	DestinationID string          `json:"destinationId"`
	Amount        decimal.Decimal `json:"amount"`
}

func (h *TransferHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/transfers"))
	defer timer.ObserveDuration()

	caller := callerID(r)
	if caller == "" {
		respondFailure(w, domain.Unauthorized(), "POST", "/transfers")
		return
	}

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed JSON body"}, "POST", "/transfers")
		return
	}
	if req.DestinationID == "" {
		respondFailure(w, domain.InvalidAccount(), "POST", "/transfers")
		return
	}

	key := idempotencyKey(r, req.RequestID)
	if key == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "missing Idempotency-Key and requestId"}, "POST", "/transfers")
		return
	}

	out, err := h.orch.Execute(r.Context(), transfer.Request{
		Key:           key,
		OriginID:      caller,
		DestinationID: req.DestinationID,
		Amount:        req.Amount,
	})
	if err != nil {
		h.logger.Error("transfer execution failed", "key", key, "err", err)
		respondFailure(w, err, "POST", "/transfers")
		return
	}

	respondStored(w, out.Status, out.Body, "POST", "/transfers")
}
