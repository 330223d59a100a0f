package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cicerogomeslima/bankmore/internal/domain"
	"github.com/cicerogomeslima/bankmore/internal/transfer"
)

type stubOrchestrator struct {
	requests []transfer.Request
	outcome  transfer.Outcome
	err      error
}

func (s *stubOrchestrator) Execute(_ context.Context, req transfer.Request) (transfer.Outcome, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return transfer.Outcome{}, s.err
	}
	return s.outcome, nil
}

func transferBody(t *testing.T, requestID, destination, amount string) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(TransferRequest{
		RequestID:     requestID,
		DestinationID: destination,
		Amount:        decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func TestCreateTransfer_PassesRequestAndWritesOutcome(t *testing.T) {
	orch := &stubOrchestrator{outcome: transfer.Outcome{Status: http.StatusNoContent}}
	h := NewTransferHandler(orch, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers",
		transferBody(t, "req-1", "dest-1", "10.00"))
	req.Header.Set("X-Account-Id", "origin-1")
	req.Header.Set("Idempotency-Key", "k1")
	rec := httptest.NewRecorder()
	h.CreateTransfer(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())

	require.Len(t, orch.requests, 1)
	got := orch.requests[0]
	assert.Equal(t, "k1", got.Key)
	assert.Equal(t, "origin-1", got.OriginID)
	assert.Equal(t, "dest-1", got.DestinationID)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("10.00")))
}

func TestCreateTransfer_MissingIdentityForbidden(t *testing.T) {
	orch := &stubOrchestrator{}
	h := NewTransferHandler(orch, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers",
		transferBody(t, "req-1", "dest-1", "10.00"))
	rec := httptest.NewRecorder()
	h.CreateTransfer(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, orch.requests)
}

func TestCreateTransfer_MissingDestinationRejected(t *testing.T) {
	orch := &stubOrchestrator{}
	h := NewTransferHandler(orch, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers",
		transferBody(t, "req-1", "", "10.00"))
	req.Header.Set("X-Account-Id", "origin-1")
	rec := httptest.NewRecorder()
	h.CreateTransfer(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var f domain.Failure
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &f))
	assert.Equal(t, domain.FailureInvalidAccount, f.Kind)
	assert.Empty(t, orch.requests)
}

func TestCreateTransfer_RequestIDServesAsKeyFallback(t *testing.T) {
	orch := &stubOrchestrator{outcome: transfer.Outcome{Status: http.StatusNoContent}}
	h := NewTransferHandler(orch, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers",
		transferBody(t, "req-1", "dest-1", "10.00"))
	req.Header.Set("X-Account-Id", "origin-1")
	rec := httptest.NewRecorder()
	h.CreateTransfer(rec, req)

	require.Len(t, orch.requests, 1)
	assert.Equal(t, "req-1", orch.requests[0].Key)
}

func TestCreateTransfer_OutcomeBodyForwardedVerbatim(t *testing.T) {
	failure := domain.InactiveAccount()
	orch := &stubOrchestrator{outcome: transfer.Outcome{
		Status: failure.Status,
		Body:   failure.Body(),
	}}
	h := NewTransferHandler(orch, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers",
		transferBody(t, "req-1", "dest-1", "10.00"))
	req.Header.Set("X-Account-Id", "origin-1")
	rec := httptest.NewRecorder()
	h.CreateTransfer(rec, req)

	assert.Equal(t, failure.Status, rec.Code)
	assert.Equal(t, string(failure.Body()), rec.Body.String())
}
