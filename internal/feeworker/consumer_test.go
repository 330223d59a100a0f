package feeworker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cicerogomeslima/bankmore/internal/domain"
	"github.com/cicerogomeslima/bankmore/internal/ledgerclient"
)

type memFeeStore struct {
	fees      []domain.FeeRecord
	insertErr error
}

func (m *memFeeStore) InsertFee(_ context.Context, f domain.FeeRecord) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.fees = append(m.fees, f)
	return nil
}

type feeLedgerCall struct {
	accountID string
	req       ledgerclient.MovementRequest
}

type stubLedger struct {
	calls  []feeLedgerCall
	result ledgerclient.MovementResult
	err    error
}

func (s *stubLedger) PostMovement(_ context.Context, accountID, _ string, m ledgerclient.MovementRequest) (ledgerclient.MovementResult, error) {
	s.calls = append(s.calls, feeLedgerCall{accountID: accountID, req: m})
	if s.err != nil {
		return ledgerclient.MovementResult{}, s.err
	}
	return s.result, nil
}

func newTestConsumer(store *memFeeStore, ledger *stubLedger) *Consumer {
	return NewConsumer(nil, store, ledger, decimal.RequireFromString("2.00"),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func eventPayload(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(domain.TransferCompletedEvent{
		TransferID:    "tr-1",
		OriginID:      "origin-1",
		DestinationID: "dest-1",
		Amount:        decimal.RequireFromString("10.00"),
		At:            time.Now().UTC(),
	})
	require.NoError(t, err)
	return b
}

func TestHandle_ChargesFeeAgainstOrigin(t *testing.T) {
	store := &memFeeStore{}
	ledger := &stubLedger{result: ledgerclient.MovementResult{Status: http.StatusNoContent}}
	c := newTestConsumer(store, ledger)

	err := c.Handle(context.Background(), eventPayload(t))
	require.NoError(t, err)

	require.Len(t, ledger.calls, 1)
	call := ledger.calls[0]
	assert.Equal(t, "origin-1", call.accountID)
	assert.Equal(t, domain.Debit, call.req.Kind)
	assert.True(t, call.req.Amount.Equal(decimal.RequireFromString("2.00")))

	require.Len(t, store.fees, 1)
	assert.Equal(t, "origin-1", store.fees[0].AccountID)
	assert.True(t, store.fees[0].Amount.Equal(decimal.RequireFromString("2.00")))
}

func TestHandle_UndecodablePayloadAcknowledgedWithoutCharging(t *testing.T) {
	store := &memFeeStore{}
	ledger := &stubLedger{}
	c := newTestConsumer(store, ledger)

	err := c.Handle(context.Background(), []byte("not json"))
	require.NoError(t, err, "poison messages must not wedge the stream")
	assert.Empty(t, ledger.calls)
	assert.Empty(t, store.fees)
}

func TestHandle_LedgerRejectionLeavesEventForRedelivery(t *testing.T) {
	store := &memFeeStore{}
	failure := domain.InactiveAccount()
	ledger := &stubLedger{result: ledgerclient.MovementResult{
		Status: failure.Status,
		Body:   failure.Body(),
	}}
	c := newTestConsumer(store, ledger)

	err := c.Handle(context.Background(), eventPayload(t))
	require.Error(t, err)
	assert.Empty(t, store.fees, "no fee record for a rejected debit")
}

func TestHandle_LedgerTransportErrorPropagates(t *testing.T) {
	store := &memFeeStore{}
	ledger := &stubLedger{err: errors.New("connection refused")}
	c := newTestConsumer(store, ledger)

	err := c.Handle(context.Background(), eventPayload(t))
	require.Error(t, err)
	assert.Empty(t, store.fees)
}

// scriptedSource hands out a fixed message sequence, then cancels the
// run so the loop exits.
type scriptedSource struct {
	msgs    []kafka.Message
	next    int
	commits []int64
	cancel  context.CancelFunc
}

func (s *scriptedSource) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if s.next >= len(s.msgs) {
		s.cancel()
		return kafka.Message{}, ctx.Err()
	}
	m := s.msgs[s.next]
	s.next++
	return m, nil
}

func (s *scriptedSource) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		s.commits = append(s.commits, m.Offset)
	}
	return nil
}

type flakyLedger struct {
	calls    []feeLedgerCall
	failures int
}

func (f *flakyLedger) PostMovement(_ context.Context, accountID, _ string, m ledgerclient.MovementRequest) (ledgerclient.MovementResult, error) {
	f.calls = append(f.calls, feeLedgerCall{accountID: accountID, req: m})
	if f.failures > 0 {
		f.failures--
		return ledgerclient.MovementResult{}, errors.New("connection refused")
	}
	return ledgerclient.MovementResult{Status: http.StatusNoContent}, nil
}

func TestRun_FailedEventRetriedBeforeAnyLaterCommit(t *testing.T) {
	event := func(transferID, originID string) kafka.Message {
		b, err := json.Marshal(domain.TransferCompletedEvent{
			TransferID:    transferID,
			OriginID:      originID,
			DestinationID: "dest-1",
			Amount:        decimal.RequireFromString("10.00"),
			At:            time.Now().UTC(),
		})
		require.NoError(t, err)
		return kafka.Message{Value: b}
	}

	ctx, cancel := context.WithCancel(context.Background())
	m1 := event("tr-1", "origin-1")
	m1.Offset = 7
	m2 := event("tr-2", "origin-2")
	m2.Offset = 8

	source := &scriptedSource{msgs: []kafka.Message{m1, m2}, cancel: cancel}
	store := &memFeeStore{}
	ledger := &flakyLedger{failures: 1}
	c := NewConsumer(source, store, ledger, decimal.RequireFromString("2.00"),
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := c.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// The first event is charged on its second attempt; the second only
	// after that, so its commit can never skip past the failed one.
	require.Len(t, ledger.calls, 3)
	assert.Equal(t, "origin-1", ledger.calls[0].accountID)
	assert.Equal(t, "origin-1", ledger.calls[1].accountID)
	assert.Equal(t, "origin-2", ledger.calls[2].accountID)

	assert.Equal(t, []int64{7, 8}, source.commits)
	require.Len(t, store.fees, 2)
	assert.Equal(t, "origin-1", store.fees[0].AccountID)
	assert.Equal(t, "origin-2", store.fees[1].AccountID)
}

func TestHandle_FeeRecordFailurePropagates(t *testing.T) {
	store := &memFeeStore{insertErr: errors.New("db down")}
	ledger := &stubLedger{result: ledgerclient.MovementResult{Status: http.StatusNoContent}}
	c := newTestConsumer(store, ledger)

	err := c.Handle(context.Background(), eventPayload(t))
	require.Error(t, err)
}
