// Package feeworker consumes transfer-completed events and posts the
// flat transfer fee against each origin account, decoupled from the
// client-facing request path.
package feeworker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/cicerogomeslima/bankmore/internal/domain"
	"github.com/cicerogomeslima/bankmore/internal/ledgerclient"
)

var (
	eventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fee_events_processed_total",
		Help: "Transfer events successfully charged",
	})
	eventsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fee_events_skipped_total",
		Help: "Transfer events skipped because the payload did not decode",
	})
	chargeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fee_charge_failures_total",
		Help: "Fee postings that failed and were left for redelivery",
	})
)

// FeeStore persists one FeeRecord per processed event.
type FeeStore interface {
	InsertFee(ctx context.Context, f domain.FeeRecord) error
}

// LedgerClient posts the fee debit through the account API.
type LedgerClient interface {
	PostMovement(ctx context.Context, accountID, idempotencyKey string, m ledgerclient.MovementRequest) (ledgerclient.MovementResult, error)
}

// MessageSource is the slice of kafka.Reader the consumer needs.
type MessageSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewReader builds the group consumer. A named group load-balances the
// topic's partitions across worker instances instead of duplicating
// delivery per instance.
func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1,
		MaxBytes: 1 << 20,
		MaxWait:  time.Second,
	})
}

type Consumer struct {
	source MessageSource
	store  FeeStore
	ledger LedgerClient
	fee    decimal.Decimal
	logger *slog.Logger
}

func NewConsumer(source MessageSource, store FeeStore, ledger LedgerClient, fee decimal.Decimal, logger *slog.Logger) *Consumer {
	return &Consumer{source: source, store: store, ledger: ledger, fee: fee, logger: logger}
}

// Run pulls events until ctx is cancelled. Delivery is at-least-once:
// a processed message is committed, a failed one is retried in place
// with backoff, an undecodable one is committed so it cannot wedge the
// stream. Fetching the next message before the current one succeeds
// would advance the reader past it, and any later commit would record
// the group offset beyond the unprocessed event.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.source.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("event fetch failed", "err", err)
			time.Sleep(time.Second)
			continue
		}

		for {
			err := c.Handle(ctx, msg.Value)
			if err == nil {
				break
			}
			chargeFailures.Inc()
			c.logger.Error("fee posting failed, retrying", "offset", msg.Offset, "err", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}

		if err := c.source.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("event commit failed", "offset", msg.Offset, "err", err)
		}
	}
}

// Handle charges the fee for one event payload. A nil return means the
// event may be acknowledged; undecodable payloads return nil because
// retrying them can never succeed.
//
// TODO: key the fee posting by the event's transferId so at-least-once
// redelivery cannot charge the same transfer twice; today each attempt
// carries a fresh request id.
func (c *Consumer) Handle(ctx context.Context, payload []byte) error {
	var ev domain.TransferCompletedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		eventsSkipped.Inc()
		c.logger.Warn("discarding undecodable transfer event", "err", err)
		return nil
	}

	res, err := c.ledger.PostMovement(ctx, ev.OriginID, uuid.NewString(), ledgerclient.MovementRequest{
		RequestID: uuid.NewString(),
		Amount:    c.fee,
		Kind:      domain.Debit,
	})
	if err != nil {
		return err
	}
	if !res.OK() {
		return errors.New("fee debit rejected: " + string(res.Body))
	}

	record := domain.FeeRecord{
		ID:        uuid.NewString(),
		AccountID: ev.OriginID,
		At:        time.Now().UTC(),
		Amount:    c.fee,
	}
	if err := c.store.InsertFee(ctx, record); err != nil {
		return err
	}

	eventsProcessed.Inc()
	c.logger.Info("fee charged", "transfer", ev.TransferID, "account", ev.OriginID,
		"fee", c.fee.String())
	return nil
}
