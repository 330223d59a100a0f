package transfer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/cicerogomeslima/bankmore/internal/domain"
)

// KafkaPublisher emits transfer-completed events. Delivery is
// at-least-once; the fee worker owns redelivery handling.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Publish writes one event keyed by the origin account, keeping events
// for the same account on one partition and therefore in order.
func (p *KafkaPublisher) Publish(ctx context.Context, ev domain.TransferCompletedEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("event marshal: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.OriginID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("event publish: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
