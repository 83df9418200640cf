// Package kafka publishes commit events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"hydromet/internal/config"
	"hydromet/internal/domain"
	"hydromet/internal/port"
)

// messageWriter is the part of kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type publisher struct {
	writer messageWriter
	logger zerolog.Logger
}

// NewPublisher creates a producer for the configured commit topic.
func NewPublisher(cfg config.KafkaConfig, logger zerolog.Logger) port.EventPublisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return newPublisher(w, logger)
}

func newPublisher(w messageWriter, logger zerolog.Logger) *publisher {
	return &publisher{writer: w, logger: logger.With().Str("component", "kafkaPublisher").Logger()}
}

func (p *publisher) PublishUploadCommitted(ctx context.Context, event domain.UploadCommitted) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafkaPublisher.PublishUploadCommitted: %w", err)
	}
	p.logger.Debug().Str("key", event.Key).Str("kind", string(event.Kind)).Msg("commit event published")
	return nil
}

func (p *publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an UploadCommitted event keyed by object key,
// so every event for one key lands on the same partition.
func serializeToMessage(event domain.UploadCommitted) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize commit event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(event.Kind)},
			{Key: "committed_at", Value: []byte(event.CommittedAt.UTC().Format(time.RFC3339))},
			{Key: "legacy", Value: []byte(strconv.FormatBool(event.Legacy))},
		},
	}, nil
}
