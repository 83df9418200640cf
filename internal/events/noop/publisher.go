package noop

import (
	"context"

	"github.com/rs/zerolog"

	"hydromet/internal/domain"
	"hydromet/internal/port"
)

// Publisher drops commit events. Used when no Kafka brokers are configured.
type Publisher struct {
	logger zerolog.Logger
}

var _ port.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a Publisher that only logs.
func NewPublisher(logger zerolog.Logger) *Publisher {
	return &Publisher{logger: logger}
}

func (p *Publisher) PublishUploadCommitted(_ context.Context, event domain.UploadCommitted) error {
	p.logger.Debug().Str("key", event.Key).Str("kind", string(event.Kind)).Msg("noop: commit event not published")
	return nil
}

func (p *Publisher) Close() error { return nil }
