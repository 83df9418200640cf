package noop

import (
	"context"

	"github.com/rs/zerolog"

	"hydromet/internal/domain"
	"hydromet/internal/port"
)

type noopSender struct {
	logger zerolog.Logger
}

// NewNoopSender creates a no-op EmailSender that logs orphan reports instead
// of mailing them.
func NewNoopSender(logger zerolog.Logger) port.EmailSender {
	return &noopSender{logger: logger.With().Str("component", "noopEmail").Logger()}
}

func (s *noopSender) SendOrphanReport(_ context.Context, objects []domain.OrphanedObject) error {
	for i := range objects {
		s.logger.Info().
			Str("key", objects[i].Key).
			Str("kind", string(objects[i].Kind)).
			Int64("size", objects[i].Size).
			Bool("deleted", objects[i].Deleted).
			Msg("[NOOP EMAIL] orphaned upload")
	}
	return nil
}
