package kafka

import (
	"github.com/rs/zerolog"

	"hydromet/internal/port"
)

// NewPublisherWithWriter exposes the writer seam to tests.
func NewPublisherWithWriter(w messageWriter, logger zerolog.Logger) port.EventPublisher {
	return newPublisher(w, logger)
}

var SerializeToMessage = serializeToMessage
