package port

import (
	"context"

	"hydromet/internal/domain"
)

// EventPublisher announces committed uploads to downstream consumers.
type EventPublisher interface {
	PublishUploadCommitted(ctx context.Context, event domain.UploadCommitted) error
	Close() error
}
