package port

import (
	"context"

	"hydromet/internal/domain"
)

// EmailSender defines the contract for operator notifications.
type EmailSender interface {
	SendOrphanReport(ctx context.Context, objects []domain.OrphanedObject) error
}
