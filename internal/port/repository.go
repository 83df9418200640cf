package port

import (
	"context"
	"time"

	"hydromet/internal/domain"
)

// UploadSessionRepository persists presigned keys until they are committed
// or swept.
type UploadSessionRepository interface {
	Create(ctx context.Context, session *domain.UploadSession) error
	GetByKey(ctx context.Context, key string) (*domain.UploadSession, error)
	// CommitWithFiles atomically flips a presigned session to committed and
	// inserts its records. It returns domain.ErrAlreadyCommitted when another
	// commit won the race.
	CommitWithFiles(ctx context.Context, key string, files []domain.DataFile) ([]domain.DataFile, error)
	// ClaimExpired moves up to limit presigned sessions that expired before
	// the cutoff into the sweeping state and returns them. Sweeping claims
	// last touched before the cutoff are reclaimed too.
	ClaimExpired(ctx context.Context, before time.Time, limit int) ([]domain.UploadSession, error)
	UpdateStatus(ctx context.Context, key string, status domain.UploadSessionStatus) error
}

// DataFileRepository defines the contract for data-file persistence.
type DataFileRepository interface {
	Create(ctx context.Context, file *domain.DataFile) error
	GetByID(ctx context.Context, kind domain.FileKind, id int64) (*domain.DataFile, error)
	List(ctx context.Context, filter domain.DataFileFilter) ([]domain.DataFile, int, error)
	Update(ctx context.Context, file *domain.DataFile) error
	Delete(ctx context.Context, kind domain.FileKind, id int64) error
	Ping(ctx context.Context) error
}
