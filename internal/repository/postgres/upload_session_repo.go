package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"hydromet/internal/domain"
	"hydromet/internal/port"
)

type uploadSessionRepo struct {
	db *sqlx.DB
}

// NewUploadSessionRepo creates a new PostgreSQL-backed UploadSessionRepository.
func NewUploadSessionRepo(db *sqlx.DB) port.UploadSessionRepository {
	return &uploadSessionRepo{db: db}
}

func (r *uploadSessionRepo) Create(ctx context.Context, s *domain.UploadSession) error {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	if len(s.Context) == 0 {
		s.Context = []byte("{}")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO upload_sessions
		(id, object_key, kind, file_name, content_type, context, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.Key, s.Kind, s.FileName, s.ContentType, []byte(s.Context), s.Status,
		s.ExpiresAt, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("uploadSessionRepo.Create: %w", err)
	}
	return nil
}

func (r *uploadSessionRepo) GetByKey(ctx context.Context, key string) (*domain.UploadSession, error) {
	var s domain.UploadSession
	err := r.db.GetContext(ctx, &s, "SELECT * FROM upload_sessions WHERE object_key = $1", key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUploadSessionNotFound
		}
		return nil, fmt.Errorf("uploadSessionRepo.GetByKey: %w", err)
	}
	return &s, nil
}

// CommitWithFiles flips the session and inserts the records in one
// transaction. Orphaned sessions may still be committed: their object exists.
func (r *uploadSessionRepo) CommitWithFiles(ctx context.Context, key string, files []domain.DataFile) ([]domain.DataFile, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("uploadSessionRepo.CommitWithFiles begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE upload_sessions SET status = $1, committed_at = $2, updated_at = $2
		 WHERE object_key = $3 AND status IN ($4, $5)`,
		domain.UploadSessionCommitted, now, key,
		domain.UploadSessionPresigned, domain.UploadSessionOrphaned)
	if err != nil {
		return nil, fmt.Errorf("uploadSessionRepo.CommitWithFiles: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("uploadSessionRepo.CommitWithFiles rows: %w", err)
	}
	if rows == 0 {
		return nil, r.commitConflict(ctx, tx, key)
	}

	out := make([]domain.DataFile, len(files))
	copy(out, files)
	for i := range out {
		if err := insertDataFile(ctx, tx, &out[i]); err != nil {
			return nil, fmt.Errorf("uploadSessionRepo.CommitWithFiles insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("uploadSessionRepo.CommitWithFiles commit: %w", err)
	}
	return out, nil
}

// commitConflict explains why the conditional update matched no row.
func (r *uploadSessionRepo) commitConflict(ctx context.Context, tx *sqlx.Tx, key string) error {
	var status domain.UploadSessionStatus
	err := tx.GetContext(ctx, &status, "SELECT status FROM upload_sessions WHERE object_key = $1", key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUploadSessionNotFound
		}
		return fmt.Errorf("uploadSessionRepo.CommitWithFiles status: %w", err)
	}
	if err := status.CommitError(); err != nil {
		return err
	}
	return domain.ErrUploadExpired
}

func (r *uploadSessionRepo) ClaimExpired(ctx context.Context, before time.Time, limit int) ([]domain.UploadSession, error) {
	sessions := []domain.UploadSession{}
	err := r.db.SelectContext(ctx, &sessions,
		`UPDATE upload_sessions SET status = $1, updated_at = NOW()
		 WHERE id IN (
			SELECT id FROM upload_sessions
			WHERE (status = $2 AND expires_at < $3)
			   OR (status = $1 AND updated_at < $3)
			ORDER BY expires_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING *`,
		domain.UploadSessionSweeping, domain.UploadSessionPresigned, before, limit)
	if err != nil {
		return nil, fmt.Errorf("uploadSessionRepo.ClaimExpired: %w", err)
	}
	return sessions, nil
}

func (r *uploadSessionRepo) UpdateStatus(ctx context.Context, key string, status domain.UploadSessionStatus) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE upload_sessions SET status = $1, updated_at = $2 WHERE object_key = $3",
		status, time.Now().UTC(), key)
	if err != nil {
		return fmt.Errorf("uploadSessionRepo.UpdateStatus: %w", err)
	}
	return requireAffected(result)
}
