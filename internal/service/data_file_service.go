package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"hydromet/internal/config"
	"hydromet/internal/domain"
	"hydromet/internal/export"
	"hydromet/internal/observability"
	"hydromet/internal/port"
)

const exportPageSize = 500

// DataFileInput is the DTO for creating or updating a data-file record.
// Nil fields are left unchanged on update.
type DataFileInput struct {
	StormID     *int64     `json:"storm_id,omitempty"`
	ReservoirID *int64     `json:"reservoir_id,omitempty"`
	S2SID       *int64     `json:"s2s_id,omitempty"`
	DataType    *string    `json:"data_type,omitempty"`
	IssuedTime  *time.Time `json:"issued_time,omitempty"`
	FromTime    *time.Time `json:"from_time,omitempty"`
	ToTime      *time.Time `json:"to_time,omitempty"`
	AddedTime   *time.Time `json:"added_time,omitempty"`
	UpdatedTime *time.Time `json:"updated_time,omitempty"`
	FilePath    *string    `json:"file_path,omitempty"`
	FileName    *string    `json:"file_name,omitempty"`
	ContentType *string    `json:"content_type,omitempty"`
}

// DataFileWithURL pairs a record with a time-limited download link.
type DataFileWithURL struct {
	domain.DataFile
	DownloadURL string `json:"download_url,omitempty"`
}

// DataFileService defines CRUD and export for data-file resources.
type DataFileService interface {
	List(ctx context.Context, filter domain.DataFileFilter) ([]domain.DataFile, int, error)
	Create(ctx context.Context, kind domain.FileKind, input DataFileInput) (*domain.DataFile, error)
	Get(ctx context.Context, kind domain.FileKind, id int64) (*DataFileWithURL, error)
	Update(ctx context.Context, kind domain.FileKind, id int64, input DataFileInput) (*domain.DataFile, error)
	Delete(ctx context.Context, kind domain.FileKind, id int64) error
	Export(ctx context.Context, filter domain.DataFileFilter, format domain.ExportFormat, w io.Writer) error
}

type dataFileService struct {
	files    port.DataFileRepository
	sessions port.UploadSessionRepository
	storage  port.ObjectStorage
	events   port.EventPublisher
	metrics  *observability.Metrics
	cfg      *config.StorageConfig
	clock    clockwork.Clock
	logger   zerolog.Logger
}

// NewDataFileService creates a new DataFileService implementation.
func NewDataFileService(
	files port.DataFileRepository,
	sessions port.UploadSessionRepository,
	storage port.ObjectStorage,
	events port.EventPublisher,
	metrics *observability.Metrics,
	cfg *config.StorageConfig,
	clock clockwork.Clock,
	logger zerolog.Logger,
) DataFileService {
	return &dataFileService{
		files:    files,
		sessions: sessions,
		storage:  storage,
		events:   events,
		metrics:  metrics,
		cfg:      cfg,
		clock:    clock,
		logger:   logger.With().Str("component", "dataFileService").Logger(),
	}
}

func (s *dataFileService) List(ctx context.Context, filter domain.DataFileFilter) ([]domain.DataFile, int, error) {
	if !filter.Kind.Valid() {
		return nil, 0, domain.ErrNotFound
	}
	return s.files.List(ctx, filter)
}

// Create records metadata for kind. When file_path names a key handed out by
// a presign, the upload session is committed in the same transaction.
func (s *dataFileService) Create(ctx context.Context, kind domain.FileKind, input DataFileInput) (*domain.DataFile, error) {
	now := s.clock.Now().UTC()
	file := domain.DataFile{Kind: kind}
	applyInput(&file, input)
	if err := s.prepare(&file, now, true); err != nil {
		return nil, err
	}

	if file.FilePath == "" {
		if err := s.files.Create(ctx, &file); err != nil {
			return nil, err
		}
		s.logger.Info().Str("kind", string(kind)).Int64("record_id", file.ID).Msg("metadata record created")
		return &file, nil
	}

	session, err := s.sessions.GetByKey(ctx, file.FilePath)
	switch {
	case errors.Is(err, domain.ErrUploadSessionNotFound):
		// Key managed outside the presign flow.
		if err := s.files.Create(ctx, &file); err != nil {
			return nil, err
		}
		return &file, nil
	case err != nil:
		return nil, err
	}

	if err := matchSession(session, &file); err != nil {
		s.metrics.CommitTotal.WithLabelValues(string(kind), "error").Inc()
		s.logger.Warn().Err(err).Str("key", file.FilePath).Str("kind", string(kind)).Msg("commit rejected")
		return nil, err
	}
	info, err := s.storage.Stat(ctx, s.cfg.Bucket, file.FilePath)
	if err != nil {
		return nil, err
	}
	if file.FileName == "" {
		file.FileName = session.FileName
	}
	if file.ContentType == "" {
		file.ContentType = session.ContentType
	}
	file.FileSize = info.Size

	items, err := s.sessions.CommitWithFiles(ctx, file.FilePath, []domain.DataFile{file})
	if err != nil {
		s.metrics.CommitTotal.WithLabelValues(string(kind), "error").Inc()
		return nil, err
	}
	created := items[0]
	s.metrics.CommitTotal.WithLabelValues(string(kind), "success").Inc()
	s.logger.Info().Str("key", created.FilePath).Str("kind", string(kind)).Int64("record_id", created.ID).
		Msg("upload committed through resource endpoint")
	publishCommitted(ctx, s.events, s.metrics, s.logger, &created, false, now)
	return &created, nil
}

func (s *dataFileService) Get(ctx context.Context, kind domain.FileKind, id int64) (*DataFileWithURL, error) {
	file, err := s.files.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	out := &DataFileWithURL{DataFile: *file}
	if file.FilePath != "" {
		url, err := s.storage.GetPresignedURL(ctx, s.cfg.Bucket, file.FilePath, int64(s.cfg.PresignExpiry/time.Second))
		if err != nil {
			return nil, fmt.Errorf("dataFileService.Get url: %w", err)
		}
		out.DownloadURL = url
	}
	return out, nil
}

func (s *dataFileService) Update(ctx context.Context, kind domain.FileKind, id int64, input DataFileInput) (*domain.DataFile, error) {
	file, err := s.files.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	applyInput(file, input)
	if err := s.prepare(file, s.clock.Now().UTC(), false); err != nil {
		return nil, err
	}
	if err := s.files.Update(ctx, file); err != nil {
		return nil, err
	}
	return file, nil
}

// Delete removes the blob before the record so a failed storage delete
// leaves the record pointing at a live object.
func (s *dataFileService) Delete(ctx context.Context, kind domain.FileKind, id int64) error {
	file, err := s.files.GetByID(ctx, kind, id)
	if err != nil {
		return err
	}
	s.logger.Info().Str("kind", string(kind)).Int64("record_id", id).Str("key", file.FilePath).Msg("deleting data file")

	if file.FilePath != "" {
		if err := s.storage.Delete(ctx, s.cfg.Bucket, file.FilePath); err != nil {
			s.logger.Error().Err(err).Str("key", file.FilePath).Msg("failed to delete from storage")
			return fmt.Errorf("deleting from storage: %w", err)
		}
	}
	return s.files.Delete(ctx, kind, id)
}

func (s *dataFileService) Export(
	ctx context.Context, filter domain.DataFileFilter, format domain.ExportFormat, w io.Writer,
) error {
	if !filter.Kind.Valid() {
		return domain.ErrNotFound
	}
	out, err := export.New(format, filter.Kind, w)
	if err != nil {
		return err
	}
	if err := out.WriteHeader(); err != nil {
		_ = out.Close()
		return err
	}

	filter.Limit = exportPageSize
	for filter.Offset = 0; ; filter.Offset += exportPageSize {
		files, total, err := s.files.List(ctx, filter)
		if err != nil {
			_ = out.Close()
			return err
		}
		if err := out.WriteFiles(files); err != nil {
			_ = out.Close()
			return err
		}
		if len(files) < exportPageSize || filter.Offset+len(files) >= total {
			break
		}
	}
	return out.Close()
}

// prepare validates the per-kind context and fills defaulted fields.
func (s *dataFileService) prepare(file *domain.DataFile, now time.Time, creating bool) error {
	switch {
	case file.Kind.IsStorm():
		if file.StormID == nil || *file.StormID <= 0 {
			return fmt.Errorf("%w: storm_id is required", domain.ErrInvalidContext)
		}
		file.DataType = string(file.Kind.StormDataType())
		if creating && file.Kind == domain.FileKindBestTrack && strings.TrimSpace(file.FilePath) == "" {
			return fmt.Errorf("%w: besttrack records need a file_path", domain.ErrInvalidContext)
		}
	case file.Kind == domain.FileKindReservoirOperation:
		if file.ReservoirID == nil || *file.ReservoirID <= 0 {
			return fmt.Errorf("%w: reservoir_id is required", domain.ErrInvalidContext)
		}
		if file.FromTime != nil && file.ToTime != nil && file.ToTime.Before(*file.FromTime) {
			return fmt.Errorf("%w: to_time before from_time", domain.ErrInvalidContext)
		}
	case file.Kind == domain.FileKindS2S:
		if file.S2SID == nil || *file.S2SID <= 0 {
			return fmt.Errorf("%w: s2s_id is required", domain.ErrInvalidContext)
		}
	default:
		return domain.ErrNotFound
	}

	if file.Kind == domain.FileKindReservoirOperation || file.Kind == domain.FileKindS2S {
		if creating && file.AddedTime == nil {
			file.AddedTime = &now
		}
		file.UpdatedTime = &now
	}

	if file.FilePath != "" {
		key, err := cleanKey(file.FilePath)
		if err != nil {
			return err
		}
		file.FilePath = key
		if file.FileName == "" {
			file.FileName = path.Base(key)
		}
	}
	return nil
}

// matchSession checks a presigned key against the record about to claim it:
// the session must come from the presign family of the record's kind, still
// be committable, and carry the same context.
func matchSession(session *domain.UploadSession, file *domain.DataFile) error {
	if session.Kind != file.Kind.UploadKind() {
		return domain.ErrKindMismatch
	}
	if err := session.Status.CommitError(); err != nil {
		return err
	}
	uc, err := session.DecodeContext()
	if err != nil {
		return domain.ErrInvalidContext
	}

	switch {
	case file.Kind.IsStorm():
		if uc.DataType != "" && !strings.EqualFold(uc.DataType, file.DataType) {
			return fmt.Errorf("%w: key was presigned for %s data", domain.ErrKindMismatch, uc.DataType)
		}
		if uc.StormID != nil && *uc.StormID != *file.StormID {
			return fmt.Errorf("%w: storm_id %d was presigned as %d",
				domain.ErrInvalidContext, *file.StormID, *uc.StormID)
		}
		if uc.IssuedDate == "" {
			break
		}
		if file.IssuedTime == nil {
			issued, err := domain.ParseIssuedHour(uc.IssuedDate)
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrInvalidContext, err)
			}
			file.IssuedTime = &issued
		} else if got := domain.FormatIssuedHour(*file.IssuedTime); got != uc.IssuedDate {
			return fmt.Errorf("%w: issued hour %s was presigned as %s",
				domain.ErrInvalidContext, got, uc.IssuedDate)
		}
	case file.Kind == domain.FileKindReservoirOperation:
		if uc.ReservoirID != nil && *uc.ReservoirID != *file.ReservoirID {
			return fmt.Errorf("%w: reservoir_id %d was presigned as %d",
				domain.ErrInvalidContext, *file.ReservoirID, *uc.ReservoirID)
		}
	case file.Kind == domain.FileKindS2S:
		if uc.S2SID != nil && *uc.S2SID != *file.S2SID {
			return fmt.Errorf("%w: s2s_id %d was presigned as %d",
				domain.ErrInvalidContext, *file.S2SID, *uc.S2SID)
		}
	}
	return nil
}

func applyInput(file *domain.DataFile, in DataFileInput) {
	if in.StormID != nil {
		file.StormID = in.StormID
	}
	if in.ReservoirID != nil {
		file.ReservoirID = in.ReservoirID
	}
	if in.S2SID != nil {
		file.S2SID = in.S2SID
	}
	if in.DataType != nil {
		file.DataType = strings.ToUpper(*in.DataType)
	}
	if in.IssuedTime != nil {
		file.IssuedTime = in.IssuedTime
	}
	if in.FromTime != nil {
		file.FromTime = in.FromTime
	}
	if in.ToTime != nil {
		file.ToTime = in.ToTime
	}
	if in.AddedTime != nil {
		file.AddedTime = in.AddedTime
	}
	if in.UpdatedTime != nil {
		file.UpdatedTime = in.UpdatedTime
	}
	if in.FilePath != nil {
		file.FilePath = *in.FilePath
	}
	if in.FileName != nil {
		file.FileName = *in.FileName
	}
	if in.ContentType != nil {
		file.ContentType = *in.ContentType
	}
}

// cleanKey rejects object keys that escape their prefix.
func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: file_path must not contain '..'", domain.ErrInvalidContext)
		}
	}
	if key == "" {
		return "", fmt.Errorf("%w: file_path is empty", domain.ErrInvalidContext)
	}
	return key, nil
}
