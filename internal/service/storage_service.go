package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"hydromet/internal/config"
	"hydromet/internal/domain"
	"hydromet/internal/observability"
	"hydromet/internal/port"
)

const defaultGenericPath = "uploads"

// PresignInput carries the file metadata common to every presign request.
type PresignInput struct {
	FileName    string
	ContentType string
	// Size is optional; when set it is checked against the upload limit.
	Size int64
}

// PresignStormInput is the DTO for storm data presign requests.
type PresignStormInput struct {
	PresignInput
	StormID    int64
	IssuedDate string
	DataType   string
}

// PresignReservoirInput is the DTO for reservoir operation file presign requests.
type PresignReservoirInput struct {
	PresignInput
	ReservoirID *int64
}

// PresignGenericInput is the DTO for the free-form presign endpoint. The
// optional fields are recorded with the session for later inspection.
type PresignGenericInput struct {
	PresignInput
	Path        string
	StormID     *int64
	ReservoirID *int64
	IssuedDate  string
	DataType    string
}

// CommitStormInput is the DTO for committing a storm upload. Zero fields
// inherit the presigned value; set fields must match it.
type CommitStormInput struct {
	Key        string `json:"key"`
	StormID    int64  `json:"storm_id"`
	IssuedDate string `json:"issued_date"`
	DataType   string `json:"data_type"`
}

// CommitReservoirInput is the DTO for committing a reservoir operation file.
type CommitReservoirInput struct {
	Key         string     `json:"key"`
	ReservoirID *int64     `json:"reservoir_id,omitempty"`
	FromTime    *time.Time `json:"from_time,omitempty"`
	ToTime      *time.Time `json:"to_time,omitempty"`
	AddedTime   *time.Time `json:"added_time,omitempty"`
}

// LegacyUploadInput is the DTO for the deprecated single-request upload.
type LegacyUploadInput struct {
	File        io.Reader
	FileName    string
	ContentType string
	Size        int64
	DataType    string
	Path        string
	StormID     *int64
	IssuedDate  string
	ReservoirID *int64
	FromTime    *time.Time
	ToTime      *time.Time
	S2SID       *int64
	AddedTime   *time.Time
}

// StorageService defines the presign, commit and legacy upload contract.
type StorageService interface {
	PresignStorm(ctx context.Context, input PresignStormInput) (*domain.PresignResult, error)
	PresignReservoir(ctx context.Context, input PresignReservoirInput) (*domain.PresignResult, error)
	PresignGeneric(ctx context.Context, input PresignGenericInput) (*domain.PresignResult, error)
	CommitStorm(ctx context.Context, input CommitStormInput) (*domain.CommitResult, error)
	CommitReservoir(ctx context.Context, input CommitReservoirInput) (*domain.CommitResult, error)
	LegacyUpload(ctx context.Context, input LegacyUploadInput) (*domain.LegacyUploadResult, error)
}

type storageService struct {
	sessions port.UploadSessionRepository
	storage  port.ObjectStorage
	events   port.EventPublisher
	metrics  *observability.Metrics
	cfg      *config.StorageConfig
	clock    clockwork.Clock
	logger   zerolog.Logger
}

// NewStorageService creates a new StorageService implementation.
func NewStorageService(
	sessions port.UploadSessionRepository,
	storage port.ObjectStorage,
	events port.EventPublisher,
	metrics *observability.Metrics,
	cfg *config.StorageConfig,
	clock clockwork.Clock,
	logger zerolog.Logger,
) StorageService {
	return &storageService{
		sessions: sessions,
		storage:  storage,
		events:   events,
		metrics:  metrics,
		cfg:      cfg,
		clock:    clock,
		logger:   logger.With().Str("component", "storageService").Logger(),
	}
}

func (s *storageService) PresignStorm(ctx context.Context, input PresignStormInput) (*domain.PresignResult, error) {
	dataType, err := domain.ParseStormDataType(input.DataType)
	if err != nil {
		return nil, err
	}
	if input.StormID <= 0 {
		return nil, fmt.Errorf("%w: storm_id must be positive", domain.ErrInvalidContext)
	}
	if _, err := domain.ParseIssuedHour(input.IssuedDate); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidContext, err)
	}
	name, contentType, err := s.checkFile(input.PresignInput, domain.StormDataKinds[dataType])
	if err != nil {
		return nil, err
	}

	key := path.Join("storms", strconv.FormatInt(input.StormID, 10), strings.ToLower(string(dataType)),
		input.IssuedDate, uuid.NewString(), name)
	stormID := input.StormID
	uc := domain.UploadContext{StormID: &stormID, IssuedDate: input.IssuedDate, DataType: string(dataType)}
	return s.presign(ctx, domain.UploadKindStorms, key, name, contentType, uc)
}

func (s *storageService) PresignReservoir(ctx context.Context, input PresignReservoirInput) (*domain.PresignResult, error) {
	if input.ReservoirID != nil && *input.ReservoirID <= 0 {
		return nil, fmt.Errorf("%w: reservoir_id must be positive", domain.ErrInvalidContext)
	}
	name, contentType, err := s.checkFile(input.PresignInput, domain.FileKindReservoirOperation)
	if err != nil {
		return nil, err
	}

	issued := domain.FormatIssuedHour(s.clock.Now())
	key := path.Join("reservoirs", "operations", issued, uuid.NewString(), name)
	uc := domain.UploadContext{ReservoirID: input.ReservoirID, IssuedDate: issued}
	result, err := s.presign(ctx, domain.UploadKindReservoirs, key, name, contentType, uc)
	if err != nil {
		return nil, err
	}
	result.IssuedDate = issued
	return result, nil
}

func (s *storageService) PresignGeneric(ctx context.Context, input PresignGenericInput) (*domain.PresignResult, error) {
	prefix, err := cleanPrefix(input.Path)
	if err != nil {
		return nil, err
	}
	name, contentType, err := s.checkFile(input.PresignInput, "")
	if err != nil {
		return nil, err
	}

	key := path.Join(prefix, uuid.NewString(), name)
	uc := domain.UploadContext{
		Path:        prefix,
		StormID:     input.StormID,
		ReservoirID: input.ReservoirID,
		IssuedDate:  input.IssuedDate,
		DataType:    input.DataType,
	}
	return s.presign(ctx, domain.UploadKindGeneric, key, name, contentType, uc)
}

// presign signs the PUT and records the session. A session that cannot be
// stored means the target is never handed out.
func (s *storageService) presign(
	ctx context.Context, kind domain.UploadKind, key, name, contentType string, uc domain.UploadContext,
) (*domain.PresignResult, error) {
	url, err := s.storage.PresignPut(ctx, port.PresignPutInput{
		Bucket:      s.cfg.Bucket,
		Key:         key,
		ContentType: contentType,
		Expiry:      s.cfg.PresignExpiry,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("presign failed")
		return nil, fmt.Errorf("storageService.presign: %w", err)
	}

	raw, err := json.Marshal(uc)
	if err != nil {
		return nil, fmt.Errorf("storageService.presign context: %w", err)
	}
	expiresAt := s.clock.Now().UTC().Add(s.cfg.PresignExpiry)
	session := &domain.UploadSession{
		ID:          uuid.New(),
		Key:         key,
		Kind:        kind,
		FileName:    name,
		ContentType: contentType,
		Context:     raw,
		Status:      domain.UploadSessionPresigned,
		ExpiresAt:   expiresAt,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("storageService.presign session: %w", err)
	}

	s.metrics.PresignTotal.WithLabelValues(string(kind)).Inc()
	s.logger.Info().Str("key", key).Str("kind", string(kind)).Str("session_id", session.ID.String()).
		Msg("upload target issued")

	return &domain.PresignResult{UploadURL: url, Key: key, ExpiresAt: expiresAt}, nil
}

func (s *storageService) CommitStorm(ctx context.Context, input CommitStormInput) (*domain.CommitResult, error) {
	session, info, err := s.loadForCommit(ctx, input.Key, domain.UploadKindStorms)
	if err != nil {
		return s.commitFailed("storms", err)
	}
	uc, err := session.DecodeContext()
	if err != nil || uc.StormID == nil {
		return s.commitFailed("storms", domain.ErrInvalidContext)
	}

	if input.StormID != 0 && input.StormID != *uc.StormID {
		return s.commitFailed("storms", fmt.Errorf("%w: storm_id %d was presigned as %d",
			domain.ErrInvalidContext, input.StormID, *uc.StormID))
	}
	if input.IssuedDate != "" && input.IssuedDate != uc.IssuedDate {
		return s.commitFailed("storms", fmt.Errorf("%w: issued_date %s was presigned as %s",
			domain.ErrInvalidContext, input.IssuedDate, uc.IssuedDate))
	}
	if input.DataType != "" && !strings.EqualFold(input.DataType, uc.DataType) {
		return s.commitFailed("storms", fmt.Errorf("%w: data_type %s was presigned as %s",
			domain.ErrInvalidContext, input.DataType, uc.DataType))
	}

	dataType, err := domain.ParseStormDataType(uc.DataType)
	if err != nil {
		return s.commitFailed("storms", err)
	}
	issued, err := domain.ParseIssuedHour(uc.IssuedDate)
	if err != nil {
		return s.commitFailed("storms", fmt.Errorf("%w: %v", domain.ErrInvalidContext, err))
	}

	file := s.recordFor(session, info)
	file.Kind = domain.StormDataKinds[dataType]
	file.StormID = uc.StormID
	file.DataType = string(dataType)
	file.IssuedTime = &issued

	return s.finishCommit(ctx, session, file)
}

func (s *storageService) CommitReservoir(ctx context.Context, input CommitReservoirInput) (*domain.CommitResult, error) {
	session, info, err := s.loadForCommit(ctx, input.Key, domain.UploadKindReservoirs)
	if err != nil {
		return s.commitFailed(string(domain.FileKindReservoirOperation), err)
	}
	uc, err := session.DecodeContext()
	if err != nil {
		return s.commitFailed(string(domain.FileKindReservoirOperation), domain.ErrInvalidContext)
	}

	reservoirID := uc.ReservoirID
	if input.ReservoirID != nil {
		if reservoirID != nil && *reservoirID != *input.ReservoirID {
			return s.commitFailed(string(domain.FileKindReservoirOperation), fmt.Errorf(
				"%w: reservoir_id %d was presigned as %d", domain.ErrInvalidContext, *input.ReservoirID, *reservoirID))
		}
		reservoirID = input.ReservoirID
	}
	if input.FromTime != nil && input.ToTime != nil && input.ToTime.Before(*input.FromTime) {
		return s.commitFailed(string(domain.FileKindReservoirOperation),
			fmt.Errorf("%w: to_time before from_time", domain.ErrInvalidContext))
	}

	now := s.clock.Now().UTC()
	added := now
	if input.AddedTime != nil {
		added = input.AddedTime.UTC()
	}
	file := s.recordFor(session, info)
	file.Kind = domain.FileKindReservoirOperation
	file.ReservoirID = reservoirID
	file.FromTime = input.FromTime
	file.ToTime = input.ToTime
	file.AddedTime = &added
	file.UpdatedTime = &now

	return s.finishCommit(ctx, session, file)
}

// loadForCommit runs the checks shared by every commit endpoint, in order:
// session exists, kind matches, not yet committed, not expired empty, object
// present.
func (s *storageService) loadForCommit(
	ctx context.Context, key string, kind domain.UploadKind,
) (*domain.UploadSession, *port.ObjectInfo, error) {
	if key == "" {
		return nil, nil, fmt.Errorf("%w: key is required", domain.ErrInvalidContext)
	}
	session, err := s.sessions.GetByKey(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	if session.Kind != kind {
		return nil, nil, domain.ErrKindMismatch
	}
	if err := session.Status.CommitError(); err != nil {
		return nil, nil, err
	}

	info, err := s.storage.Stat(ctx, s.cfg.Bucket, key)
	if err != nil {
		if errors.Is(err, domain.ErrObjectMissing) && s.clock.Now().After(session.ExpiresAt) {
			return nil, nil, domain.ErrUploadExpired
		}
		return nil, nil, err
	}
	return session, info, nil
}

func (s *storageService) recordFor(session *domain.UploadSession, info *port.ObjectInfo) domain.DataFile {
	contentType := session.ContentType
	if info.ContentType != "" {
		contentType = info.ContentType
	}
	return domain.DataFile{
		FilePath:    session.Key,
		FileName:    session.FileName,
		ContentType: contentType,
		FileSize:    info.Size,
	}
}

func (s *storageService) finishCommit(
	ctx context.Context, session *domain.UploadSession, file domain.DataFile,
) (*domain.CommitResult, error) {
	items, err := s.sessions.CommitWithFiles(ctx, session.Key, []domain.DataFile{file})
	if err != nil {
		return s.commitFailed(string(file.Kind), err)
	}
	primary := items[0]

	s.metrics.CommitTotal.WithLabelValues(string(primary.Kind), "success").Inc()
	s.logger.Info().Str("key", session.Key).Str("kind", string(primary.Kind)).Int64("record_id", primary.ID).
		Msg("upload committed")
	publishCommitted(ctx, s.events, s.metrics, s.logger, &primary, false, s.clock.Now())

	return &domain.CommitResult{
		Key:   session.Key,
		Meta:  domain.CommitMeta{Type: primary.Kind, ID: primary.ID},
		Items: items,
	}, nil
}

func (s *storageService) commitFailed(kind string, err error) (*domain.CommitResult, error) {
	s.metrics.CommitTotal.WithLabelValues(kind, "error").Inc()
	s.logger.Warn().Err(err).Str("kind", kind).Msg("commit rejected")
	return nil, err
}

// LegacyUpload streams the file through the server and records it in one
// request.
func (s *storageService) LegacyUpload(ctx context.Context, input LegacyUploadInput) (*domain.LegacyUploadResult, error) {
	kind, err := domain.ParseLegacyDataType(input.DataType)
	if err != nil {
		return nil, err
	}
	name, contentType, err := s.checkFile(PresignInput{
		FileName: input.FileName, ContentType: input.ContentType, Size: input.Size,
	}, kind)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	file := domain.DataFile{Kind: kind, FileName: name, ContentType: contentType, FileSize: input.Size}
	var prefix string
	switch {
	case kind.IsStorm():
		if input.StormID == nil || *input.StormID <= 0 {
			return nil, fmt.Errorf("%w: storm_id is required", domain.ErrInvalidContext)
		}
		issued, err := domain.ParseIssuedHour(input.IssuedDate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidContext, err)
		}
		file.StormID = input.StormID
		file.DataType = strings.ToUpper(input.DataType)
		file.IssuedTime = &issued
		prefix = path.Join("storms", strconv.FormatInt(*input.StormID, 10), string(kind), input.IssuedDate)
	case kind == domain.FileKindReservoirOperation:
		file.ReservoirID = input.ReservoirID
		file.FromTime = input.FromTime
		file.ToTime = input.ToTime
		added := now
		if input.AddedTime != nil {
			added = input.AddedTime.UTC()
		}
		file.AddedTime = &added
		file.UpdatedTime = &now
		prefix = path.Join("reservoirs", "operations", domain.FormatIssuedHour(now))
	case kind == domain.FileKindS2S:
		if input.S2SID == nil || *input.S2SID <= 0 {
			return nil, fmt.Errorf("%w: s2s_id is required", domain.ErrInvalidContext)
		}
		added := now
		if input.AddedTime != nil {
			added = input.AddedTime.UTC()
		}
		file.S2SID = input.S2SID
		file.AddedTime = &added
		file.UpdatedTime = &now
		prefix = path.Join("precipitation", "s2s", strconv.FormatInt(*input.S2SID, 10), domain.FormatIssuedHour(added))
	}
	if input.Path != "" {
		if prefix, err = cleanPrefix(input.Path); err != nil {
			return nil, err
		}
	}
	key := path.Join(prefix, uuid.NewString(), name)
	file.FilePath = key

	s.logger.Warn().Str("key", key).Str("kind", string(kind)).
		Msg("deprecated single-request upload; use presign and commit")

	if _, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.cfg.Bucket,
		Key:         key,
		Body:        input.File,
		ContentType: contentType,
		Size:        input.Size,
	}); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("legacy upload to storage failed")
		return nil, domain.ErrUploadFailed
	}

	raw, _ := json.Marshal(domain.UploadContext{
		StormID: file.StormID, ReservoirID: file.ReservoirID, S2SID: file.S2SID,
		IssuedDate: input.IssuedDate, DataType: file.DataType, Path: input.Path,
	})
	session := &domain.UploadSession{
		ID:          uuid.New(),
		Key:         key,
		Kind:        kind.UploadKind(),
		FileName:    name,
		ContentType: contentType,
		Context:     raw,
		Status:      domain.UploadSessionPresigned,
		ExpiresAt:   now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("storageService.LegacyUpload session: %w", err)
	}
	items, err := s.sessions.CommitWithFiles(ctx, key, []domain.DataFile{file})
	if err != nil {
		return nil, fmt.Errorf("storageService.LegacyUpload: %w", err)
	}
	record := items[0]

	url, err := s.storage.GetPresignedURL(ctx, s.cfg.Bucket, key, int64(s.cfg.PresignExpiry/time.Second))
	if err != nil {
		return nil, fmt.Errorf("storageService.LegacyUpload url: %w", err)
	}

	s.metrics.LegacyUploads.Inc()
	publishCommitted(ctx, s.events, s.metrics, s.logger, &record, true, now)

	return &domain.LegacyUploadResult{
		Key:  key,
		URL:  url,
		Meta: domain.CommitMeta{Type: record.Kind, ID: record.ID},
	}, nil
}

// checkFile validates the file name, size and extension and resolves the
// content type. An empty kind skips the extension check.
func (s *storageService) checkFile(input PresignInput, kind domain.FileKind) (string, string, error) {
	name, err := sanitizeFileName(input.FileName)
	if err != nil {
		return "", "", err
	}
	if input.Size > 0 && s.cfg.MaxFileSizeMB > 0 && input.Size > s.cfg.MaxFileSize() {
		return "", "", domain.ErrFileTooLarge
	}
	if kind != "" && !extensionAllowed(kind, name) {
		return "", "", domain.ErrUnsupportedFileType
	}
	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return name, contentType, nil
}

func extensionAllowed(kind domain.FileKind, name string) bool {
	allowed, ok := domain.AllowedExtensions[kind]
	if !ok {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	for _, a := range allowed {
		if a == ext {
			return true
		}
	}
	return false
}

// sanitizeFileName keeps only the last path element of name.
func sanitizeFileName(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	base := path.Base(name)
	if name == "" || base == "." || base == ".." || base == "/" {
		return "", fmt.Errorf("%w: filename is required", domain.ErrInvalidContext)
	}
	return base, nil
}

// cleanPrefix normalizes a caller-supplied key prefix, rejecting any ".."
// segment.
func cleanPrefix(p string) (string, error) {
	p = strings.Trim(strings.TrimSpace(strings.ReplaceAll(p, "\\", "/")), "/")
	if p == "" {
		return defaultGenericPath, nil
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: path must not contain '..'", domain.ErrInvalidContext)
		}
	}
	return path.Clean(p), nil
}

// publishCommitted announces a recorded key. Publishing failures are logged
// and counted; the record is already durable.
func publishCommitted(
	ctx context.Context, events port.EventPublisher, metrics *observability.Metrics, logger zerolog.Logger,
	file *domain.DataFile, legacy bool, at time.Time,
) {
	event := domain.UploadCommitted{
		Key:         file.FilePath,
		Kind:        file.Kind,
		RecordID:    file.ID,
		StormID:     file.StormID,
		ReservoirID: file.ReservoirID,
		S2SID:       file.S2SID,
		DataType:    file.DataType,
		Legacy:      legacy,
		CommittedAt: at.UTC(),
	}
	if err := events.PublishUploadCommitted(ctx, event); err != nil {
		metrics.EventPublishFails.Inc()
		logger.Error().Err(err).Str("key", file.FilePath).Msg("publishing commit event failed")
	}
}
