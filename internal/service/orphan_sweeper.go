package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"hydromet/internal/domain"
	"hydromet/internal/observability"
	"hydromet/internal/port"
)

// SweeperConfig holds settings for the orphan sweeper.
type SweeperConfig struct {
	Bucket        string
	Interval      time.Duration
	Grace         time.Duration
	Batch         int
	Concurrency   int
	DeleteOrphans bool
}

// OrphanSweeper finds presigned keys that were never committed. An object
// that exists under such a key was uploaded but not recorded; one that does
// not exist was simply abandoned.
type OrphanSweeper struct {
	sessions port.UploadSessionRepository
	storage  port.ObjectStorage
	email    port.EmailSender
	metrics  *observability.Metrics
	cfg      SweeperConfig
	clock    clockwork.Clock
	logger   zerolog.Logger
}

// NewOrphanSweeper creates a new OrphanSweeper.
func NewOrphanSweeper(
	sessions port.UploadSessionRepository,
	storage port.ObjectStorage,
	email port.EmailSender,
	metrics *observability.Metrics,
	cfg SweeperConfig,
	clock clockwork.Clock,
	logger zerolog.Logger,
) *OrphanSweeper {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &OrphanSweeper{
		sessions: sessions,
		storage:  storage,
		email:    email,
		metrics:  metrics,
		cfg:      cfg,
		clock:    clock,
		logger:   logger.With().Str("component", "orphanSweeper").Logger(),
	}
}

// Start runs the sweep loop until ctx is canceled. A pass in flight when ctx
// is canceled runs to completion on its own context.
func (w *OrphanSweeper) Start(ctx context.Context) {
	ticker := w.clock.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.logger.Info().Dur("interval", w.cfg.Interval).Dur("grace", w.cfg.Grace).Int("batch", w.cfg.Batch).
		Bool("delete_orphans", w.cfg.DeleteOrphans).Msg("started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("shutdown complete")
			return
		case <-ticker.Chan():
			passCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Minute)
			if _, err := w.SweepOnce(passCtx); err != nil {
				w.logger.Error().Err(err).Msg("sweep failed")
			}
			cancel()
		}
	}
}

// SweepOnce claims one batch of expired sessions, classifies each and mails a
// digest when orphans were found. It returns the orphans of this pass.
func (w *OrphanSweeper) SweepOnce(ctx context.Context) ([]domain.OrphanedObject, error) {
	start := w.clock.Now()
	defer func() { w.metrics.SweepDuration.Observe(w.clock.Since(start).Seconds()) }()

	cutoff := start.UTC().Add(-w.cfg.Grace)
	sessions, err := w.sessions.ClaimExpired(ctx, cutoff, w.cfg.Batch)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}

	var (
		mu      sync.Mutex
		orphans []domain.OrphanedObject
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for i := range sessions {
		session := sessions[i]
		g.Go(func() error {
			orphan, ok := w.classify(gctx, &session)
			if ok {
				mu.Lock()
				orphans = append(orphans, orphan)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	w.logger.Info().Int("claimed", len(sessions)).Int("orphans", len(orphans)).Msg("sweep pass complete")

	if len(orphans) > 0 {
		if err := w.email.SendOrphanReport(ctx, orphans); err != nil {
			w.logger.Error().Err(err).Msg("sending orphan report failed")
		}
	}
	return orphans, nil
}

// classify settles one claimed session. ok is true when the session turned
// out to be an orphan.
func (w *OrphanSweeper) classify(ctx context.Context, session *domain.UploadSession) (domain.OrphanedObject, bool) {
	log := w.logger.With().Str("key", session.Key).Str("session_id", session.ID.String()).Logger()

	info, err := w.storage.Stat(ctx, w.cfg.Bucket, session.Key)
	switch {
	case errors.Is(err, domain.ErrObjectMissing):
		if err := w.sessions.UpdateStatus(ctx, session.Key, domain.UploadSessionExpired); err != nil {
			log.Error().Err(err).Msg("marking session expired failed")
		}
		return domain.OrphanedObject{}, false
	case err != nil:
		log.Error().Err(err).Msg("stat failed; releasing claim")
		if err := w.sessions.UpdateStatus(ctx, session.Key, domain.UploadSessionPresigned); err != nil {
			log.Error().Err(err).Msg("releasing claim failed")
		}
		return domain.OrphanedObject{}, false
	}

	orphan := domain.OrphanedObject{
		SessionID:  session.ID,
		Key:        session.Key,
		Kind:       session.Kind,
		FileName:   session.FileName,
		Size:       info.Size,
		ExpiredAt:  session.ExpiresAt,
		DetectedAt: w.clock.Now().UTC(),
	}
	if w.cfg.DeleteOrphans {
		if err := w.storage.Delete(ctx, w.cfg.Bucket, session.Key); err != nil {
			log.Error().Err(err).Msg("deleting orphaned object failed")
		} else {
			orphan.Deleted = true
		}
	}

	status := domain.UploadSessionOrphaned
	if orphan.Deleted {
		status = domain.UploadSessionExpired
	}
	if err := w.sessions.UpdateStatus(ctx, session.Key, status); err != nil {
		log.Error().Err(err).Msg("updating session status failed")
	}
	w.metrics.OrphansDetected.WithLabelValues(string(session.Kind)).Inc()
	log.Warn().Int64("size", info.Size).Bool("deleted", orphan.Deleted).Msg("uploaded but never committed")
	return orphan, true
}
