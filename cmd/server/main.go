// @title hydromet API
// @version 1.0
// @description Presigned upload pipeline and data-file resources for hydro-meteorological forecasts.
// @BasePath /api/v1
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	_ "hydromet/docs"
	"hydromet/internal/config"
	"hydromet/internal/email/noop"
	"hydromet/internal/email/ses"
	"hydromet/internal/events/kafka"
	noopevents "hydromet/internal/events/noop"
	"hydromet/internal/handler"
	"hydromet/internal/logging"
	"hydromet/internal/observability"
	"hydromet/internal/port"
	"hydromet/internal/repository/postgres"
	"hydromet/internal/router"
	"hydromet/internal/service"
	miniostorage "hydromet/internal/storage/minio"
	s3storage "hydromet/internal/storage/s3"
)

const shutdownTimeout = 20 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	sessionRepo := postgres.NewUploadSessionRepo(db)
	dataFileRepo := postgres.NewDataFileRepo(db)

	// Initialize storage
	storage, err := newObjectStorage(ctx, &cfg.Storage)
	if err != nil {
		return err
	}

	// Initialize events and notifications
	var events port.EventPublisher
	if cfg.Kafka.Enabled() {
		events = kafka.NewPublisher(cfg.Kafka, logger)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("commit events enabled")
	} else {
		events = noopevents.NewPublisher(logger)
		logger.Info().Msg("no kafka brokers configured, commit events disabled")
	}
	defer func() {
		if err := events.Close(); err != nil {
			logger.Error().Err(err).Msg("event publisher close error")
		}
	}()

	var emailSender port.EmailSender
	if cfg.Email.Provider == "ses" {
		emailSender, err = ses.NewSESSender(cfg.Email.Region, cfg.Email.FromAddress, cfg.Email.FromName, cfg.Email.OperatorAddress)
		if err != nil {
			return fmt.Errorf("failed to initialize SES sender: %w", err)
		}
	} else {
		emailSender = noop.NewNoopSender(logger)
	}

	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()

	// Initialize services
	storageSvc := service.NewStorageService(sessionRepo, storage, events, metrics, &cfg.Storage, clock, logger)
	dataFileSvc := service.NewDataFileService(dataFileRepo, sessionRepo, storage, events, metrics, &cfg.Storage, clock, logger)

	// Initialize handlers
	storageH := handler.NewStorageHandler(storageSvc)
	healthH := handler.NewHealthHandler(dataFileRepo, storage, cfg.Storage.Bucket)

	r := router.Setup(logger, metrics, cfg.CORS.AllowedOrigins, storageH, dataFileSvc, healthH)
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	if cfg.Sweeper.Enabled {
		sweeper := service.NewOrphanSweeper(sessionRepo, storage, emailSender, metrics, service.SweeperConfig{
			Bucket:        cfg.Storage.Bucket,
			Interval:      cfg.Sweeper.Interval,
			Grace:         cfg.Sweeper.Grace,
			Batch:         cfg.Sweeper.Batch,
			DeleteOrphans: cfg.Sweeper.DeleteOrphans,
		}, clock, logger)
		g.Go(func() error {
			sweeper.Start(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

func newObjectStorage(ctx context.Context, cfg *config.StorageConfig) (port.ObjectStorage, error) {
	switch cfg.Provider {
	case "minio":
		client, err := miniostorage.NewClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
		}
		if err := client.EnsureBucket(ctx, cfg.Bucket, cfg.Region); err != nil {
			return nil, err
		}
		return client, nil
	default:
		client, err := s3storage.NewS3Client(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		return client, nil
	}
}
