package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-hosting/internal/api/handlers/image"
	"github.com/aliskhannn/image-hosting/internal/api/router"
	"github.com/aliskhannn/image-hosting/internal/api/server"
	"github.com/aliskhannn/image-hosting/internal/auth"
	"github.com/aliskhannn/image-hosting/internal/config"
	"github.com/aliskhannn/image-hosting/internal/infra/kafka/producer"
	"github.com/aliskhannn/image-hosting/internal/processor"
	imagerepo "github.com/aliskhannn/image-hosting/internal/repository/image"
	imagesvc "github.com/aliskhannn/image-hosting/internal/service/image"
	"github.com/aliskhannn/image-hosting/internal/storage/file"
	"github.com/aliskhannn/image-hosting/internal/storage/s3"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")

	// Open the embedded metadata index.
	repo, err := imagerepo.NewRepository(cfg.Index.Dir)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to open metadata index")
	}

	// Initialize the blob storage backend (local filesystem or S3).
	var blobs imagesvc.BlobStorage
	switch cfg.Storage.Mode {
	case "s3":
		blobs, err = s3.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.UseSSL)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
		}
	default:
		blobs, err = file.NewStorage(cfg.Storage.BaseDir)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to initialize storage")
		}
	}

	// Lifecycle event producer, if enabled.
	var p *producer.Producer
	if cfg.Kafka.Enabled {
		strategy := retry.Strategy{
			Attempts: cfg.Retry.Attempts,
			Delay:    cfg.Retry.Delay,
			Backoff:  cfg.Retry.Backoff,
		}
		p = producer.New(&cfg.Kafka, strategy)
	}

	// Service layer: resize processor plus the lifecycle service. The
	// producer interface value must stay nil when events are disabled.
	proc := processor.New(cfg.Variant.Quality)
	svcCfg := imagesvc.Config{
		MaxUploadBytes:    cfg.Upload.MaxBytes,
		MaxDimension:      cfg.Variant.MaxDimension,
		AllowedMediaTypes: cfg.Upload.AllowedMediaTypes,
	}

	var service *imagesvc.Service
	if p != nil {
		service = imagesvc.NewService(svcCfg, blobs, repo, proc, p)
	} else {
		service = imagesvc.NewService(svcCfg, blobs, repo, proc, nil)
	}

	// Token verifier gating the management endpoints.
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)

	// HTTP handler for image routes.
	imgHandler := image.NewHandler(service)

	// Start HTTP server.
	r := router.Setup(imgHandler, verifier)
	s := server.New(cfg.Server.HTTPPort, r)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	verifier.Close()

	// Close the metadata index.
	if err := repo.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close metadata index")
	}

	// Close the Kafka producer client.
	if p != nil {
		if err := p.Client.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
		}
	}
}
