package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	webhookapi "github.com/teerapatch/line-webhook/internal/api/handlers/webhook"
	"github.com/teerapatch/line-webhook/internal/api/router"
	"github.com/teerapatch/line-webhook/internal/api/server"
	"github.com/teerapatch/line-webhook/internal/bot/lifecycle"
	"github.com/teerapatch/line-webhook/internal/bot/message"
	"github.com/teerapatch/line-webhook/internal/bot/postback"
	"github.com/teerapatch/line-webhook/internal/config"
	"github.com/teerapatch/line-webhook/internal/dispatcher"
	"github.com/teerapatch/line-webhook/internal/forms"
	"github.com/teerapatch/line-webhook/internal/infra/kafka/producer"
	"github.com/teerapatch/line-webhook/internal/line"
	assetrepo "github.com/teerapatch/line-webhook/internal/repository/asset"
	eventrepo "github.com/teerapatch/line-webhook/internal/repository/event"
	jobrepo "github.com/teerapatch/line-webhook/internal/repository/job"
	"github.com/teerapatch/line-webhook/internal/storage/media"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")

	// Connect to PostgreSQL (master and slaves).
	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
	for _, s := range cfg.Database.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}

	db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Retry strategy for LINE, Forms, and Kafka calls.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Initialize media object storage (MinIO).
	storage, err := media.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.PublicURL, cfg.Storage.UseSSL)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
	}

	// External clients: LINE messaging API, Google Forms logger, Kafka audit producer.
	lineClient, err := line.NewClient(cfg.Line.ChannelToken, strategy)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to create line client")
	}

	formsClient := forms.NewClient(cfg.Forms.URL, cfg.Forms.EntryID, strategy)
	p := producer.New(&cfg.Kafka, strategy)

	// Repositories.
	eventRepo := eventrepo.NewRepository(db)
	assetRepo := assetrepo.NewRepository(db)
	jobRepo := jobrepo.NewRepository(db)

	// Event handlers and the dispatcher.
	msgHandler := message.NewHandler(lineClient, storage, assetRepo, jobRepo, formsClient, cfg.Bot)
	pbHandler := postback.NewHandler(formsClient)
	lcHandler := lifecycle.NewHandler(formsClient)

	d := dispatcher.New(eventRepo, formsClient, p, msgHandler, pbHandler, lcHandler)

	// HTTP layer.
	hook := webhookapi.NewHandler(d)
	r := router.Setup(hook, cfg.Line.ChannelSecret)
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

	// Close master and slave databases.
	if err := db.Master.Close(); err != nil {
		zlog.Logger.Printf("failed to close master DB: %v", err)
	}
	for i, sl := range db.Slaves {
		if err := sl.Close(); err != nil {
			zlog.Logger.Printf("failed to close slave DB %d: %v", i, err)
		}
	}

	// Close the Kafka producer client.
	if err := p.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
	}
}
