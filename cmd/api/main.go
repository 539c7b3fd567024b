package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"

	"github.com/Sonnyywithanyextray/CheckMate/internal/api"
	"github.com/Sonnyywithanyextray/CheckMate/internal/config"
	"github.com/Sonnyywithanyextray/CheckMate/internal/metrics"
	"github.com/Sonnyywithanyextray/CheckMate/internal/reports"
	"github.com/Sonnyywithanyextray/CheckMate/internal/reviews"
	"github.com/Sonnyywithanyextray/CheckMate/internal/store"
	"github.com/Sonnyywithanyextray/CheckMate/pkg/logging"
)

func main() {
	cfg := config.Load()
	logging.Setup("checkmate-api", cfg.ElasticsearchURL)

	log.Info().Msg("Starting checkmate-api service")

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			log.Warn().Err(err).Msg("Sentry initialization failed")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	db, err := store.ConnectCouchbase(cfg.CouchbaseURL, cfg.CouchbaseUsername, cfg.CouchbasePassword, cfg.CouchbaseBucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Couchbase")
	}
	defer db.Close()

	reportRepo := reports.NewRepository(db)
	reviewRepo := reviews.NewRepository(db, reportRepo, cfg.RetentionWindow)
	server := api.NewServer(reportRepo, reviewRepo, cfg.QueuePollInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	metrics.StartSystemMetrics(ctx, 15*time.Second)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.Routes(cfg.JWTSecret),
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Failed to start API server")
	}
	log.Info().Msg("API server stopped")
}
