package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"

	"github.com/Sonnyywithanyextray/CheckMate/internal/config"
	"github.com/Sonnyywithanyextray/CheckMate/internal/reports"
	"github.com/Sonnyywithanyextray/CheckMate/internal/store"
	"github.com/Sonnyywithanyextray/CheckMate/internal/sweeper"
	"github.com/Sonnyywithanyextray/CheckMate/pkg/logging"
)

func main() {
	cfg := config.Load()
	logging.Setup("checkmate-sweeper", cfg.ElasticsearchURL)

	log.Info().Msg("Starting checkmate-sweeper service")

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	sweeper.New(reports.NewRepository(db)).Run(ctx, cfg.SweepInterval)
}
