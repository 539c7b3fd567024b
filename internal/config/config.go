// Package config loads service configuration from the environment.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds everything both binaries read from the environment.
type Config struct {
	HTTPAddr string

	CouchbaseURL      string
	CouchbaseUsername string
	CouchbasePassword string
	CouchbaseBucket   string

	JWTSecret        string
	ElasticsearchURL string
	SentryDSN        string

	// RetentionWindow is how long a reviewed report survives before the
	// retention sweep may delete it.
	RetentionWindow time.Duration
	// SweepInterval is how often the sweeper runs.
	SweepInterval time.Duration
	// QueuePollInterval is how often the live queue feed re-queries.
	QueuePollInterval time.Duration
}

// Load reads configuration from the environment with sane defaults.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("COUCHBASE_URL", "couchbase://checkmate-db")
	v.SetDefault("COUCHBASE_USERNAME", "checkmate_user")
	v.SetDefault("COUCHBASE_PASSWORD", "password")
	v.SetDefault("COUCHBASE_BUCKET", "checkmate")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("ELASTICSEARCH_URL", "")
	v.SetDefault("SENTRY_DSN", "")
	v.SetDefault("RETENTION_WINDOW", "24h")
	v.SetDefault("SWEEP_INTERVAL", "1m")
	v.SetDefault("QUEUE_POLL_INTERVAL", "2s")

	return &Config{
		HTTPAddr:          v.GetString("HTTP_ADDR"),
		CouchbaseURL:      v.GetString("COUCHBASE_URL"),
		CouchbaseUsername: v.GetString("COUCHBASE_USERNAME"),
		CouchbasePassword: v.GetString("COUCHBASE_PASSWORD"),
		CouchbaseBucket:   v.GetString("COUCHBASE_BUCKET"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		ElasticsearchURL:  v.GetString("ELASTICSEARCH_URL"),
		SentryDSN:         v.GetString("SENTRY_DSN"),
		RetentionWindow:   v.GetDuration("RETENTION_WINDOW"),
		SweepInterval:     v.GetDuration("SWEEP_INTERVAL"),
		QueuePollInterval: v.GetDuration("QUEUE_POLL_INTERVAL"),
	}
}
