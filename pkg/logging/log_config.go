// Package logging configures zerolog for all binaries: pretty console
// output always, ECS-formatted shipping to Elasticsearch when a URL is
// configured.
package logging

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.elastic.co/ecszerolog"
)

var setupOnce sync.Once

// ElasticsearchWriter sends logs directly to Elasticsearch.
type ElasticsearchWriter struct {
	URL string
}

func (ew ElasticsearchWriter) Write(p []byte) (n int, err error) {
	resp, err := http.Post(
		ew.URL+"/_doc",
		"application/json",
		bytes.NewBuffer(p),
	)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("elasticsearch returned %d", resp.StatusCode)
	}

	return len(p), nil
}

// Setup installs the global logger tagged with the service name. With
// an empty elasticsearchURL logs go to the console only.
func Setup(service, elasticsearchURL string) {
	setupOnce.Do(func() {
		configure(service, elasticsearchURL)
	})
}

func configure(service, elasticsearchURL string) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout}

	if elasticsearchURL == "" {
		log.Logger = zerolog.New(consoleWriter).With().
			Str("app", service).
			Timestamp().Logger()
		return
	}

	ecsLogger := ecszerolog.New(&ElasticsearchWriter{
		URL: elasticsearchURL + "/" + service,
	})

	multi := zerolog.MultiLevelWriter(
		ecsLogger,
		consoleWriter,
	)

	log.Logger = zerolog.New(multi).With().
		Str("app", service).
		Timestamp().Logger()
}
