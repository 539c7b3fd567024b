package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Sonnyywithanyextray/CheckMate/internal/metrics"
	"github.com/Sonnyywithanyextray/CheckMate/internal/queue"
)

// StreamQueue handles GET /queue/stream: a server-sent-events stream of
// full queue snapshots. Each event replaces the client's view. The feed
// is torn down when the client disconnects; on an observation failure
// one error event is sent and the stream ends without reconnecting.
func (s *Server) StreamQueue(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	feed := queue.Subscribe(r.Context(), s.reports, s.pollInterval)
	defer feed.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log.Info().Str("remote_addr", r.RemoteAddr).Msg("Queue stream opened")

	for snapshot := range feed.Snapshots() {
		if snapshot.Err != nil {
			payload, _ := json.Marshal(errorResponse{Error: snapshot.Err.Error()})
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", payload)
			flusher.Flush()
			log.Warn().Err(snapshot.Err).Msg("Queue stream ended on observation failure")
			return
		}

		metrics.RecordQueueSnapshot()
		payload, err := json.Marshal(toReportResponses(snapshot.Reports))
		if err != nil {
			log.Error().Err(err).Msg("Failed to encode queue snapshot")
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	log.Info().Str("remote_addr", r.RemoteAddr).Msg("Queue stream closed")
}
