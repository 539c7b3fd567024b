package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/Sonnyywithanyextray/CheckMate/internal/metrics"
	"github.com/Sonnyywithanyextray/CheckMate/internal/reports"
	"github.com/Sonnyywithanyextray/CheckMate/internal/reviews"
)

// Server holds the repositories behind the HTTP surface.
type Server struct {
	reports      *reports.Repository
	reviews      *reviews.Repository
	validate     *validator.Validate
	pollInterval time.Duration
}

// NewServer creates the HTTP server over the given repositories. The
// poll interval drives the live queue stream.
func NewServer(reportRepo *reports.Repository, reviewRepo *reviews.Repository, pollInterval time.Duration) *Server {
	return &Server{
		reports:      reportRepo,
		reviews:      reviewRepo,
		validate:     validator.New(),
		pollInterval: pollInterval,
	}
}

// HealthHandler reports process liveness.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SubmitReport handles POST /reports.
func (s *Server) SubmitReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req submitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON format"})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Please provide both link and description"})
		return
	}

	report, err := s.reports.Submit(r.Context(), req.Link, req.Description, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordSubmission()
	writeJSON(w, http.StatusCreated, toReportResponse(report))
}

// GetReport handles GET /reports/{id}.
func (s *Server) GetReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	report, err := s.reports.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(report))
}

// ListReports handles GET /reports?status=queued.
func (s *Server) ListReports(w http.ResponseWriter, r *http.Request) {
	status := reports.Status(r.URL.Query().Get("status"))
	switch status {
	case reports.StatusQueued, reports.StatusInReview, reports.StatusReviewed:
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "status must be queued, in_review, or reviewed"})
		return
	}

	list, err := s.reports.QueryByStatus(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportResponses(list))
}

// ClaimReport handles POST /reports/{id}/claim.
func (s *Server) ClaimReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id := mux.Vars(r)["id"]
	report, err := s.reports.Claim(r.Context(), id, userID)
	if err != nil {
		var conflict *reports.ConflictError
		if errors.As(err, &conflict) {
			metrics.RecordClaim("conflict")
		} else {
			metrics.RecordClaim("error")
		}
		writeError(w, err)
		return
	}

	metrics.RecordClaim("claimed")
	writeJSON(w, http.StatusOK, toReportResponse(report))
}

// CancelClaim handles DELETE /reports/{id}/claim.
func (s *Server) CancelClaim(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id := mux.Vars(r)["id"]
	report, err := s.reports.CancelClaim(r.Context(), id, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(report))
}

// FileReview handles POST /reports/{id}/review. Filing the review and
// finalizing the report commit together.
func (s *Server) FileReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req fileReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON format"})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Please provide both evidence and conclusions"})
		return
	}

	id := mux.Vars(r)["id"]
	review, report, err := s.reviews.FileReview(r.Context(), id, userID, req.Evidence, req.Conclusions)
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordReview(string(review.Result))
	writeJSON(w, http.StatusCreated, fileReviewResponse{
		Review: toReviewResponse(review),
		Report: toReportResponse(report),
	})
}

// ListReviews handles GET /reports/{id}/reviews.
func (s *Server) ListReviews(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.reports.Get(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	list, err := s.reviews.ListForReport(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]reviewResponse, 0, len(list))
	for _, review := range list {
		out = append(out, toReviewResponse(review))
	}
	writeJSON(w, http.StatusOK, out)
}

// QueueSnapshot handles GET /queue: a point-in-time view of the queue.
func (s *Server) QueueSnapshot(w http.ResponseWriter, r *http.Request) {
	list, err := s.reports.QueryByStatus(r.Context(), reports.StatusQueued)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportResponses(list))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps domain errors to HTTP statuses. Store failures get a
// generic retry message and go to Sentry.
func writeError(w http.ResponseWriter, err error) {
	var (
		validation *reports.ValidationError
		notFound   *reports.NotFoundError
		conflict   *reports.ConflictError
		storeErr   *reports.StoreError
	)
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validation.Error()})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: notFound.Error()})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: conflict.Error() + "; refresh and try again"})
	case errors.As(err, &storeErr):
		sentry.CaptureException(err)
		log.Error().Err(err).Msg("Store failure")
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "Temporary failure, please try again"})
	default:
		sentry.CaptureException(err)
		log.Error().Err(err).Msg("Unhandled error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal error, please try again"})
	}
}
