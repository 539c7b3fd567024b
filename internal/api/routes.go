package api

import (
	"github.com/gorilla/mux"

	"github.com/Sonnyywithanyextray/CheckMate/internal/metrics"
)

// Routes configures and returns the HTTP router.
func (s *Server) Routes(jwtSecret string) *mux.Router {
	r := mux.NewRouter()

	r.Use(metrics.Middleware)
	r.Use(AuthMiddleware(jwtSecret))

	r.HandleFunc(healthPath, HealthHandler).Methods("GET")
	r.Handle(metricsPath, metrics.Handler()).Methods("GET")

	r.HandleFunc("/reports", s.SubmitReport).Methods("POST")
	r.HandleFunc("/reports", s.ListReports).Methods("GET")
	r.HandleFunc("/reports/{id}", s.GetReport).Methods("GET")
	r.HandleFunc("/reports/{id}/claim", s.ClaimReport).Methods("POST")
	r.HandleFunc("/reports/{id}/claim", s.CancelClaim).Methods("DELETE")
	r.HandleFunc("/reports/{id}/review", s.FileReview).Methods("POST")
	r.HandleFunc("/reports/{id}/reviews", s.ListReviews).Methods("GET")

	r.HandleFunc("/queue", s.QueueSnapshot).Methods("GET")
	r.HandleFunc("/queue/stream", s.StreamQueue).Methods("GET")

	return r
}
