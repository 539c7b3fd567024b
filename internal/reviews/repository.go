package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Sonnyywithanyextray/CheckMate/internal/reports"
	"github.com/Sonnyywithanyextray/CheckMate/internal/store"
)

// Repository creates review documents coupled to report finalization.
type Repository struct {
	store     store.Store
	reports   *reports.Repository
	retention time.Duration
	now       func() time.Time
}

// NewRepository creates a review repository. The retention window is
// how long a finalized report stays in the store before the retention
// sweep may delete it.
func NewRepository(s store.Store, reportRepo *reports.Repository, retention time.Duration) *Repository {
	return &Repository{
		store:     s,
		reports:   reportRepo,
		retention: retention,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Second)
		},
	}
}

// FileReview validates the review, derives its classification, and
// commits the review document together with the report's finalization
// in one transaction. Either both documents land or neither does; a
// review without a finalized report (or the reverse) cannot occur.
func (r *Repository) FileReview(ctx context.Context, reportID, reviewerID, evidence, conclusions string) (Review, reports.Report, error) {
	if strings.TrimSpace(evidence) == "" {
		return Review{}, reports.Report{}, &reports.ValidationError{Field: "evidence", Reason: "must not be empty"}
	}
	if strings.TrimSpace(conclusions) == "" {
		return Review{}, reports.Report{}, &reports.ValidationError{Field: "conclusions", Reason: "must not be empty"}
	}

	result := Classify(conclusions)
	review := Review{
		ID:          uuid.NewString(),
		ReportID:    reportID,
		ReviewedBy:  reviewerID,
		Evidence:    evidence,
		Conclusions: conclusions,
		Result:      result,
		CreatedAt:   r.now(),
	}

	var finalized reports.Report
	err := r.store.InTransaction(ctx, func(tx store.Tx) error {
		var err error
		finalized, err = r.reports.FinalizeTx(tx, reportID, reviewerID, result, r.retention)
		if err != nil {
			return err
		}
		return tx.Insert(Collection, review.ID, review)
	})
	if err != nil {
		return Review{}, reports.Report{}, passthrough("file review", err)
	}

	log.Info().
		Str("reviewID", review.ID).
		Str("reportID", reportID).
		Str("reviewedBy", reviewerID).
		Str("result", string(result)).
		Msg("Review filed and report finalized")
	return review, finalized, nil
}

// ListForReport returns all reviews referencing a report, oldest first.
func (r *Repository) ListForReport(ctx context.Context, reportID string) ([]Review, error) {
	docs, err := r.store.Query(ctx, Collection, store.Cond{Field: "reportId", Op: "=", Value: reportID})
	if err != nil {
		return nil, &reports.StoreError{Op: "query reviews", Err: err}
	}

	result := make([]Review, 0, len(docs))
	for _, doc := range docs {
		var review Review
		if err := json.Unmarshal(doc.Data, &review); err != nil {
			return nil, fmt.Errorf("decode review %s: %w", doc.ID, err)
		}
		review.ID = doc.ID
		result = append(result, review)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// passthrough keeps domain errors from the transaction intact and wraps
// anything else as a store failure.
func passthrough(op string, err error) error {
	var (
		ve *reports.ValidationError
		nf *reports.NotFoundError
		ce *reports.ConflictError
		se *reports.StoreError
	)
	if errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &ce) || errors.As(err, &se) {
		return err
	}
	return &reports.StoreError{Op: op, Err: err}
}
