package reports

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

	"github.com/Sonnyywithanyextray/CheckMate/internal/store"
)

// Repository applies lifecycle transitions to report documents. Every
// transition that depends on the current status is a conditional write
// keyed on the Cas read alongside it, so two writers racing on the same
// report cannot both satisfy a stale precondition.
type Repository struct {
	store store.Store
	now   func() time.Time
}

// NewRepository creates a repository on the given store.
func NewRepository(s store.Store) *Repository {
	return &Repository{
		store: s,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Second)
		},
	}
}

// Submit validates and stores a new report in queued status.
func (r *Repository) Submit(ctx context.Context, link, description, submittedBy string) (Report, error) {
	if strings.TrimSpace(link) == "" {
		return Report{}, &ValidationError{Field: "link", Reason: "must not be empty"}
	}
	if strings.TrimSpace(description) == "" {
		return Report{}, &ValidationError{Field: "description", Reason: "must not be empty"}
	}

	now := r.now()
	report := Report{
		ID:          uuid.NewString(),
		Link:        link,
		Description: TruncateDescription(description),
		Status:      StatusQueued,
		SubmittedBy: submittedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.store.Insert(ctx, Collection, report.ID, report); err != nil {
		return Report{}, r.wrap("submit report", report.ID, err)
	}

	log.Info().
		Str("reportID", report.ID).
		Str("submittedBy", submittedBy).
		Msg("Report submitted")
	return report, nil
}

// Get reads a single report by id.
func (r *Repository) Get(ctx context.Context, id string) (Report, error) {
	var report Report
	if _, err := r.store.Get(ctx, Collection, id, &report); err != nil {
		return Report{}, r.wrap("get report", id, err)
	}
	report.ID = id
	return report, nil
}

// Claim transitions a queued report to in_review and assigns it to the
// reviewer. The status check and the write are one conditional update:
// a Cas mismatch means another writer got in between, so the status is
// re-read and re-checked. Exactly one of two concurrent claimants wins;
// the other receives a ConflictError.
func (r *Repository) Claim(ctx context.Context, id, reviewerID string) (Report, error) {
	for {
		var report Report
		cas, err := r.store.Get(ctx, Collection, id, &report)
		if err != nil {
			return Report{}, r.wrap("claim report", id, err)
		}
		if report.Status != StatusQueued {
			return Report{}, &ConflictError{ID: id, Status: report.Status}
		}

		report.Status = StatusInReview
		report.AssignedTo = &reviewerID
		report.UpdatedAt = r.now()

		err = r.store.Replace(ctx, Collection, id, report, cas)
		if errors.Is(err, store.ErrCasMismatch) {
			continue
		}
		if err != nil {
			return Report{}, r.wrap("claim report", id, err)
		}

		report.ID = id
		log.Info().
			Str("reportID", id).
			Str("assignedTo", reviewerID).
			Msg("Report claimed")
		return report, nil
	}
}

// CancelClaim abandons an in_review claim, reverting the report to
// queued. Only the assigned reviewer may cancel.
func (r *Repository) CancelClaim(ctx context.Context, id, reviewerID string) (Report, error) {
	for {
		var report Report
		cas, err := r.store.Get(ctx, Collection, id, &report)
		if err != nil {
			return Report{}, r.wrap("cancel claim", id, err)
		}
		if report.Status != StatusInReview {
			return Report{}, &ConflictError{ID: id, Status: report.Status}
		}
		if report.AssignedTo == nil || *report.AssignedTo != reviewerID {
			return Report{}, &ConflictError{ID: id, Status: report.Status, Reason: "claimed by another reviewer"}
		}

		report.Status = StatusQueued
		report.AssignedTo = nil
		report.UpdatedAt = r.now()

		err = r.store.Replace(ctx, Collection, id, report, cas)
		if errors.Is(err, store.ErrCasMismatch) {
			continue
		}
		if err != nil {
			return Report{}, r.wrap("cancel claim", id, err)
		}

		report.ID = id
		log.Info().
			Str("reportID", id).
			Str("reviewer", reviewerID).
			Msg("Claim cancelled")
		return report, nil
	}
}

// FinalizeTx marks a report reviewed inside an open transaction. The
// caller owns the transaction; filing the paired review must be part of
// the same one so both documents commit together. The retention window
// determines when the retention sweep may delete the report.
func (r *Repository) FinalizeTx(tx store.Tx, id, reviewerID string, result Result, retention time.Duration) (Report, error) {
	switch result {
	case ResultConfirmed, ResultDebunked, ResultInconclusive:
	default:
		return Report{}, &ValidationError{Field: "result", Reason: "unrecognized classification"}
	}

	var report Report
	if err := tx.Get(Collection, id, &report); err != nil {
		return Report{}, r.wrap("finalize report", id, err)
	}
	if report.Status != StatusInReview {
		return Report{}, &ConflictError{ID: id, Status: report.Status}
	}
	if report.AssignedTo == nil || *report.AssignedTo != reviewerID {
		return Report{}, &ConflictError{ID: id, Status: report.Status, Reason: "claimed by another reviewer"}
	}

	now := r.now()
	deleteAfter := now.Add(retention)
	report.Status = StatusReviewed
	report.Result = &result
	report.UpdatedAt = now
	report.DeletedAt = &deleteAfter

	if err := tx.Replace(Collection, id, report); err != nil {
		return Report{}, r.wrap("finalize report", id, err)
	}
	report.ID = id
	return report, nil
}

// QueryByStatus returns a point-in-time snapshot of all reports in the
// given status, oldest first.
func (r *Repository) QueryByStatus(ctx context.Context, status Status) ([]Report, error) {
	docs, err := r.store.Query(ctx, Collection, store.Cond{Field: "status", Op: "=", Value: string(status)})
	if err != nil {
		return nil, &StoreError{Op: "query reports", Err: err}
	}
	return decodeReports(docs)
}

// MarkForDeletion schedules a reviewed report for the retention sweep.
func (r *Repository) MarkForDeletion(ctx context.Context, id string, deleteAfter time.Time) (Report, error) {
	for {
		var report Report
		cas, err := r.store.Get(ctx, Collection, id, &report)
		if err != nil {
			return Report{}, r.wrap("mark for deletion", id, err)
		}
		if report.Status != StatusReviewed {
			return Report{}, &ConflictError{ID: id, Status: report.Status}
		}

		report.DeletedAt = &deleteAfter
		report.UpdatedAt = r.now()

		err = r.store.Replace(ctx, Collection, id, report, cas)
		if errors.Is(err, store.ErrCasMismatch) {
			continue
		}
		if err != nil {
			return Report{}, r.wrap("mark for deletion", id, err)
		}
		report.ID = id
		return report, nil
	}
}

// DeleteEligible removes every report that is reviewed and whose
// scheduled deletion time has passed, in one atomic batch. Returns the
// number of reports deleted. Reviews referencing them are not touched.
func (r *Repository) DeleteEligible(ctx context.Context, now time.Time) (int, error) {
	docs, err := r.store.Query(ctx, Collection,
		store.Cond{Field: "status", Op: "=", Value: string(StatusReviewed)},
		store.Cond{Field: "deletedAt", Op: "<=", Value: now.Format(time.RFC3339)},
	)
	if err != nil {
		return 0, &StoreError{Op: "query eligible reports", Err: err}
	}
	if len(docs) == 0 {
		return 0, nil
	}

	err = r.store.InTransaction(ctx, func(tx store.Tx) error {
		for _, doc := range docs {
			if err := tx.Remove(Collection, doc.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, &StoreError{Op: "delete eligible reports", Err: err}
	}

	for _, doc := range docs {
		log.Info().Str("reportID", doc.ID).Msg("Deleted reviewed report past retention")
	}
	return len(docs), nil
}

func decodeReports(docs []store.Doc) ([]Report, error) {
	result := make([]Report, 0, len(docs))
	for _, doc := range docs {
		var report Report
		if err := json.Unmarshal(doc.Data, &report); err != nil {
			return nil, fmt.Errorf("decode report %s: %w", doc.ID, err)
		}
		report.ID = doc.ID
		result = append(result, report)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *Repository) wrap(op, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Kind: "report", ID: id}
	}
	return &StoreError{Op: op, Err: err}
}
