package reports

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sonnyywithanyextray/CheckMate/internal/store"
	"github.com/Sonnyywithanyextray/CheckMate/internal/store/storetest"
)

func newTestRepo() *Repository {
	return NewRepository(storetest.NewMemory())
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()

	report, err := repo.Submit(ctx, "https://example.com/x", "short claim", "u1")
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if report.ID == "" {
		t.Error("Submit() returned empty id")
	}
	if report.Status != StatusQueued {
		t.Errorf("status = %q, want %q", report.Status, StatusQueued)
	}
	if report.AssignedTo != nil {
		t.Errorf("assignedTo = %v, want nil", *report.AssignedTo)
	}
	if report.Result != nil {
		t.Errorf("result = %v, want nil", *report.Result)
	}
	if report.SubmittedBy != "u1" {
		t.Errorf("submittedBy = %q, want %q", report.SubmittedBy, "u1")
	}
	if report.CreatedAt.IsZero() || report.UpdatedAt.IsZero() {
		t.Error("timestamps not assigned")
	}

	stored, err := repo.Get(ctx, report.ID)
	if err != nil {
		t.Fatalf("Get() after Submit(): %v", err)
	}
	if stored.Link != "https://example.com/x" {
		t.Errorf("stored link = %q", stored.Link)
	}
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()

	tests := []struct {
		name        string
		link        string
		description string
	}{
		{name: "empty link", link: "", description: "something"},
		{name: "blank link", link: "   ", description: "something"},
		{name: "empty description", link: "https://example.com", description: ""},
		{name: "blank description", link: "https://example.com", description: " \t "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Submit(ctx, tt.link, tt.description, "u1")
			var validation *ValidationError
			if !errors.As(err, &validation) {
				t.Errorf("Submit() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestSubmitTruncatesLongDescription(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()

	long := strings.TrimSpace(strings.Repeat("word ", 70))
	report, err := repo.Submit(ctx, "https://example.com", long, "u1")
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	words := strings.Fields(report.Description)
	if len(words) != WordLimit {
		t.Errorf("stored description has %d words, want %d", len(words), WordLimit)
	}
}

func TestClaim(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()

	submitted, err := repo.Submit(ctx, "https://example.com", "claim me", "u1")
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	claimed, err := repo.Claim(ctx, submitted.ID, "u2")
	if err != nil {
		t.Fatalf("Claim() error: %v", err)
	}
	if claimed.Status != StatusInReview {
		t.Errorf("status = %q, want %q", claimed.Status, StatusInReview)
	}
	if claimed.AssignedTo == nil || *claimed.AssignedTo != "u2" {
		t.Errorf("assignedTo = %v, want u2", claimed.AssignedTo)
	}
	if !claimed.UpdatedAt.After(submitted.UpdatedAt) && !claimed.UpdatedAt.Equal(submitted.UpdatedAt) {
		t.Error("updatedAt not bumped")
	}

	// A second claim must fail and leave the report untouched.
	_, err = repo.Claim(ctx, submitted.ID, "u3")
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("second Claim() error = %v, want ConflictError", err)
	}
	current, err := repo.Get(ctx, submitted.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if current.AssignedTo == nil || *current.AssignedTo != "u2" {
		t.Errorf("failed claim modified the report: assignedTo = %v", current.AssignedTo)
	}
}

func TestClaimMissingReport(t *testing.T) {
	repo := newTestRepo()
	_, err := repo.Claim(context.Background(), "no-such-id", "u2")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("Claim() error = %v, want NotFoundError", err)
	}
}

func TestConcurrentClaimsOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()

	report, err := repo.Submit(ctx, "https://example.com", "contested", "u1")
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	reviewers := []string{"a", "b", "c", "d"}
	errs := make([]error, len(reviewers))
	var wg sync.WaitGroup
	for i, reviewer := range reviewers {
		wg.Add(1)
		go func(i int, reviewer string) {
			defer wg.Done()
			_, errs[i] = repo.Claim(ctx, report.ID, reviewer)
		}(i, reviewer)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		var conflict *ConflictError
		switch {
		case err == nil:
			wins++
		case errors.As(err, &conflict):
			conflicts++
		default:
			t.Errorf("unexpected claim error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
	if conflicts != len(reviewers)-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, len(reviewers)-1)
	}
}

func TestCancelClaim(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()

	report, _ := repo.Submit(ctx, "https://example.com", "abandon me", "u1")
	if _, err := repo.Claim(ctx, report.ID, "u2"); err != nil {
		t.Fatalf("Claim() error: %v", err)
	}

	// Only the assigned reviewer may cancel.
	_, err := repo.CancelClaim(ctx, report.ID, "u3")
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("CancelClaim() by other reviewer error = %v, want ConflictError", err)
	}

	cancelled, err := repo.CancelClaim(ctx, report.ID, "u2")
	if err != nil {
		t.Fatalf("CancelClaim() error: %v", err)
	}
	if cancelled.Status != StatusQueued {
		t.Errorf("status = %q, want %q", cancelled.Status, StatusQueued)
	}
	if cancelled.AssignedTo != nil {
		t.Errorf("assignedTo = %v, want nil", *cancelled.AssignedTo)
	}

	// Cancelling a queued report is a conflict.
	if _, err := repo.CancelClaim(ctx, report.ID, "u2"); !errors.As(err, &conflict) {
		t.Errorf("CancelClaim() on queued report error = %v, want ConflictError", err)
	}
}

func TestQueryByStatus(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()

	first, _ := repo.Submit(ctx, "https://example.com/1", "one", "u1")
	second, _ := repo.Submit(ctx, "https://example.com/2", "two", "u1")
	third, _ := repo.Submit(ctx, "https://example.com/3", "three", "u1")
	if _, err := repo.Claim(ctx, second.ID, "u2"); err != nil {
		t.Fatalf("Claim() error: %v", err)
	}

	queued, err := repo.QueryByStatus(ctx, StatusQueued)
	if err != nil {
		t.Fatalf("QueryByStatus() error: %v", err)
	}
	if len(queued) != 2 {
		t.Fatalf("queued count = %d, want 2", len(queued))
	}
	ids := map[string]bool{queued[0].ID: true, queued[1].ID: true}
	if !ids[first.ID] || !ids[third.ID] {
		t.Errorf("queued snapshot missing expected reports: %v", ids)
	}

	inReview, err := repo.QueryByStatus(ctx, StatusInReview)
	if err != nil {
		t.Fatalf("QueryByStatus() error: %v", err)
	}
	if len(inReview) != 1 || inReview[0].ID != second.ID {
		t.Errorf("in_review snapshot = %v, want just %s", inReview, second.ID)
	}
}

func finalizeReport(t *testing.T, repo *Repository, id, reviewer string, retention time.Duration) Report {
	t.Helper()
	var finalized Report
	err := repo.store.InTransaction(context.Background(), func(tx store.Tx) error {
		var err error
		finalized, err = repo.FinalizeTx(tx, id, reviewer, ResultConfirmed, retention)
		return err
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return finalized
}

func TestDeleteEligible(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()

	// queued: never deleted
	queued, _ := repo.Submit(ctx, "https://example.com/q", "queued", "u1")

	// in_review: never deleted
	inReview, _ := repo.Submit(ctx, "https://example.com/r", "reviewing", "u1")
	if _, err := repo.Claim(ctx, inReview.ID, "u2"); err != nil {
		t.Fatalf("Claim() error: %v", err)
	}

	// reviewed with retention already elapsed: deleted
	expired, _ := repo.Submit(ctx, "https://example.com/e", "expired", "u1")
	repo.Claim(ctx, expired.ID, "u2")
	finalizeReport(t, repo, expired.ID, "u2", -time.Minute)

	// reviewed but still inside retention: kept
	fresh, _ := repo.Submit(ctx, "https://example.com/f", "fresh", "u1")
	repo.Claim(ctx, fresh.ID, "u2")
	finalizeReport(t, repo, fresh.ID, "u2", time.Hour)

	deleted, err := repo.DeleteEligible(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("DeleteEligible() error: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	var notFound *NotFoundError
	if _, err := repo.Get(ctx, expired.ID); !errors.As(err, &notFound) {
		t.Errorf("expired report still present: %v", err)
	}
	for _, id := range []string{queued.ID, inReview.ID, fresh.ID} {
		if _, err := repo.Get(ctx, id); err != nil {
			t.Errorf("report %s unexpectedly deleted: %v", id, err)
		}
	}

	// Second run with nothing new eligible is a no-op.
	deleted, err = repo.DeleteEligible(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("second DeleteEligible() error: %v", err)
	}
	if deleted != 0 {
		t.Errorf("second run deleted = %d, want 0", deleted)
	}
}

func TestMarkForDeletion(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()

	report, _ := repo.Submit(ctx, "https://example.com", "to schedule", "u1")

	// Scheduling a non-reviewed report is a conflict.
	_, err := repo.MarkForDeletion(ctx, report.ID, time.Now().UTC())
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("MarkForDeletion() on queued report error = %v, want ConflictError", err)
	}

	repo.Claim(ctx, report.ID, "u2")
	finalizeReport(t, repo, report.ID, "u2", 24*time.Hour)

	deadline := time.Now().UTC().Truncate(time.Second).Add(-time.Minute)
	marked, err := repo.MarkForDeletion(ctx, report.ID, deadline)
	if err != nil {
		t.Fatalf("MarkForDeletion() error: %v", err)
	}
	if marked.DeletedAt == nil || !marked.DeletedAt.Equal(deadline) {
		t.Errorf("deletedAt = %v, want %v", marked.DeletedAt, deadline)
	}

	deleted, err := repo.DeleteEligible(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("DeleteEligible() error: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}
