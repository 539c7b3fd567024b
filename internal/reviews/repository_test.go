package reviews

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sonnyywithanyextray/CheckMate/internal/reports"
	"github.com/Sonnyywithanyextray/CheckMate/internal/store/storetest"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		conclusions string
		want        reports.Result
	}{
		{
			name:        "not misinformation debunks",
			conclusions: "this is not misinformation",
			want:        reports.ResultDebunked,
		},
		{
			name:        "bare misinformation confirms",
			conclusions: "clearly misinformation, sources disagree entirely",
			want:        reports.ResultConfirmed,
		},
		{
			name:        "case insensitive",
			conclusions: "This Is NOT Misinformation at all",
			want:        reports.ResultDebunked,
		},
		{
			name:        "neither keyword is inconclusive",
			conclusions: "could not verify the claim either way",
			want:        reports.ResultInconclusive,
		},
		{
			name:        "empty is inconclusive",
			conclusions: "",
			want:        reports.ResultInconclusive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.conclusions); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.conclusions, got, tt.want)
			}
		})
	}
}

func newTestRepos(retention time.Duration) (*storetest.Memory, *reports.Repository, *Repository) {
	mem := storetest.NewMemory()
	reportRepo := reports.NewRepository(mem)
	return mem, reportRepo, NewRepository(mem, reportRepo, retention)
}

func submitAndClaim(t *testing.T, reportRepo *reports.Repository, reviewer string) reports.Report {
	t.Helper()
	ctx := context.Background()
	report, err := reportRepo.Submit(ctx, "https://example.com/x", "short claim", "u1")
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	claimed, err := reportRepo.Claim(ctx, report.ID, reviewer)
	if err != nil {
		t.Fatalf("Claim() error: %v", err)
	}
	return claimed
}

func TestFileReviewJointCommit(t *testing.T) {
	ctx := context.Background()
	mem, reportRepo, reviewRepo := newTestRepos(24 * time.Hour)
	claimed := submitAndClaim(t, reportRepo, "u2")

	review, finalized, err := reviewRepo.FileReview(ctx, claimed.ID, "u2", "https://factcheck.example", "this is not misinformation")
	if err != nil {
		t.Fatalf("FileReview() error: %v", err)
	}

	if review.ReportID != claimed.ID {
		t.Errorf("review.reportId = %q, want %q", review.ReportID, claimed.ID)
	}
	if review.Result != reports.ResultDebunked {
		t.Errorf("review result = %q, want %q", review.Result, reports.ResultDebunked)
	}
	if finalized.Status != reports.StatusReviewed {
		t.Errorf("report status = %q, want %q", finalized.Status, reports.StatusReviewed)
	}
	if finalized.Result == nil || *finalized.Result != review.Result {
		t.Errorf("report result = %v, want %q", finalized.Result, review.Result)
	}
	if finalized.DeletedAt == nil {
		t.Error("finalized report has no retention deadline")
	} else if got, want := finalized.DeletedAt.Sub(finalized.UpdatedAt), 24*time.Hour; got != want {
		t.Errorf("retention deadline offset = %v, want %v", got, want)
	}

	// Exactly one review document referencing the report exists.
	stored, err := reviewRepo.ListForReport(ctx, claimed.ID)
	if err != nil {
		t.Fatalf("ListForReport() error: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != review.ID {
		t.Errorf("stored reviews = %v, want just %s", stored, review.ID)
	}

	// Both documents visible in the store.
	docs, err := mem.Query(ctx, Collection)
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("review documents = %d, want 1", len(docs))
	}
}

func TestFileReviewValidation(t *testing.T) {
	ctx := context.Background()
	_, reportRepo, reviewRepo := newTestRepos(time.Hour)
	claimed := submitAndClaim(t, reportRepo, "u2")

	tests := []struct {
		name        string
		evidence    string
		conclusions string
	}{
		{name: "empty evidence", evidence: "", conclusions: "misinformation"},
		{name: "blank evidence", evidence: "  ", conclusions: "misinformation"},
		{name: "empty conclusions", evidence: "https://source", conclusions: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := reviewRepo.FileReview(ctx, claimed.ID, "u2", tt.evidence, tt.conclusions)
			var validation *reports.ValidationError
			if !errors.As(err, &validation) {
				t.Errorf("FileReview() error = %v, want ValidationError", err)
			}
		})
	}

	// Validation failures leave the report in review.
	current, err := reportRepo.Get(ctx, claimed.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if current.Status != reports.StatusInReview {
		t.Errorf("status after failed reviews = %q, want %q", current.Status, reports.StatusInReview)
	}
}

func TestFileReviewMissingReport(t *testing.T) {
	_, _, reviewRepo := newTestRepos(time.Hour)
	_, _, err := reviewRepo.FileReview(context.Background(), "no-such-id", "u2", "evidence", "conclusions")
	var notFound *reports.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("FileReview() error = %v, want NotFoundError", err)
	}
}

func TestFileReviewRollsBackOnConflict(t *testing.T) {
	ctx := context.Background()
	mem, reportRepo, reviewRepo := newTestRepos(time.Hour)
	claimed := submitAndClaim(t, reportRepo, "u2")

	// Wrong reviewer: the finalize fails inside the transaction, so no
	// review document may survive.
	_, _, err := reviewRepo.FileReview(ctx, claimed.ID, "intruder", "evidence", "misinformation")
	var conflict *reports.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("FileReview() by non-assignee error = %v, want ConflictError", err)
	}

	docs, err := mem.Query(ctx, Collection)
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("orphaned review documents after rollback: %d", len(docs))
	}

	current, _ := reportRepo.Get(ctx, claimed.ID)
	if current.Status != reports.StatusInReview {
		t.Errorf("report status = %q, want %q", current.Status, reports.StatusInReview)
	}

	// Filing against an already reviewed report is also a conflict.
	if _, _, err := reviewRepo.FileReview(ctx, claimed.ID, "u2", "evidence", "conclusions"); err != nil {
		t.Fatalf("FileReview() error: %v", err)
	}
	_, _, err = reviewRepo.FileReview(ctx, claimed.ID, "u2", "more evidence", "conclusions")
	if !errors.As(err, &conflict) {
		t.Errorf("second FileReview() error = %v, want ConflictError", err)
	}
}
