// Package reports owns the report lifecycle: the status state machine,
// its transitions, and the repository that applies them to the store.
package reports

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Collection is the store collection holding report documents. The
// field names below are read by other systems and must not change.
const Collection = "reports"

// WordLimit caps the report description. Words beyond the limit are
// dropped at submission time, not rejected.
const WordLimit = 50

// Status is the report lifecycle state. Progression is forward-only;
// cancelling a claim is the single documented reversal.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusInReview Status = "in_review"
	StatusReviewed Status = "reviewed"
)

// Result is the review classification. The canonical vocabulary is
// confirmed/debunked/inconclusive; the legacy vocabulary written by
// older clients is mapped on read.
type Result string

const (
	ResultConfirmed    Result = "confirmed"
	ResultDebunked     Result = "debunked"
	ResultInconclusive Result = "inconclusive"
)

// ParseResult accepts a canonical or legacy classification value.
func ParseResult(s string) (Result, error) {
	switch s {
	case string(ResultConfirmed), "misinformation":
		return ResultConfirmed, nil
	case string(ResultDebunked), "not_misinformation":
		return ResultDebunked, nil
	case string(ResultInconclusive), "more_context_needed":
		return ResultInconclusive, nil
	default:
		return "", fmt.Errorf("unrecognized classification %q", s)
	}
}

// UnmarshalJSON normalizes legacy vocabulary when reading stored
// documents.
func (r *Result) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseResult(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Report is a user-submitted claim of suspected misinformation.
type Report struct {
	ID          string     `json:"-"`
	Link        string     `json:"link"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	SubmittedBy string     `json:"submittedBy"`
	AssignedTo  *string    `json:"assignedTo"`
	Result      *Result    `json:"result"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// TruncateDescription keeps the first WordLimit words.
func TruncateDescription(description string) string {
	words := strings.Fields(description)
	if len(words) <= WordLimit {
		return description
	}
	return strings.Join(words[:WordLimit], " ")
}
