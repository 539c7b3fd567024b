// Package reviews owns review documents and the joint commit that
// resolves a report: filing a review and finalizing its report are one
// store transaction, never two independent writes.
package reviews

import (
	"strings"
	"time"

	"github.com/Sonnyywithanyextray/CheckMate/internal/reports"
)

// Collection is the store collection holding review documents.
const Collection = "reviews"

// Review records a reviewer's evidence, conclusions, and classification
// for one report. It references the report but does not own its
// lifecycle.
type Review struct {
	ID          string         `json:"-"`
	ReportID    string         `json:"reportId"`
	ReviewedBy  string         `json:"reviewedBy"`
	Evidence    string         `json:"evidence"`
	Conclusions string         `json:"conclusions"`
	Result      reports.Result `json:"result"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Classify derives a classification from free-text conclusions by
// case-insensitive keyword match: "not misinformation" debunks the
// claim, a bare "misinformation" confirms it, anything else is
// inconclusive. A keyword heuristic, not a classifier.
func Classify(conclusions string) reports.Result {
	lower := strings.ToLower(conclusions)
	if strings.Contains(lower, "not misinformation") {
		return reports.ResultDebunked
	}
	if strings.Contains(lower, "misinformation") {
		return reports.ResultConfirmed
	}
	return reports.ResultInconclusive
}
