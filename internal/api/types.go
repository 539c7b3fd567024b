package api

import (
	"time"

	"github.com/Sonnyywithanyextray/CheckMate/internal/reports"
	"github.com/Sonnyywithanyextray/CheckMate/internal/reviews"
)

type submitReportRequest struct {
	Link        string `json:"link" validate:"required"`
	Description string `json:"description" validate:"required"`
}

type fileReviewRequest struct {
	Evidence    string `json:"evidence" validate:"required"`
	Conclusions string `json:"conclusions" validate:"required"`
}

type reportResponse struct {
	ID          string     `json:"id"`
	Link        string     `json:"link"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	SubmittedBy string     `json:"submittedBy"`
	AssignedTo  *string    `json:"assignedTo"`
	Result      *string    `json:"result"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

type reviewResponse struct {
	ID          string    `json:"id"`
	ReportID    string    `json:"reportId"`
	ReviewedBy  string    `json:"reviewedBy"`
	Evidence    string    `json:"evidence"`
	Conclusions string    `json:"conclusions"`
	Result      string    `json:"result"`
	CreatedAt   time.Time `json:"createdAt"`
}

type fileReviewResponse struct {
	Review reviewResponse `json:"review"`
	Report reportResponse `json:"report"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toReportResponse(r reports.Report) reportResponse {
	resp := reportResponse{
		ID:          r.ID,
		Link:        r.Link,
		Description: r.Description,
		Status:      string(r.Status),
		SubmittedBy: r.SubmittedBy,
		AssignedTo:  r.AssignedTo,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		DeletedAt:   r.DeletedAt,
	}
	if r.Result != nil {
		result := string(*r.Result)
		resp.Result = &result
	}
	return resp
}

func toReportResponses(rs []reports.Report) []reportResponse {
	out := make([]reportResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, toReportResponse(r))
	}
	return out
}

func toReviewResponse(r reviews.Review) reviewResponse {
	return reviewResponse{
		ID:          r.ID,
		ReportID:    r.ReportID,
		ReviewedBy:  r.ReviewedBy,
		Evidence:    r.Evidence,
		Conclusions: r.Conclusions,
		Result:      string(r.Result),
		CreatedAt:   r.CreatedAt,
	}
}
