package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/edulab-vn/topic-management-api/internal/entity"
	"github.com/edulab-vn/topic-management-api/pkg/dto"
)

type CreateReportRequest struct {
	Description string `json:"description" binding:"max=5000"`
	Filename    string `json:"filename" binding:"required,url"`
}

// UpdateReportRequest is a partial update. Status is teacher-only; the
// service enforces that, not the binding.
type UpdateReportRequest struct {
	Description *string `json:"description" binding:"omitempty,max=5000"`
	Filename    *string `json:"filename" binding:"omitempty,url"`
	Status      *int    `json:"status" binding:"omitempty,oneof=0 1 2"`
}

type ReportFilter struct {
	Status *int `form:"status" binding:"omitempty,oneof=0 1 2"`
	dto.PageQuery
}

type ReportResponse struct {
	ID          uuid.UUID `json:"id"`
	TopicID     uuid.UUID `json:"topicId"`
	UserID      uuid.UUID `json:"userId"`
	AuthorName  string    `json:"authorName"`
	Description string    `json:"description"`
	Filename    string    `json:"filename"`
	Status      int       `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type UploadResponse struct {
	URL string `json:"url"`
}

func NewReportResponse(report *entity.Report) ReportResponse {
	return ReportResponse{
		ID:          report.ID,
		TopicID:     report.TopicID,
		UserID:      report.UserID,
		AuthorName:  report.User.Name,
		Description: report.Description,
		Filename:    report.Filename,
		Status:      report.Status,
		CreatedAt:   report.CreatedAt,
		UpdatedAt:   report.UpdatedAt,
	}
}
