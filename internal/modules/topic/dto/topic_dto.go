package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edulab-vn/topic-management-api/internal/entity"
	"github.com/edulab-vn/topic-management-api/pkg/dto"
)

type CreateTopicRequest struct {
	Name        string   `json:"name" binding:"required,min=3,max=255"`
	Description string   `json:"description" binding:"max=5000"`
	TeacherID   string   `json:"teacherId" binding:"omitempty,uuid"`
	StudentIDs  []string `json:"studentIds" binding:"omitempty,dive,uuid"`
}

// Normalize title-cases the name (first letter of each word upper, the rest
// lower) so casing variants of the same name cannot slip past the exact-match
// uniqueness check.
func (r *CreateTopicRequest) Normalize() {
	words := strings.Split(strings.TrimSpace(r.Name), " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		runes := []rune(strings.ToLower(word))
		words[i] = strings.ToUpper(string(runes[0])) + string(runes[1:])
	}
	r.Name = strings.Join(words, " ")
}

// UpdateTopicRequest is a partial update; nil fields are left untouched.
type UpdateTopicRequest struct {
	Name        *string   `json:"name" binding:"omitempty,min=3,max=255"`
	Description *string   `json:"description" binding:"omitempty,max=5000"`
	Status      *string   `json:"status" binding:"omitempty,oneof=inprocess done"`
	Action      *string   `json:"action" binding:"omitempty,oneof=open close"`
	Score       *float64  `json:"score" binding:"omitempty,gte=0,lte=100"`
	TeacherID   *string   `json:"teacherId" binding:"omitempty,uuid"`
	StudentIDs  *[]string `json:"studentIds" binding:"omitempty,dive,uuid"`
}

// TopicFilter doubles as the cache key material: the JSON form of the full
// struct (pagination included) is appended to the cache prefix.
type TopicFilter struct {
	Name       string   `form:"name" json:"name,omitempty"`
	CreatorID  string   `form:"creatorId" json:"creatorId,omitempty" binding:"omitempty,uuid"`
	TeacherID  string   `form:"teacherId" json:"teacherId,omitempty" binding:"omitempty,uuid"`
	Status     string   `form:"status" json:"status,omitempty" binding:"omitempty,oneof=inprocess done"`
	ScoreGte   *float64 `form:"scoreGte" json:"scoreGte,omitempty"`
	ScoreLte   *float64 `form:"scoreLte" json:"scoreLte,omitempty"`
	CreatedGte string   `form:"createdGte" json:"createdGte,omitempty" binding:"omitempty,datetime=2006-01-02"`
	CreatedLte string   `form:"createdLte" json:"createdLte,omitempty" binding:"omitempty,datetime=2006-01-02"`
	dto.PageQuery
}

type ParticipantResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type TopicResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CreatorID   uuid.UUID  `json:"creatorId"`
	TeacherID   *uuid.UUID `json:"teacherId"`
	TeacherName string     `json:"teacherName,omitempty"`
	Status      string     `json:"status"`
	Action      string     `json:"action"`
	Score       float64    `json:"score"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TopicDetailResponse adds the enrolled students (teacher excluded).
type TopicDetailResponse struct {
	TopicResponse
	Students []ParticipantResponse `json:"students"`
}

func NewTopicResponse(topic *entity.Topic) TopicResponse {
	resp := TopicResponse{
		ID:          topic.ID,
		Name:        topic.Name,
		Description: topic.Description,
		CreatorID:   topic.CreatorID,
		TeacherID:   topic.TeacherID,
		Status:      topic.Status,
		Action:      topic.Action,
		Score:       topic.Score,
		CreatedAt:   topic.CreatedAt,
		UpdatedAt:   topic.UpdatedAt,
	}
	if topic.Teacher != nil {
		resp.TeacherName = topic.Teacher.Name
	}
	return resp
}

func NewTopicDetailResponse(topic *entity.Topic) *TopicDetailResponse {
	students := make([]ParticipantResponse, 0, len(topic.TopicUsers))
	for _, tu := range topic.TopicUsers {
		if topic.TeacherID != nil && tu.UserID == *topic.TeacherID {
			continue
		}
		students = append(students, ParticipantResponse{
			ID:    tu.User.ID,
			Name:  tu.User.Name,
			Email: tu.User.Email,
		})
	}

	return &TopicDetailResponse{
		TopicResponse: NewTopicResponse(topic),
		Students:      students,
	}
}
