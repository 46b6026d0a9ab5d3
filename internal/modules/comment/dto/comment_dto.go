package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/edulab-vn/topic-management-api/internal/entity"
)

type CreateCommentRequest struct {
	Content  string `json:"content" binding:"required,min=1,max=5000"`
	ParentID string `json:"parentId" binding:"omitempty,uuid"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" binding:"required,min=1,max=5000"`
}

type UpdateCommentStatusRequest struct {
	Status *int `json:"status" binding:"required,oneof=0 1"`
}

type AuthorResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type CommentResponse struct {
	ID        uuid.UUID         `json:"id"`
	TopicID   uuid.UUID         `json:"topicId"`
	Content   string            `json:"content"`
	Status    int               `json:"status"`
	ParentID  *uuid.UUID        `json:"parentId,omitempty"`
	Author    AuthorResponse    `json:"author"`
	Replies   []CommentResponse `json:"replies"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func NewCommentResponse(comment *entity.Comment) CommentResponse {
	replies := make([]CommentResponse, 0, len(comment.Replies))
	for i := range comment.Replies {
		replies = append(replies, NewCommentResponse(&comment.Replies[i]))
	}

	return CommentResponse{
		ID:       comment.ID,
		TopicID:  comment.TopicID,
		Content:  comment.Content,
		Status:   comment.Status,
		ParentID: comment.ParentID,
		Author: AuthorResponse{
			ID:   comment.User.ID,
			Name: comment.User.Name,
		},
		Replies:   replies,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
}
