package comment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/edulab-vn/topic-management-api/internal/entity"
	commentDto "github.com/edulab-vn/topic-management-api/internal/modules/comment/dto"
	repo "github.com/edulab-vn/topic-management-api/internal/modules/comment/repository"
	roleRepo "github.com/edulab-vn/topic-management-api/internal/modules/role/repository"
	topicRepo "github.com/edulab-vn/topic-management-api/internal/modules/topic/repository"
	"github.com/edulab-vn/topic-management-api/pkg/apperror"
)

type Service interface {
	Create(ctx context.Context, topicID, userID uuid.UUID, req commentDto.CreateCommentRequest) (*commentDto.CommentResponse, error)
	FindAll(ctx context.Context, topicID, userID, roleID uuid.UUID) ([]commentDto.CommentResponse, error)
	Update(ctx context.Context, commentID, userID uuid.UUID, req commentDto.UpdateCommentRequest) (*commentDto.CommentResponse, error)
	UpdateStatus(ctx context.Context, commentID, userID uuid.UUID, req commentDto.UpdateCommentStatusRequest) (*commentDto.CommentResponse, error)
	Remove(ctx context.Context, commentID, userID uuid.UUID) error
}

type service struct {
	commentRepo repo.Repository
	topicRepo   topicRepo.Repository
	roleRepo    roleRepo.Repository
}

func NewService(commentRepo repo.Repository, topicRepository topicRepo.Repository, roleRepository roleRepo.Repository) Service {
	return &service{
		commentRepo: commentRepo,
		topicRepo:   topicRepository,
		roleRepo:    roleRepository,
	}
}

func (s *service) Create(ctx context.Context, topicID, userID uuid.UUID, req commentDto.CreateCommentRequest) (*commentDto.CommentResponse, error) {
	if err := s.assertParticipant(ctx, topicID, userID); err != nil {
		return nil, err
	}

	topic, err := s.topicRepo.FindByID(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("topic not found: %w", apperror.ErrNotFound)
	}
	if topic.Closed() {
		return nil, fmt.Errorf("topic is closed for comments: %w", apperror.ErrValidation)
	}

	comment := &entity.Comment{
		Content: req.Content,
		TopicID: topicID,
		UserID:  userID,
		Status:  entity.CommentStatusUnresolved,
	}

	if req.ParentID != "" {
		parentID, err := uuid.Parse(req.ParentID)
		if err != nil {
			return nil, fmt.Errorf("invalid parent comment id: %w", apperror.ErrValidation)
		}
		parent, err := s.commentRepo.FindByID(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("parent comment not found: %w", apperror.ErrValidation)
		}
		if parent.TopicID != topicID {
			return nil, fmt.Errorf("parent comment belongs to a different topic: %w", apperror.ErrValidation)
		}
		comment.ParentID = &parentID
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	created, err := s.commentRepo.FindByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	resp := commentDto.NewCommentResponse(created)
	return &resp, nil
}

func (s *service) FindAll(ctx context.Context, topicID, userID, roleID uuid.UUID) ([]commentDto.CommentResponse, error) {
	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("role not found: %w", apperror.ErrUnauthorized)
	}
	if role.Name != entity.RoleAdmin {
		if err := s.assertParticipant(ctx, topicID, userID); err != nil {
			return nil, err
		}
	}

	comments, err := s.commentRepo.FindAllByTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}

	responses := make([]commentDto.CommentResponse, 0, len(comments))
	for i := range comments {
		responses = append(responses, commentDto.NewCommentResponse(&comments[i]))
	}
	return responses, nil
}

// Update edits the content. Author only; teachers and admins have no
// override here.
func (s *service) Update(ctx context.Context, commentID, userID uuid.UUID, req commentDto.UpdateCommentRequest) (*commentDto.CommentResponse, error) {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("comment not found: %w", apperror.ErrNotFound)
	}
	if comment.UserID != userID {
		return nil, fmt.Errorf("only the author can edit this comment: %w", apperror.ErrForbidden)
	}

	comment.Content = req.Content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	resp := commentDto.NewCommentResponse(comment)
	return &resp, nil
}

// UpdateStatus resolves or unresolves a comment. The author cannot judge
// their own comment; any other participant of the topic can.
func (s *service) UpdateStatus(ctx context.Context, commentID, userID uuid.UUID, req commentDto.UpdateCommentStatusRequest) (*commentDto.CommentResponse, error) {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("comment not found: %w", apperror.ErrNotFound)
	}
	if comment.UserID == userID {
		return nil, fmt.Errorf("you cannot change the status of your own comment: %w", apperror.ErrForbidden)
	}
	if err := s.assertParticipant(ctx, comment.TopicID, userID); err != nil {
		return nil, err
	}

	comment.Status = *req.Status
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to update comment status: %w", err)
	}

	resp := commentDto.NewCommentResponse(comment)
	return &resp, nil
}

func (s *service) Remove(ctx context.Context, commentID, userID uuid.UUID) error {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return fmt.Errorf("comment not found: %w", apperror.ErrNotFound)
	}
	if comment.UserID != userID {
		return fmt.Errorf("only the author can delete this comment: %w", apperror.ErrForbidden)
	}

	return s.commentRepo.Delete(ctx, commentID)
}

func (s *service) assertParticipant(ctx context.Context, topicID, userID uuid.UUID) error {
	enrolled, err := s.topicRepo.IsParticipant(ctx, topicID, userID)
	if err != nil {
		return err
	}
	if !enrolled {
		return fmt.Errorf("you are not a participant of this topic: %w", apperror.ErrForbidden)
	}
	return nil
}
