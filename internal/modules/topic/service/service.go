package topic

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/edulab-vn/topic-management-api/internal/entity"
	roleRepo "github.com/edulab-vn/topic-management-api/internal/modules/role/repository"
	topicDto "github.com/edulab-vn/topic-management-api/internal/modules/topic/dto"
	repo "github.com/edulab-vn/topic-management-api/internal/modules/topic/repository"
	userRepo "github.com/edulab-vn/topic-management-api/internal/modules/user/repository"
	"github.com/edulab-vn/topic-management-api/pkg/apperror"
	"github.com/edulab-vn/topic-management-api/pkg/cache"
	"github.com/edulab-vn/topic-management-api/pkg/database"
	"github.com/edulab-vn/topic-management-api/pkg/dto"
)

type Service interface {
	Create(ctx context.Context, req topicDto.CreateTopicRequest, creatorID, creatorRoleID uuid.UUID) (*topicDto.TopicDetailResponse, error)
	FindAll(ctx context.Context, filter topicDto.TopicFilter) (*dto.Paginated[topicDto.TopicResponse], error)
	FindOne(ctx context.Context, id, userID, roleID uuid.UUID) (*topicDto.TopicDetailResponse, error)
	FindAllEnrolled(ctx context.Context, userID uuid.UUID, filter topicDto.TopicFilter) (*dto.Paginated[topicDto.TopicResponse], error)
	Update(ctx context.Context, topicID uuid.UUID, req topicDto.UpdateTopicRequest, userID uuid.UUID) (*topicDto.TopicDetailResponse, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

type service struct {
	topicRepo repo.Repository
	userRepo  userRepo.Repository
	roleRepo  roleRepo.Repository
	cache     cache.Store
	cacheTTL  time.Duration
}

func NewService(
	topicRepo repo.Repository,
	userRepo userRepo.Repository,
	roleRepo roleRepo.Repository,
	cacheStore cache.Store,
	cacheTTL time.Duration,
) Service {
	return &service{
		topicRepo: topicRepo,
		userRepo:  userRepo,
		roleRepo:  roleRepo,
		cache:     cacheStore,
		cacheTTL:  cacheTTL,
	}
}

// Create inserts the topic and enrolls the effective teacher plus all
// students in one transaction. Admin creators must name the teacher; teacher
// creators become the teacher themselves.
func (s *service) Create(ctx context.Context, req topicDto.CreateTopicRequest, creatorID, creatorRoleID uuid.UUID) (*topicDto.TopicDetailResponse, error) {
	if existing, err := s.topicRepo.FindByName(ctx, req.Name); err == nil && existing != nil {
		return nil, fmt.Errorf("topic name already exists: %w", apperror.ErrValidation)
	}

	role, err := s.roleRepo.FindByID(ctx, creatorRoleID)
	if err != nil {
		return nil, fmt.Errorf("role not found: %w", apperror.ErrUnauthorized)
	}

	teacherID := creatorID
	if role.Name == entity.RoleAdmin {
		if req.TeacherID == "" {
			return nil, fmt.Errorf("teacherId is required when an admin creates a topic: %w", apperror.ErrValidation)
		}
		id, err := uuid.Parse(req.TeacherID)
		if err != nil {
			return nil, fmt.Errorf("invalid teacher id: %w", apperror.ErrValidation)
		}
		if _, err := s.userRepo.FindByID(ctx, id); err != nil {
			return nil, fmt.Errorf("teacher not found: %w", apperror.ErrValidation)
		}
		teacherID = id
	}

	studentIDs, err := s.resolveStudentIDs(ctx, req.StudentIDs, teacherID)
	if err != nil {
		return nil, err
	}

	topic := &entity.Topic{
		Name:        req.Name,
		Description: req.Description,
		CreatorID:   creatorID,
		TeacherID:   &teacherID,
		Status:      entity.TopicStatusInProcess,
		Action:      entity.TopicActionOpen,
	}

	err = s.topicRepo.Transaction(ctx, database.TxTopicCreate, func(ctx context.Context, r repo.Repository) error {
		if err := r.Create(ctx, topic); err != nil {
			return fmt.Errorf("failed to create topic: %w", err)
		}
		return r.Enroll(ctx, topic.ID, append([]uuid.UUID{teacherID}, studentIDs...))
	})
	if err != nil {
		return nil, err
	}

	s.invalidateTopicCaches(ctx)

	created, err := s.topicRepo.FindByID(ctx, topic.ID)
	if err != nil {
		return nil, err
	}
	return topicDto.NewTopicDetailResponse(created), nil
}

func (s *service) FindAll(ctx context.Context, filter topicDto.TopicFilter) (*dto.Paginated[topicDto.TopicResponse], error) {
	filter.Normalize()
	key := listCacheKey(cache.KeyTopic, filter)

	var cached dto.Paginated[topicDto.TopicResponse]
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	page, err := s.queryPage(ctx, filter, nil)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, page, s.cacheTTL); err != nil {
		log.Printf("failed to cache topic list: %v", err)
	}
	return page, nil
}

func (s *service) FindOne(ctx context.Context, id, userID, roleID uuid.UUID) (*topicDto.TopicDetailResponse, error) {
	topic, err := s.topicRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("topic not found: %w", apperror.ErrNotFound)
	}

	if err := s.assertCanViewTopic(ctx, id, userID, roleID); err != nil {
		return nil, err
	}

	return topicDto.NewTopicDetailResponse(topic), nil
}

func (s *service) FindAllEnrolled(ctx context.Context, userID uuid.UUID, filter topicDto.TopicFilter) (*dto.Paginated[topicDto.TopicResponse], error) {
	filter.Normalize()

	enrolledIDs, err := s.topicRepo.EnrolledTopicIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(enrolledIDs) == 0 {
		return dto.NewPaginated[topicDto.TopicResponse](nil, 0, filter.Page, filter.PageSize), nil
	}

	key := listCacheKey(cache.KeyEnrolledTopic+":"+userID.String(), filter)

	var cached dto.Paginated[topicDto.TopicResponse]
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	page, err := s.queryPage(ctx, filter, enrolledIDs)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, page, s.cacheTTL); err != nil {
		log.Printf("failed to cache enrolled topic list: %v", err)
	}
	return page, nil
}

// Update applies a partial edit inside one serializable transaction. Setting
// a score is teacher-only and force-closes the topic regardless of any
// status/action supplied alongside it.
func (s *service) Update(ctx context.Context, topicID uuid.UUID, req topicDto.UpdateTopicRequest, userID uuid.UUID) (*topicDto.TopicDetailResponse, error) {
	var newTeacherID *uuid.UUID
	if req.TeacherID != nil {
		id, err := uuid.Parse(*req.TeacherID)
		if err != nil {
			return nil, fmt.Errorf("invalid teacher id: %w", apperror.ErrValidation)
		}
		if _, err := s.userRepo.FindByID(ctx, id); err != nil {
			return nil, fmt.Errorf("teacher not found: %w", apperror.ErrValidation)
		}
		newTeacherID = &id
	}

	var studentIDs []uuid.UUID
	if req.StudentIDs != nil {
		ids, err := parseUUIDs(*req.StudentIDs)
		if err != nil {
			return nil, err
		}
		found, err := s.userRepo.FindByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		if len(found) != len(ids) {
			return nil, fmt.Errorf("one or more students not found: %w", apperror.ErrValidation)
		}
		studentIDs = ids
	}

	err := s.topicRepo.Transaction(ctx, database.TxTopicEdit, func(ctx context.Context, r repo.Repository) error {
		topic, err := r.FindByID(ctx, topicID)
		if err != nil {
			return fmt.Errorf("topic not found: %w", apperror.ErrNotFound)
		}

		if req.Name != nil && *req.Name != topic.Name {
			if existing, err := r.FindByName(ctx, *req.Name); err == nil && existing != nil && existing.ID != topicID {
				return fmt.Errorf("topic name already exists: %w", apperror.ErrValidation)
			}
			topic.Name = *req.Name
		}
		if req.Description != nil {
			topic.Description = *req.Description
		}

		if req.Score != nil {
			if topic.TeacherID == nil || *topic.TeacherID != userID {
				return fmt.Errorf("only the topic teacher can set the score: %w", apperror.ErrForbidden)
			}
			// Scoring closes the topic; supplied status/action are ignored.
			topic.Score = *req.Score
			topic.Status = entity.TopicStatusDone
			topic.Action = entity.TopicActionClose
		} else {
			if req.Status != nil {
				if *req.Status == entity.TopicStatusDone && topic.Score == 0 {
					return fmt.Errorf("cannot mark a topic done without a score: %w", apperror.ErrValidation)
				}
				topic.Status = *req.Status
			}
			if req.Action != nil {
				topic.Action = *req.Action
			}
		}

		if newTeacherID != nil && (topic.TeacherID == nil || *topic.TeacherID != *newTeacherID) {
			if topic.TeacherID != nil {
				if err := r.Unenroll(ctx, topicID, []uuid.UUID{*topic.TeacherID}); err != nil {
					return err
				}
			}
			enrolled, err := r.IsParticipant(ctx, topicID, *newTeacherID)
			if err != nil {
				return err
			}
			if !enrolled {
				if err := r.Enroll(ctx, topicID, []uuid.UUID{*newTeacherID}); err != nil {
					return err
				}
			}
			topic.TeacherID = newTeacherID
		}

		if req.StudentIDs != nil {
			if err := s.reconcileStudents(ctx, r, topic, studentIDs); err != nil {
				return err
			}
		}

		return r.Update(ctx, topic)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateTopicCaches(ctx)

	updated, err := s.topicRepo.FindByID(ctx, topicID)
	if err != nil {
		return nil, err
	}
	return topicDto.NewTopicDetailResponse(updated), nil
}

// Remove deletes the topic with its enrollments and reports in one
// repeatable-read transaction, then drops both topic cache prefixes.
func (s *service) Remove(ctx context.Context, id uuid.UUID) error {
	if _, err := s.topicRepo.FindByID(ctx, id); err != nil {
		return fmt.Errorf("topic not found: %w", apperror.ErrNotFound)
	}

	err := s.topicRepo.Transaction(ctx, database.TxTopicDelete, func(ctx context.Context, r repo.Repository) error {
		if err := r.DeleteEnrollments(ctx, id); err != nil {
			return err
		}
		if err := r.DeleteReports(ctx, id); err != nil {
			return err
		}
		return r.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.invalidateTopicCaches(ctx)
	return nil
}

// assertCanViewTopic is the membership guard. Admins bypass it; everyone else
// needs an enrollment row.
func (s *service) assertCanViewTopic(ctx context.Context, topicID, userID, roleID uuid.UUID) error {
	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return fmt.Errorf("role not found: %w", apperror.ErrUnauthorized)
	}
	if role.Name == entity.RoleAdmin {
		return nil
	}

	enrolled, err := s.topicRepo.IsParticipant(ctx, topicID, userID)
	if err != nil {
		return err
	}
	if !enrolled {
		return fmt.Errorf("you are not a participant of this topic: %w", apperror.ErrForbidden)
	}
	return nil
}

// reconcileStudents diffs the desired student set against current enrollment.
// The teacher never takes part in the diff.
func (s *service) reconcileStudents(ctx context.Context, r repo.Repository, topic *entity.Topic, desired []uuid.UUID) error {
	current, err := r.ParticipantIDs(ctx, topic.ID)
	if err != nil {
		return err
	}

	isTeacher := func(id uuid.UUID) bool {
		return topic.TeacherID != nil && id == *topic.TeacherID
	}

	desiredSet := make(map[uuid.UUID]bool, len(desired))
	for _, id := range desired {
		if !isTeacher(id) {
			desiredSet[id] = true
		}
	}

	currentSet := make(map[uuid.UUID]bool, len(current))
	var toRemove []uuid.UUID
	for _, id := range current {
		if isTeacher(id) {
			continue
		}
		currentSet[id] = true
		if !desiredSet[id] {
			toRemove = append(toRemove, id)
		}
	}

	var toAdd []uuid.UUID
	for id := range desiredSet {
		if !currentSet[id] {
			toAdd = append(toAdd, id)
		}
	}

	if err := r.Unenroll(ctx, topic.ID, toRemove); err != nil {
		return err
	}
	return r.Enroll(ctx, topic.ID, toAdd)
}

func (s *service) resolveStudentIDs(ctx context.Context, raw []string, teacherID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := parseUUIDs(raw)
	if err != nil {
		return nil, err
	}

	students := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != teacherID {
			students = append(students, id)
		}
	}
	if len(students) == 0 {
		return students, nil
	}

	found, err := s.userRepo.FindByIDs(ctx, students)
	if err != nil {
		return nil, err
	}
	if len(found) != len(students) {
		return nil, fmt.Errorf("one or more students not found: %w", apperror.ErrValidation)
	}
	return students, nil
}

func (s *service) queryPage(ctx context.Context, filter topicDto.TopicFilter, restrictIDs []uuid.UUID) (*dto.Paginated[topicDto.TopicResponse], error) {
	repoFilter, err := buildRepoFilter(filter)
	if err != nil {
		return nil, err
	}
	repoFilter.RestrictIDs = restrictIDs

	topics, total, err := s.topicRepo.FindAll(ctx, repoFilter, filter.Page, filter.PageSize)
	if err != nil {
		return nil, err
	}

	responses := make([]topicDto.TopicResponse, 0, len(topics))
	for i := range topics {
		responses = append(responses, topicDto.NewTopicResponse(&topics[i]))
	}
	return dto.NewPaginated(responses, total, filter.Page, filter.PageSize), nil
}

// invalidateTopicCaches drops both topic list prefixes. Best-effort: a failed
// invalidation only extends staleness until the TTL expires.
func (s *service) invalidateTopicCaches(ctx context.Context) {
	if err := s.cache.DeleteByPrefix(ctx, cache.KeyTopic); err != nil {
		log.Printf("failed to invalidate topic cache: %v", err)
	}
	if err := s.cache.DeleteByPrefix(ctx, cache.KeyEnrolledTopic); err != nil {
		log.Printf("failed to invalidate enrolled topic cache: %v", err)
	}
}

func buildRepoFilter(filter topicDto.TopicFilter) (repo.Filter, error) {
	out := repo.Filter{
		Name:     filter.Name,
		Status:   filter.Status,
		ScoreGte: filter.ScoreGte,
		ScoreLte: filter.ScoreLte,
	}

	if filter.CreatorID != "" {
		id, err := uuid.Parse(filter.CreatorID)
		if err != nil {
			return out, fmt.Errorf("invalid creator id: %w", apperror.ErrValidation)
		}
		out.CreatorID = &id
	}
	if filter.TeacherID != "" {
		id, err := uuid.Parse(filter.TeacherID)
		if err != nil {
			return out, fmt.Errorf("invalid teacher id: %w", apperror.ErrValidation)
		}
		out.TeacherID = &id
	}

	// Date filters widen to full-day bounds.
	if filter.CreatedGte != "" {
		day, err := time.Parse("2006-01-02", filter.CreatedGte)
		if err != nil {
			return out, fmt.Errorf("invalid createdGte date: %w", apperror.ErrValidation)
		}
		gte := day.Unix()
		out.CreatedGte = &gte
	}
	if filter.CreatedLte != "" {
		day, err := time.Parse("2006-01-02", filter.CreatedLte)
		if err != nil {
			return out, fmt.Errorf("invalid createdLte date: %w", apperror.ErrValidation)
		}
		lte := day.Add(24*time.Hour - time.Second).Unix()
		out.CreatedLte = &lte
	}

	return out, nil
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", r, apperror.ErrValidation)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func listCacheKey(prefix string, filter topicDto.TopicFilter) string {
	payload, _ := json.Marshal(filter)
	return prefix + ":" + string(payload)
}
