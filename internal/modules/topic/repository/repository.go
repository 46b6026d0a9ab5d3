package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/edulab-vn/topic-management-api/internal/entity"
	"github.com/edulab-vn/topic-management-api/pkg/database"
)

// Filter is the repository-level shape of the topic list filters. Date bounds
// arrive already widened to day boundaries by the service.
type Filter struct {
	Name        string
	CreatorID   *uuid.UUID
	TeacherID   *uuid.UUID
	Status      string
	ScoreGte    *float64
	ScoreLte    *float64
	CreatedGte  *int64
	CreatedLte  *int64
	RestrictIDs []uuid.UUID
}

type Repository interface {
	Create(ctx context.Context, topic *entity.Topic) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Topic, error)
	FindByName(ctx context.Context, name string) (*entity.Topic, error)
	FindAll(ctx context.Context, filter Filter, page, pageSize int) ([]entity.Topic, int64, error)
	Update(ctx context.Context, topic *entity.Topic) error
	Delete(ctx context.Context, id uuid.UUID) error

	IsParticipant(ctx context.Context, topicID, userID uuid.UUID) (bool, error)
	ParticipantIDs(ctx context.Context, topicID uuid.UUID) ([]uuid.UUID, error)
	EnrolledTopicIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	Enroll(ctx context.Context, topicID uuid.UUID, userIDs []uuid.UUID) error
	Unenroll(ctx context.Context, topicID uuid.UUID, userIDs []uuid.UUID) error
	DeleteEnrollments(ctx context.Context, topicID uuid.UUID) error
	DeleteReports(ctx context.Context, topicID uuid.UUID) error

	Transaction(ctx context.Context, opts database.TxOptions, fn func(ctx context.Context, r Repository) error) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, topic *entity.Topic) error {
	return r.db.WithContext(ctx).Create(topic).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Topic, error) {
	var topic entity.Topic
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Teacher").
		Preload("TopicUsers.User").
		First(&topic, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *repository) FindByName(ctx context.Context, name string) (*entity.Topic, error) {
	var topic entity.Topic
	err := r.db.WithContext(ctx).First(&topic, "name = ?", name).Error
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *repository) FindAll(ctx context.Context, filter Filter, page, pageSize int) ([]entity.Topic, int64, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&entity.Topic{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var topics []entity.Topic
	err := query.
		Preload("Teacher").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&topics).Error
	return topics, total, err
}

func (r *repository) applyFilter(query *gorm.DB, filter Filter) *gorm.DB {
	if filter.Name != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Name+"%")
	}
	if filter.CreatorID != nil {
		query = query.Where("creator_id = ?", *filter.CreatorID)
	}
	if filter.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filter.TeacherID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ScoreGte != nil {
		query = query.Where("score >= ?", *filter.ScoreGte)
	}
	if filter.ScoreLte != nil {
		query = query.Where("score <= ?", *filter.ScoreLte)
	}
	if filter.CreatedGte != nil {
		query = query.Where("created_at >= to_timestamp(?)", *filter.CreatedGte)
	}
	if filter.CreatedLte != nil {
		query = query.Where("created_at <= to_timestamp(?)", *filter.CreatedLte)
	}
	if filter.RestrictIDs != nil {
		query = query.Where("id IN ?", filter.RestrictIDs)
	}
	return query
}

func (r *repository) Update(ctx context.Context, topic *entity.Topic) error {
	return r.db.WithContext(ctx).Save(topic).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Topic{}, "id = ?", id).Error
}

func (r *repository) IsParticipant(ctx context.Context, topicID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.TopicUser{}).
		Where("topic_id = ? AND user_id = ?", topicID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ParticipantIDs(ctx context.Context, topicID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&entity.TopicUser{}).
		Where("topic_id = ?", topicID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *repository) EnrolledTopicIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&entity.TopicUser{}).
		Where("user_id = ?", userID).
		Pluck("topic_id", &ids).Error
	return ids, err
}

func (r *repository) Enroll(ctx context.Context, topicID uuid.UUID, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]entity.TopicUser, 0, len(userIDs))
	for _, userID := range userIDs {
		rows = append(rows, entity.TopicUser{TopicID: topicID, UserID: userID})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) Unenroll(ctx context.Context, topicID uuid.UUID, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("topic_id = ? AND user_id IN ?", topicID, userIDs).
		Delete(&entity.TopicUser{}).Error
}

func (r *repository) DeleteEnrollments(ctx context.Context, topicID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("topic_id = ?", topicID).
		Delete(&entity.TopicUser{}).Error
}

func (r *repository) DeleteReports(ctx context.Context, topicID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("topic_id = ?", topicID).
		Delete(&entity.Report{}).Error
}

func (r *repository) Transaction(ctx context.Context, opts database.TxOptions, fn func(ctx context.Context, r Repository) error) error {
	return database.RunInTx(ctx, r.db, opts, func(ctx context.Context, tx *gorm.DB) error {
		return fn(ctx, &repository{db: tx})
	})
}
