package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/edulab-vn/topic-management-api/internal/entity"
	"github.com/edulab-vn/topic-management-api/pkg/database"
)

type Repository interface {
	Create(ctx context.Context, report *entity.Report) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Report, error)
	FindAllByTopic(ctx context.Context, topicID uuid.UUID, status *int, page, pageSize int) ([]entity.Report, int64, error)
	Update(ctx context.Context, report *entity.Report) error
	Delete(ctx context.Context, id uuid.UUID) error

	// FindTopic loads the owning topic with its enrolled users. Lives here so
	// report transactions can read the topic inside their own snapshot.
	FindTopic(ctx context.Context, topicID uuid.UUID) (*entity.Topic, error)

	Transaction(ctx context.Context, opts database.TxOptions, fn func(ctx context.Context, r Repository) error) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, report *entity.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	var report entity.Report
	err := r.db.WithContext(ctx).
		Preload("User").
		First(&report, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *repository) FindAllByTopic(ctx context.Context, topicID uuid.UUID, status *int, page, pageSize int) ([]entity.Report, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&entity.Report{}).
		Where("topic_id = ?", topicID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reports []entity.Report
	err := query.
		Preload("User").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&reports).Error
	return reports, total, err
}

func (r *repository) Update(ctx context.Context, report *entity.Report) error {
	return r.db.WithContext(ctx).Save(report).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Report{}, "id = ?", id).Error
}

func (r *repository) FindTopic(ctx context.Context, topicID uuid.UUID) (*entity.Topic, error) {
	var topic entity.Topic
	err := r.db.WithContext(ctx).
		Preload("TopicUsers.User").
		Preload("Teacher").
		First(&topic, "id = ?", topicID).Error
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *repository) Transaction(ctx context.Context, opts database.TxOptions, fn func(ctx context.Context, r Repository) error) error {
	return database.RunInTx(ctx, r.db, opts, func(ctx context.Context, tx *gorm.DB) error {
		return fn(ctx, &repository{db: tx})
	})
}
