package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/edulab-vn/topic-management-api/internal/entity"
	"github.com/edulab-vn/topic-management-api/pkg/database"
)

type Repository interface {
	Create(ctx context.Context, user *entity.User) error
	CreateMany(ctx context.Context, users []entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByEmails(ctx context.Context, emails []string) ([]entity.User, error)
	FindAll(ctx context.Context, page, pageSize int) ([]entity.User, int64, error)

	Transaction(ctx context.Context, opts database.TxOptions, fn func(ctx context.Context, r Repository) error) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) CreateMany(ctx context.Context, users []entity.User) error {
	if len(users) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&users).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Preload("Role").
		First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.User, error) {
	var users []entity.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&users).Error
	return users, err
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Preload("Role").
		First(&user, "email = ?", email).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByEmails(ctx context.Context, emails []string) ([]entity.User, error) {
	var users []entity.User
	if len(emails) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).
		Where("email IN ?", emails).
		Find(&users).Error
	return users, err
}

func (r *repository) FindAll(ctx context.Context, page, pageSize int) ([]entity.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&entity.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []entity.User
	err := r.db.WithContext(ctx).
		Preload("Role").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	return users, total, err
}

func (r *repository) Transaction(ctx context.Context, opts database.TxOptions, fn func(ctx context.Context, r Repository) error) error {
	return database.RunInTx(ctx, r.db, opts, func(ctx context.Context, tx *gorm.DB) error {
		return fn(ctx, &repository{db: tx})
	})
}
