package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"bugtalk/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user failed: %w", translate(err))
	}
	return nil
}

// Update writes profile columns only. Rating is owned by the like transactions.
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Model(user).
		Select("login", "email", "password", "full_name", "avatar", "role", "verified").
		Updates(user).Error
	if err != nil {
		return fmt.Errorf("update user failed: %w", translate(err))
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.User{}, id).Error; err != nil {
		return fmt.Errorf("delete user failed: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	return r.first("login", r.db.WithContext(ctx).Where("login = ?", login))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first("email", r.db.WithContext(ctx).Where("email = ?", email))
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	return r.first("id", r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *UserRepository) List(ctx context.Context, page Page) ([]model.User, int64, error) {
	page = page.Normalize()

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users failed: %w", err)
	}

	var users []model.User
	if err := r.db.WithContext(ctx).Order("id ASC").Offset(page.Offset()).Limit(page.Size).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("list users failed: %w", err)
	}
	return users, total, nil
}

func (r *UserRepository) first(by string, q *gorm.DB) (*model.User, error) {
	var user model.User
	if err := q.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by %s failed: %w", by, err)
	}
	return &user, nil
}
