package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"bugtalk/internal/model"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, comment *model.Comment) error {
	if err := r.db.WithContext(ctx).Omit("Author", "Post").Create(comment).Error; err != nil {
		return fmt.Errorf("create comment failed: %w", err)
	}
	return nil
}

func (r *CommentRepository) Update(ctx context.Context, comment *model.Comment) error {
	if err := r.db.WithContext(ctx).Model(comment).Select("content").Updates(comment).Error; err != nil {
		return fmt.Errorf("update comment failed: %w", err)
	}
	return nil
}

func (r *CommentRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.Comment{}, id).Error; err != nil {
		return fmt.Errorf("delete comment failed: %w", err)
	}
	return nil
}

func (r *CommentRepository) GetByID(ctx context.Context, id uint) (*model.Comment, error) {
	var comment model.Comment
	if err := r.db.WithContext(ctx).Preload("Author").First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get comment failed: %w", err)
	}
	return &comment, nil
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID uint, page Page) ([]model.Comment, int64, error) {
	page = page.Normalize()

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Comment{}).Where("post_id = ?", postID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count comments failed: %w", err)
	}

	var comments []model.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&comments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list comments failed: %w", err)
	}
	return comments, total, nil
}
