package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"bugtalk/internal/model"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, category *model.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return fmt.Errorf("create category failed: %w", translate(err))
	}
	return nil
}

func (r *CategoryRepository) Update(ctx context.Context, category *model.Category) error {
	err := r.db.WithContext(ctx).Model(category).Select("title", "description").Updates(category).Error
	if err != nil {
		return fmt.Errorf("update category failed: %w", translate(err))
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM post_categories WHERE category_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Category{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete category failed: %w", err)
	}
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id uint) (*model.Category, error) {
	var category model.Category
	if err := r.withCounts(ctx).Where("categories.id = ?", id).Take(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get category failed: %w", err)
	}
	return &category, nil
}

// GetByTitle matches title case-insensitively.
func (r *CategoryRepository) GetByTitle(ctx context.Context, title string) (*model.Category, error) {
	var category model.Category
	err := r.db.WithContext(ctx).
		Where("LOWER(title) = ?", strings.ToLower(strings.TrimSpace(title))).
		First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get category by title failed: %w", err)
	}
	return &category, nil
}

func (r *CategoryRepository) GetByTitles(ctx context.Context, titles []string) ([]model.Category, error) {
	if len(titles) == 0 {
		return nil, nil
	}
	lowered := make([]string, 0, len(titles))
	for _, title := range titles {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(title)))
	}

	var categories []model.Category
	if err := r.db.WithContext(ctx).Where("LOWER(title) IN ?", lowered).Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("get categories by titles failed: %w", err)
	}
	return categories, nil
}

func (r *CategoryRepository) List(ctx context.Context, page Page) ([]model.Category, int64, error) {
	page = page.Normalize()

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Category{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count categories failed: %w", err)
	}

	var categories []model.Category
	err := r.withCounts(ctx).
		Order("categories.title ASC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&categories).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list categories failed: %w", err)
	}
	return categories, total, nil
}

// withCounts derives posts_count from ACTIVE posts only, since the count is shown
// to anonymous readers.
func (r *CategoryRepository) withCounts(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.Category{}).
		Select("categories.*, COUNT(posts.id) AS posts_count").
		Joins("LEFT JOIN post_categories ON post_categories.category_id = categories.id").
		Joins("LEFT JOIN posts ON posts.id = post_categories.post_id AND posts.status = ?", model.PostActive).
		Group("categories.id")
}
