package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bugtalk/internal/model"
)

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create inserts the post and links it to the already persisted post.Categories.
func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categories := post.Categories
		post.Categories = nil
		if err := tx.Omit(clause.Associations).Create(post).Error; err != nil {
			return err
		}
		if len(categories) > 0 {
			if err := tx.Model(post).Association("Categories").Append(categories); err != nil {
				return err
			}
		}
		post.Categories = categories
		return nil
	})
	if err != nil {
		return fmt.Errorf("create post failed: %w", err)
	}
	return nil
}

// Update saves scalar fields. A non-nil categories slice replaces the post's links.
func (r *PostRepository) Update(ctx context.Context, post *model.Post, categories []model.Category) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(post).Select("title", "content", "status").Updates(post).Error; err != nil {
			return err
		}
		if categories == nil {
			return nil
		}
		if err := tx.Model(post).Association("Categories").Replace(categories); err != nil {
			return err
		}
		post.Categories = categories
		return nil
	})
	if err != nil {
		return fmt.Errorf("update post failed: %w", err)
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM post_categories WHERE post_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Post{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete post failed: %w", err)
	}
	return nil
}

func (r *PostRepository) GetByID(ctx context.Context, id uint) (*model.Post, error) {
	var post model.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Categories").
		First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get post failed: %w", err)
	}
	return &post, nil
}

func (r *PostRepository) List(ctx context.Context, q PostQuery) ([]model.Post, int64, error) {
	q.Page = q.Page.Normalize()

	var total int64
	if err := r.filtered(ctx, q).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count posts failed: %w", err)
	}

	var posts []model.Post
	err := r.filtered(ctx, q).
		Preload("Author").
		Preload("Categories").
		Order(q.orderClause()).
		Offset(q.Page.Offset()).
		Limit(q.Page.Size).
		Find(&posts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list posts failed: %w", err)
	}
	return posts, total, nil
}

func (r *PostRepository) filtered(ctx context.Context, q PostQuery) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&model.Post{})

	if len(q.Categories) > 0 {
		titles := make([]string, 0, len(q.Categories))
		for _, title := range q.Categories {
			titles = append(titles, strings.ToLower(strings.TrimSpace(title)))
		}
		sub := r.db.Table("post_categories").
			Select("post_categories.post_id").
			Joins("JOIN categories ON categories.id = post_categories.category_id").
			Where("LOWER(categories.title) IN ?", titles)
		db = db.Where("posts.id IN (?)", sub)
	}
	if title := strings.TrimSpace(q.Title); title != "" {
		db = db.Where("LOWER(posts.title) LIKE ?", "%"+escapeLike(strings.ToLower(title))+"%")
	}
	if q.From != nil {
		db = db.Where("posts.created_at >= ?", *q.From)
	}
	if q.To != nil {
		db = db.Where("posts.created_at <= ?", *q.To)
	}
	if q.Status != "" {
		db = db.Where("posts.status = ?", q.Status)
	}
	if q.AuthorID != 0 {
		db = db.Where("posts.author_id = ?", q.AuthorID)
	}
	return db
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
