package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"bugtalk/internal/model"
)

type LikeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

func (r *LikeRepository) Find(ctx context.Context, authorID uint, target LikeTarget) (*model.Like, error) {
	var like model.Like
	err := r.byTarget(r.db.WithContext(ctx), target).Where("author_id = ?", authorID).First(&like).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s like failed: %w", target.Kind, err)
	}
	return &like, nil
}

func (r *LikeRepository) ListByTarget(ctx context.Context, target LikeTarget) ([]model.Like, error) {
	var likes []model.Like
	err := r.byTarget(r.db.WithContext(ctx), target).Preload("Author").Order("created_at ASC").Find(&likes).Error
	if err != nil {
		return nil, fmt.Errorf("list %s likes failed: %w", target.Kind, err)
	}
	return likes, nil
}

// Create stores the like and adds its delta to the target and the target's author
// in one transaction.
func (r *LikeRepository) Create(ctx context.Context, like *model.Like, target LikeTarget) error {
	switch target.Kind {
	case LikeTargetPost:
		like.PostID, like.CommentID = &target.ID, nil
	case LikeTargetComment:
		like.PostID, like.CommentID = nil, &target.ID
	default:
		return fmt.Errorf("unknown like target %q", target.Kind)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author", "Post", "Comment").Create(like).Error; err != nil {
			return translate(err)
		}
		return r.applyRating(tx, target, like.Type.Delta())
	})
	if err != nil {
		return fmt.Errorf("create %s like failed: %w", target.Kind, err)
	}
	return nil
}

// Delete removes the like and reverts its delta on the target and the target's author.
func (r *LikeRepository) Delete(ctx context.Context, like *model.Like, target LikeTarget) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Like{}, like.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrStale
		}
		return r.applyRating(tx, target, -like.Type.Delta())
	})
	if err != nil {
		return fmt.Errorf("delete %s like failed: %w", target.Kind, err)
	}
	return nil
}

func (r *LikeRepository) applyRating(tx *gorm.DB, target LikeTarget, delta int) error {
	table := "posts"
	if target.Kind == LikeTargetComment {
		table = "comments"
	}

	res := tx.Table(table).Where("id = ?", target.ID).UpdateColumn("rating", gorm.Expr("rating + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrStale
	}

	res = tx.Model(&model.User{}).Where("id = ?", target.AuthorID).UpdateColumn("rating", gorm.Expr("rating + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrStale
	}
	return nil
}

func (r *LikeRepository) byTarget(db *gorm.DB, target LikeTarget) *gorm.DB {
	if target.Kind == LikeTargetComment {
		return db.Where("comment_id = ?", target.ID)
	}
	return db.Where("post_id = ?", target.ID)
}
