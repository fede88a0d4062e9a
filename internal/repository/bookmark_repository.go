package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"bugtalk/internal/model"
)

type BookmarkRepository struct {
	db *gorm.DB
}

func NewBookmarkRepository(db *gorm.DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

func (r *BookmarkRepository) Exists(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Bookmark{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check bookmark failed: %w", err)
	}
	return count > 0, nil
}

func (r *BookmarkRepository) Create(ctx context.Context, bookmark *model.Bookmark) error {
	if err := r.db.WithContext(ctx).Omit("Post", "User").Create(bookmark).Error; err != nil {
		return fmt.Errorf("create bookmark failed: %w", translate(err))
	}
	return nil
}

// Delete reports whether a bookmark row was removed.
func (r *BookmarkRepository) Delete(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&model.Bookmark{})
	if res.Error != nil {
		return false, fmt.Errorf("delete bookmark failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListPosts returns the user's bookmarked posts, newest bookmark first. An empty
// status lists every bookmarked post.
func (r *BookmarkRepository) ListPosts(ctx context.Context, userID uint, status model.PostStatus, page Page) ([]model.Post, int64, error) {
	page = page.Normalize()

	base := func() *gorm.DB {
		db := r.db.WithContext(ctx).Model(&model.Post{}).
			Joins("JOIN bookmarks ON bookmarks.post_id = posts.id").
			Where("bookmarks.user_id = ?", userID)
		if status != "" {
			db = db.Where("posts.status = ?", status)
		}
		return db
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count bookmarks failed: %w", err)
	}

	var posts []model.Post
	err := base().
		Preload("Author").
		Preload("Categories").
		Order("bookmarks.created_at DESC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&posts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list bookmarks failed: %w", err)
	}
	return posts, total, nil
}
