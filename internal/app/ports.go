package app

import (
	"context"
	"mime/multipart"
	"time"

	"bugtalk/internal/cache"
	"bugtalk/internal/model"
	"bugtalk/internal/repository"
)

// Lookups return (nil, nil) when the row does not exist.

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, page repository.Page) ([]model.User, int64, error)
}

type PostStore interface {
	Create(ctx context.Context, post *model.Post) error
	Update(ctx context.Context, post *model.Post, categories []model.Category) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*model.Post, error)
	List(ctx context.Context, q repository.PostQuery) ([]model.Post, int64, error)
}

type CommentStore interface {
	Create(ctx context.Context, comment *model.Comment) error
	Update(ctx context.Context, comment *model.Comment) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*model.Comment, error)
	ListByPost(ctx context.Context, postID uint, page repository.Page) ([]model.Comment, int64, error)
}

type CategoryStore interface {
	Create(ctx context.Context, category *model.Category) error
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*model.Category, error)
	GetByTitle(ctx context.Context, title string) (*model.Category, error)
	GetByTitles(ctx context.Context, titles []string) ([]model.Category, error)
	List(ctx context.Context, page repository.Page) ([]model.Category, int64, error)
}

type LikeStore interface {
	Find(ctx context.Context, authorID uint, target repository.LikeTarget) (*model.Like, error)
	ListByTarget(ctx context.Context, target repository.LikeTarget) ([]model.Like, error)
	Create(ctx context.Context, like *model.Like, target repository.LikeTarget) error
	Delete(ctx context.Context, like *model.Like, target repository.LikeTarget) error
}

type BookmarkStore interface {
	Exists(ctx context.Context, userID, postID uint) (bool, error)
	Create(ctx context.Context, bookmark *model.Bookmark) error
	Delete(ctx context.Context, userID, postID uint) (bool, error)
	// ListPosts lists bookmarked posts; a non-empty status restricts them.
	ListPosts(ctx context.Context, userID uint, status model.PostStatus, page repository.Page) ([]model.Post, int64, error)
}

type TokenStore interface {
	SaveOneTime(ctx context.Context, purpose cache.TokenPurpose, token, email string, ttl time.Duration) error
	// ConsumeOneTime returns the bound email and deletes the token in one step,
	// or "" when the token is unknown or expired.
	ConsumeOneTime(ctx context.Context, purpose cache.TokenPurpose, token string) (string, error)
	Blacklist(ctx context.Context, token string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

type MailSender interface {
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// AvatarStorage persists uploaded avatar files and returns their public URL.
type AvatarStorage interface {
	Save(file *multipart.FileHeader) (string, error)
	Remove(url string) error
}
