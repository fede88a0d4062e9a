package app

import (
	"context"
	"errors"

	"bugtalk/internal/model"
	"bugtalk/internal/repository"
)

// addLike records one vote per (user, target). The rating change happens in the store.
func addLike(ctx context.Context, likes LikeStore, user *model.User, target repository.LikeTarget, likeType model.LikeType) (*model.Like, error) {
	if !likeType.Valid() {
		return nil, ErrInvalidInput
	}

	existing, err := likes.Find(ctx, user.ID, target)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrLikeExists
	}

	like := &model.Like{AuthorID: user.ID, Type: likeType}
	if err := likes.Create(ctx, like, target); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrLikeExists
		}
		return nil, err
	}
	return like, nil
}

// removeLike relies on addLike's uniqueness: a (user, target) pair has at most one
// like, so reverting that single row's delta restores the ratings.
func removeLike(ctx context.Context, likes LikeStore, user *model.User, target repository.LikeTarget) error {
	existing, err := likes.Find(ctx, user.ID, target)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrLikeNotFound
	}

	if err := likes.Delete(ctx, existing, target); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return ErrLikeNotFound
		}
		return err
	}
	return nil
}
