package app

import (
	"context"
	"errors"
	"strings"

	"bugtalk/internal/model"
	"bugtalk/internal/repository"
)

type CommentService struct {
	comments CommentStore
	posts    *PostService
	likes    LikeStore
}

func NewCommentService(comments CommentStore, posts *PostService, likes LikeStore) *CommentService {
	return &CommentService{comments: comments, posts: posts, likes: likes}
}

// ListByPost lists the comments of a post the viewer can see.
func (s *CommentService) ListByPost(ctx context.Context, viewer *model.User, postID uint, page repository.Page) (*PageResult[model.Comment], error) {
	post, err := s.posts.Get(ctx, viewer, postID)
	if err != nil {
		return nil, err
	}
	comments, total, err := s.comments.ListByPost(ctx, post.ID, page)
	if err != nil {
		return nil, err
	}
	return newPage(comments, total, page), nil
}

func (s *CommentService) Create(ctx context.Context, author *model.User, postID uint, content string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrInvalidInput
	}
	post, err := s.posts.Get(ctx, author, postID)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		AuthorID: author.ID,
		PostID:   post.ID,
		Content:  content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	comment.Author = author
	return comment, nil
}

// Get returns a comment whose post the viewer can see. Comments under an INACTIVE
// post read as not found for anyone but the post's author and admins.
func (s *CommentService) Get(ctx context.Context, viewer *model.User, id uint) (*model.Comment, error) {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, ErrCommentNotFound
	}
	if _, err := s.posts.Get(ctx, viewer, comment.PostID); err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) Update(ctx context.Context, actor *model.User, id uint, content string) (*model.Comment, error) {
	comment, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !CanMutate(comment.AuthorID, actor) {
		return nil, ErrNotOwner
	}
	if content = strings.TrimSpace(content); content == "" {
		return nil, ErrInvalidInput
	}

	comment.Content = content
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) Delete(ctx context.Context, actor *model.User, id uint) error {
	comment, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !CanMutate(comment.AuthorID, actor) {
		return ErrNotOwner
	}
	return s.comments.Delete(ctx, comment.ID)
}

func (s *CommentService) ListLikes(ctx context.Context, viewer *model.User, id uint) ([]model.Like, error) {
	comment, err := s.Get(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	return s.likes.ListByTarget(ctx, commentTarget(comment))
}

func (s *CommentService) AddLike(ctx context.Context, user *model.User, id uint, likeType model.LikeType) (*model.Like, error) {
	comment, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	return addLike(ctx, s.likes, user, commentTarget(comment), likeType)
}

func (s *CommentService) RemoveLike(ctx context.Context, user *model.User, id uint) error {
	comment, err := s.Get(ctx, user, id)
	if err != nil {
		return err
	}
	return removeLike(ctx, s.likes, user, commentTarget(comment))
}

func commentTarget(comment *model.Comment) repository.LikeTarget {
	return repository.LikeTarget{Kind: repository.LikeTargetComment, ID: comment.ID, AuthorID: comment.AuthorID}
}
