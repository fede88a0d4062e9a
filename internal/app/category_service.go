package app

import (
	"context"
	"errors"
	"strings"

	"bugtalk/internal/model"
	"bugtalk/internal/repository"
)

type CategoryService struct {
	categories CategoryStore
	posts      PostStore
}

type CategoryInput struct {
	Title       *string
	Description *string
}

func NewCategoryService(categories CategoryStore, posts PostStore) *CategoryService {
	return &CategoryService{categories: categories, posts: posts}
}

func (s *CategoryService) List(ctx context.Context, page repository.Page) (*PageResult[model.Category], error) {
	categories, total, err := s.categories.List(ctx, page)
	if err != nil {
		return nil, err
	}
	return newPage(categories, total, page), nil
}

func (s *CategoryService) Get(ctx context.Context, id uint) (*model.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	return category, nil
}

// ListPosts lists posts tagged with the category; non-admins see ACTIVE ones only.
func (s *CategoryService) ListPosts(ctx context.Context, viewer *model.User, id uint, page repository.Page) (*PageResult[model.Post], error) {
	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	q := repository.PostQuery{Categories: []string{category.Title}, Page: page}
	if !viewer.IsAdmin() {
		q.Status = model.PostActive
	}
	posts, total, err := s.posts.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return newPage(posts, total, page), nil
}

func (s *CategoryService) Create(ctx context.Context, input CategoryInput) (*model.Category, error) {
	if input.Title == nil || strings.TrimSpace(*input.Title) == "" {
		return nil, ErrInvalidInput
	}
	category := &model.Category{Title: strings.TrimSpace(*input.Title)}
	if input.Description != nil {
		category.Description = strings.TrimSpace(*input.Description)
	}

	if err := s.ensureTitleFree(ctx, category.Title, 0); err != nil {
		return nil, err
	}
	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCategoryExists
		}
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) Update(ctx context.Context, id uint, input CategoryInput) (*model.Category, error) {
	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrInvalidInput
		}
		if err := s.ensureTitleFree(ctx, title, category.ID); err != nil {
			return nil, err
		}
		category.Title = title
	}
	if input.Description != nil {
		category.Description = strings.TrimSpace(*input.Description)
	}

	if err := s.categories.Update(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCategoryExists
		}
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	category, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.categories.Delete(ctx, category.ID)
}

// ensureTitleFree compares titles case-insensitively, ignoring the category selfID.
func (s *CategoryService) ensureTitleFree(ctx context.Context, title string, selfID uint) error {
	existing, err := s.categories.GetByTitle(ctx, title)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return ErrCategoryExists
	}
	return nil
}
