package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"bugtalk/internal/model"
	"bugtalk/internal/repository"
)

type PostService struct {
	posts      PostStore
	categories CategoryStore
	likes      LikeStore
	bookmarks  BookmarkStore
}

type PostFilter struct {
	Categories []string
	Title      string
	From       *time.Time
	To         *time.Time
	Status     model.PostStatus
	SortBy     string
	Order      repository.SortOrder
	Page       repository.Page
}

type CreatePostInput struct {
	Title      string
	Content    string
	Categories []string
	Status     model.PostStatus
}

// UpdatePostInput applies only the non-nil fields.
type UpdatePostInput struct {
	Title      *string
	Content    *string
	Status     *model.PostStatus
	Categories *[]string
}

func NewPostService(posts PostStore, categories CategoryStore, likes LikeStore, bookmarks BookmarkStore) *PostService {
	return &PostService{
		posts:      posts,
		categories: categories,
		likes:      likes,
		bookmarks:  bookmarks,
	}
}

// List applies the filter. Non-admins only ever see ACTIVE posts, whatever
// status they ask for.
func (s *PostService) List(ctx context.Context, viewer *model.User, filter PostFilter) (*PageResult[model.Post], error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, newError(ErrBadRequest, "date range start is after its end")
	}

	status := filter.Status
	if !viewer.IsAdmin() {
		status = model.PostActive
	}

	q := repository.PostQuery{
		Categories: filter.Categories,
		Title:      filter.Title,
		From:       filter.From,
		To:         filter.To,
		Status:     status,
		SortBy:     filter.SortBy,
		Order:      filter.Order,
		Page:       filter.Page,
	}
	posts, total, err := s.posts.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return newPage(posts, total, filter.Page), nil
}

func (s *PostService) Get(ctx context.Context, viewer *model.User, id uint) (*model.Post, error) {
	post, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Status != model.PostActive && !CanMutate(post.AuthorID, viewer) {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *PostService) Create(ctx context.Context, author *model.User, input CreatePostInput) (*model.Post, error) {
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" || content == "" {
		return nil, ErrInvalidInput
	}
	status := input.Status
	if status == "" {
		status = model.PostActive
	}
	if !validStatus(status) {
		return nil, ErrInvalidInput
	}

	categories, err := s.resolveCategories(ctx, input.Categories)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		AuthorID:   author.ID,
		Title:      title,
		Content:    content,
		Status:     status,
		Categories: categories,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	post.Author = author
	return post, nil
}

func (s *PostService) Update(ctx context.Context, actor *model.User, id uint, input UpdatePostInput) (*model.Post, error) {
	post, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanMutate(post.AuthorID, actor) {
		return nil, ErrNotOwner
	}

	if input.Title != nil {
		if post.Title = strings.TrimSpace(*input.Title); post.Title == "" {
			return nil, ErrInvalidInput
		}
	}
	if input.Content != nil {
		if post.Content = strings.TrimSpace(*input.Content); post.Content == "" {
			return nil, ErrInvalidInput
		}
	}
	if input.Status != nil {
		if !validStatus(*input.Status) {
			return nil, ErrInvalidInput
		}
		post.Status = *input.Status
	}

	var categories []model.Category
	if input.Categories != nil {
		if categories, err = s.resolveCategories(ctx, *input.Categories); err != nil {
			return nil, err
		}
		if categories == nil {
			categories = []model.Category{}
		}
	}

	if err := s.posts.Update(ctx, post, categories); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, actor *model.User, id uint) error {
	post, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if !CanMutate(post.AuthorID, actor) {
		return ErrNotOwner
	}
	return s.posts.Delete(ctx, post.ID)
}

func (s *PostService) ListCategories(ctx context.Context, viewer *model.User, id uint) ([]model.Category, error) {
	post, err := s.Get(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if post.Categories == nil {
		return []model.Category{}, nil
	}
	return post.Categories, nil
}

func (s *PostService) ListLikes(ctx context.Context, viewer *model.User, id uint) ([]model.Like, error) {
	post, err := s.Get(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	return s.likes.ListByTarget(ctx, postTarget(post))
}

func (s *PostService) AddLike(ctx context.Context, user *model.User, id uint, likeType model.LikeType) (*model.Like, error) {
	post, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	return addLike(ctx, s.likes, user, postTarget(post), likeType)
}

func (s *PostService) RemoveLike(ctx context.Context, user *model.User, id uint) error {
	post, err := s.Get(ctx, user, id)
	if err != nil {
		return err
	}
	return removeLike(ctx, s.likes, user, postTarget(post))
}

func (s *PostService) AddBookmark(ctx context.Context, user *model.User, id uint) error {
	post, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if post.Status == model.PostInactive {
		return ErrPostInactive
	}

	exists, err := s.bookmarks.Exists(ctx, user.ID, post.ID)
	if err != nil {
		return err
	}
	if exists {
		return ErrBookmarkExists
	}

	if err := s.bookmarks.Create(ctx, &model.Bookmark{UserID: user.ID, PostID: post.ID}); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrBookmarkExists
		}
		return err
	}
	return nil
}

func (s *PostService) RemoveBookmark(ctx context.Context, user *model.User, id uint) error {
	post, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	removed, err := s.bookmarks.Delete(ctx, user.ID, post.ID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrBookmarkNotFound
	}
	return nil
}

func (s *PostService) find(ctx context.Context, id uint) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

// resolveCategories maps titles to stored categories, failing on the first unknown one.
func (s *PostService) resolveCategories(ctx context.Context, titles []string) ([]model.Category, error) {
	wanted := make([]string, 0, len(titles))
	seen := make(map[string]bool, len(titles))
	for _, title := range titles {
		key := strings.ToLower(strings.TrimSpace(title))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		wanted = append(wanted, title)
	}
	if len(wanted) == 0 {
		return nil, nil
	}

	found, err := s.categories.GetByTitles(ctx, wanted)
	if err != nil {
		return nil, err
	}
	byTitle := make(map[string]model.Category, len(found))
	for _, category := range found {
		byTitle[strings.ToLower(category.Title)] = category
	}

	categories := make([]model.Category, 0, len(wanted))
	for _, title := range wanted {
		category, ok := byTitle[strings.ToLower(strings.TrimSpace(title))]
		if !ok {
			return nil, newError(ErrNotFound, "category "+strings.TrimSpace(title)+" not found")
		}
		categories = append(categories, category)
	}
	return categories, nil
}

func postTarget(post *model.Post) repository.LikeTarget {
	return repository.LikeTarget{Kind: repository.LikeTargetPost, ID: post.ID, AuthorID: post.AuthorID}
}

func validStatus(status model.PostStatus) bool {
	return status == model.PostActive || status == model.PostInactive
}
