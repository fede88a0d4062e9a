package app

import (
	"context"
	"errors"
	"log"
	"mime/multipart"
	"strings"

	"bugtalk/internal/model"
	"bugtalk/internal/repository"
)

type UserService struct {
	users     UserStore
	posts     PostStore
	bookmarks BookmarkStore
	avatars   AvatarStorage

	defaultAvatar string
}

type CreateUserInput struct {
	Login    string
	Email    string
	Password string
	FullName string
	Role     model.Role
	Verified bool
}

// UpdateUserInput applies only the non-nil fields. Role and Verified are admin-only.
type UpdateUserInput struct {
	Login    *string
	Email    *string
	Password *string
	FullName *string
	Role     *model.Role
	Verified *bool
}

var errAvatarsDisabled = errors.New("avatar storage is not configured")

func NewUserService(users UserStore, posts PostStore, bookmarks BookmarkStore, avatars AvatarStorage, defaultAvatar string) *UserService {
	return &UserService{
		users:         users,
		posts:         posts,
		bookmarks:     bookmarks,
		avatars:       avatars,
		defaultAvatar: defaultAvatar,
	}
}

func (s *UserService) List(ctx context.Context, page repository.Page) (*PageResult[model.User], error) {
	users, total, err := s.users.List(ctx, page)
	if err != nil {
		return nil, err
	}
	return newPage(users, total, page), nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*model.User, error) {
	login := strings.TrimSpace(input.Login)
	email := normalizeEmail(input.Email)
	if login == "" || email == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}
	if err := checkIdentityFree(ctx, s.users, login, email, 0); err != nil {
		return nil, err
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	role := input.Role
	if role == "" {
		role = model.RoleUser
	}

	user := &model.User{
		Login:    login,
		Email:    email,
		Password: hash,
		FullName: strings.TrimSpace(input.FullName),
		Avatar:   s.defaultAvatar,
		Role:     role,
		Verified: input.Verified,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrIdentityExists
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, actor *model.User, id uint, input UpdateUserInput) (*model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanMutate(user.ID, actor) {
		return nil, ErrNotOwner
	}
	if (input.Role != nil || input.Verified != nil) && !actor.IsAdmin() {
		return nil, newError(ErrForbidden, "only admins can change role or verification")
	}

	var login, email string
	if input.Login != nil {
		login = strings.TrimSpace(*input.Login)
	}
	if input.Email != nil {
		email = normalizeEmail(*input.Email)
	}
	if err := checkIdentityFree(ctx, s.users, login, email, user.ID); err != nil {
		return nil, err
	}

	if login != "" {
		user.Login = login
	}
	if email != "" {
		user.Email = email
	}
	if input.FullName != nil {
		user.FullName = strings.TrimSpace(*input.FullName)
	}
	if input.Password != nil {
		hash, err := hashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		user.Password = hash
	}
	if input.Role != nil {
		user.Role = *input.Role
	}
	if input.Verified != nil {
		user.Verified = *input.Verified
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrIdentityExists
		}
		return nil, err
	}
	return user, nil
}

// UploadAvatar stores file as the avatar of user id. The new file is removed again
// if the user cannot be saved; the replaced one is removed once the user is saved.
func (s *UserService) UploadAvatar(ctx context.Context, actor *model.User, id uint, file *multipart.FileHeader) (*model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanMutate(user.ID, actor) {
		return nil, ErrNotOwner
	}
	if s.avatars == nil {
		return nil, errAvatarsDisabled
	}

	avatarURL, err := s.avatars.Save(file)
	if err != nil {
		return nil, err
	}

	previous := user.Avatar
	user.Avatar = avatarURL
	if err := s.users.Update(ctx, user); err != nil {
		if rmErr := s.avatars.Remove(avatarURL); rmErr != nil {
			log.Printf("discard avatar %s failed: %v", avatarURL, rmErr)
		}
		return nil, err
	}

	if previous != "" && previous != s.defaultAvatar && previous != avatarURL {
		if err := s.avatars.Remove(previous); err != nil {
			log.Printf("remove old avatar %s failed: %v", previous, err)
		}
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, actor *model.User, id uint) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CanMutate(user.ID, actor) {
		return ErrNotOwner
	}
	return s.users.Delete(ctx, user.ID)
}

// ListPosts lists posts written by userID. Inactive posts are visible only to
// their author and admins.
func (s *UserService) ListPosts(ctx context.Context, viewer *model.User, userID uint, page repository.Page) (*PageResult[model.Post], error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}

	q := repository.PostQuery{AuthorID: userID, Page: page}
	if !CanMutate(userID, viewer) {
		q.Status = model.PostActive
	}
	posts, total, err := s.posts.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return newPage(posts, total, page), nil
}

// ListBookmarks lists the user's bookmarked posts. Posts that went INACTIVE after
// being bookmarked are hidden unless the user is an admin.
func (s *UserService) ListBookmarks(ctx context.Context, user *model.User, page repository.Page) (*PageResult[model.Post], error) {
	var status model.PostStatus
	if !user.IsAdmin() {
		status = model.PostActive
	}
	posts, total, err := s.bookmarks.ListPosts(ctx, user.ID, status, page)
	if err != nil {
		return nil, err
	}
	return newPage(posts, total, page), nil
}
