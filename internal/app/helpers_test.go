package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bugtalk/internal/app"
	"bugtalk/internal/app/apptest"
	"bugtalk/internal/model"
	"bugtalk/internal/pkg/jwtutil"
)

type env struct {
	db      *apptest.DB
	tokens  *apptest.Tokens
	mailer  *apptest.Mailer
	avatars *apptest.Avatars
	jwt     *jwtutil.Manager

	auth       *app.AuthService
	users      *app.UserService
	posts      *app.PostService
	comments   *app.CommentService
	categories *app.CategoryService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := apptest.NewDB()
	tokens := apptest.NewTokens()
	mailer := &apptest.Mailer{}
	avatars := apptest.NewAvatars()
	manager := jwtutil.NewManager(
		jwtutil.KeyConfig{Secret: "access-secret", Expiration: 15 * time.Minute},
		jwtutil.KeyConfig{Secret: "refresh-secret", Expiration: 24 * time.Hour},
	)

	posts := app.NewPostService(db.Posts(), db.Categories(), db.Likes(), db.Bookmarks())
	return &env{
		db:      db,
		tokens:  tokens,
		mailer:  mailer,
		avatars: avatars,
		jwt:     manager,
		auth: app.NewAuthService(db.Users(), tokens, mailer, manager, app.AuthOptions{
			VerifyTokenTTL: 15 * time.Minute,
			ResetTokenTTL:  time.Hour,
			DefaultAvatar:  "/avatars/default.png",
		}),
		users:      app.NewUserService(db.Users(), db.Posts(), db.Bookmarks(), avatars, "/avatars/default.png"),
		posts:      posts,
		comments:   app.NewCommentService(db.Comments(), posts, db.Likes()),
		categories: app.NewCategoryService(db.Categories(), db.Posts()),
	}
}

func (e *env) user(t *testing.T, login string, role model.Role) *model.User {
	t.Helper()
	user, err := e.users.Create(context.Background(), app.CreateUserInput{
		Login:    login,
		Email:    login + "@example.com",
		Password: "Abcdef12",
		Role:     role,
		Verified: true,
	})
	require.NoError(t, err)
	return user
}

func (e *env) category(t *testing.T, title string) *model.Category {
	t.Helper()
	category, err := e.categories.Create(context.Background(), app.CategoryInput{Title: &title})
	require.NoError(t, err)
	return category
}

func (e *env) post(t *testing.T, author *model.User, title string, status model.PostStatus, categories ...string) *model.Post {
	t.Helper()
	post, err := e.posts.Create(context.Background(), author, app.CreatePostInput{
		Title:      title,
		Content:    "content of " + title,
		Status:     status,
		Categories: categories,
	})
	require.NoError(t, err)
	return post
}
