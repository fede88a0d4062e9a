package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugtalk/internal/app"
	"bugtalk/internal/model"
	"bugtalk/internal/repository"
)

func TestCreatePostResolvesCategories(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	author := e.user(t, "author", model.RoleUser)
	e.category(t, "Go")
	e.category(t, "Databases")

	post, err := e.posts.Create(ctx, author, app.CreatePostInput{
		Title:      "Deadlock in worker pool",
		Content:    "why?",
		Categories: []string{"go", "DATABASES", "Go"},
	})
	require.NoError(t, err)
	assert.Equal(t, author.ID, post.AuthorID)
	assert.Equal(t, model.PostActive, post.Status)
	require.Len(t, post.Categories, 2)

	_, err = e.posts.Create(ctx, author, app.CreatePostInput{
		Title:      "t",
		Content:    "c",
		Categories: []string{"Go", "Rust"},
	})
	assert.ErrorIs(t, err, app.ErrNotFound)
}

func TestPostOwnershipPolicy(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner := e.user(t, "owner", model.RoleUser)
	stranger := e.user(t, "stranger", model.RoleUser)
	admin := e.user(t, "admin", model.RoleAdmin)
	post := e.post(t, owner, "original", model.PostActive)

	title := "hijacked"
	_, err := e.posts.Update(ctx, stranger, post.ID, app.UpdatePostInput{Title: &title})
	require.ErrorIs(t, err, app.ErrForbidden)
	require.ErrorIs(t, e.posts.Delete(ctx, stranger, post.ID), app.ErrForbidden)

	title = "edited by owner"
	updated, err := e.posts.Update(ctx, owner, post.ID, app.UpdatePostInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "edited by owner", updated.Title)

	title = "edited by admin"
	_, err = e.posts.Update(ctx, admin, post.ID, app.UpdatePostInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "edited by admin", e.db.Post(post.ID).Title)

	require.NoError(t, e.posts.Delete(ctx, admin, post.ID))
	_, err = e.posts.Get(ctx, owner, post.ID)
	assert.ErrorIs(t, err, app.ErrNotFound)
}

func TestUpdatePostReplacesCategories(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner := e.user(t, "owner", model.RoleUser)
	e.category(t, "Go")
	e.category(t, "SQL")
	post := e.post(t, owner, "title", model.PostActive, "Go")

	categories := []string{"SQL"}
	_, err := e.posts.Update(ctx, owner, post.ID, app.UpdatePostInput{Categories: &categories})
	require.NoError(t, err)

	got, err := e.posts.ListCategories(ctx, owner, post.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "SQL", got[0].Title)
}

func TestListPostsHidesInactiveFromNonAdmins(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	author := e.user(t, "author", model.RoleUser)
	reader := e.user(t, "reader", model.RoleUser)
	admin := e.user(t, "admin", model.RoleAdmin)
	e.post(t, author, "visible", model.PostActive)
	e.post(t, author, "hidden", model.PostInactive)

	for _, viewer := range []*model.User{nil, reader, author} {
		page, err := e.posts.List(ctx, viewer, app.PostFilter{Status: model.PostInactive})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, model.PostActive, page.Items[0].Status)
	}

	page, err := e.posts.List(ctx, admin, app.PostFilter{Status: model.PostInactive})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "hidden", page.Items[0].Title)

	page, err = e.posts.List(ctx, admin, app.PostFilter{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestListPostsFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	author := e.user(t, "author", model.RoleUser)
	e.category(t, "Go")
	e.category(t, "SQL")
	e.post(t, author, "Channels explained", model.PostActive, "Go")
	e.post(t, author, "Index tuning", model.PostActive, "SQL")
	e.post(t, author, "Go and SQL drivers", model.PostActive, "Go", "SQL")
	e.post(t, author, "Unrelated", model.PostActive)

	page, err := e.posts.List(ctx, nil, app.PostFilter{Categories: []string{"go"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Meta.Total)

	page, err = e.posts.List(ctx, nil, app.PostFilter{Title: "SQL"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Go and SQL drivers", page.Items[0].Title)

	page, err = e.posts.List(ctx, nil, app.PostFilter{
		SortBy: "title",
		Order:  repository.SortAsc,
		Page:   repository.Page{Number: 2, Size: 3},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Unrelated", page.Items[0].Title)
	assert.Equal(t, app.PageMeta{Page: 2, Total: 4, Count: 1, Pages: 2, Prev: intPtr(1)}, page.Meta)
}

func TestListPostsRejectsInvertedRange(t *testing.T) {
	from := time.Now()
	to := from.Add(-time.Hour)
	_, err := newEnv(t).posts.List(context.Background(), nil, app.PostFilter{From: &from, To: &to})
	assert.ErrorIs(t, err, app.ErrBadRequest)
}

func TestGetInactivePost(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	author := e.user(t, "author", model.RoleUser)
	reader := e.user(t, "reader", model.RoleUser)
	admin := e.user(t, "admin", model.RoleAdmin)
	post := e.post(t, author, "draft", model.PostInactive)

	_, err := e.posts.Get(ctx, reader, post.ID)
	assert.ErrorIs(t, err, app.ErrNotFound)
	_, err = e.posts.Get(ctx, nil, post.ID)
	assert.ErrorIs(t, err, app.ErrNotFound)
	_, err = e.posts.Get(ctx, author, post.ID)
	assert.NoError(t, err)
	_, err = e.posts.Get(ctx, admin, post.ID)
	assert.NoError(t, err)
}

func TestPostLikes(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	author := e.user(t, "author", model.RoleUser)
	voter := e.user(t, "voter", model.RoleUser)
	post := e.post(t, author, "rate me", model.PostActive)

	like, err := e.posts.AddLike(ctx, voter, post.ID, model.LikeTypeLike)
	require.NoError(t, err)
	assert.Equal(t, voter.ID, like.AuthorID)
	assert.Equal(t, 1, e.db.Post(post.ID).Rating)
	assert.Equal(t, 1, e.db.User(author.ID).Rating)

	_, err = e.posts.AddLike(ctx, voter, post.ID, model.LikeTypeDislike)
	require.ErrorIs(t, err, app.ErrConflict)
	assert.Equal(t, 1, e.db.Post(post.ID).Rating)
	assert.Equal(t, 1, e.db.User(author.ID).Rating)

	likes, err := e.posts.ListLikes(ctx, voter, post.ID)
	require.NoError(t, err)
	assert.Len(t, likes, 1)

	require.NoError(t, e.posts.RemoveLike(ctx, voter, post.ID))
	assert.Equal(t, 0, e.db.Post(post.ID).Rating)
	assert.Equal(t, 0, e.db.User(author.ID).Rating)

	assert.ErrorIs(t, e.posts.RemoveLike(ctx, voter, post.ID), app.ErrNotFound)
}

func TestPostDislikeRemovalRestoresRating(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	author := e.user(t, "author", model.RoleUser)
	voter := e.user(t, "voter", model.RoleUser)
	post := e.post(t, author, "rate me", model.PostActive)

	_, err := e.posts.AddLike(ctx, voter, post.ID, model.LikeTypeDislike)
	require.NoError(t, err)
	assert.Equal(t, -1, e.db.Post(post.ID).Rating)

	require.NoError(t, e.posts.RemoveLike(ctx, voter, post.ID))
	assert.Equal(t, 0, e.db.Post(post.ID).Rating)
	assert.Equal(t, 0, e.db.User(author.ID).Rating)
}

func TestAddLikeValidatesType(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	author := e.user(t, "author", model.RoleUser)
	post := e.post(t, author, "rate me", model.PostActive)

	_, err := e.posts.AddLike(ctx, author, post.ID, model.LikeType("LOVE"))
	assert.ErrorIs(t, err, app.ErrBadRequest)
	_, err = e.posts.AddLike(ctx, author, 999, model.LikeTypeLike)
	assert.ErrorIs(t, err, app.ErrNotFound)
}

func TestBookmarks(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	author := e.user(t, "author", model.RoleUser)
	reader := e.user(t, "reader", model.RoleUser)
	active := e.post(t, author, "keep", model.PostActive)
	inactive := e.post(t, author, "draft", model.PostInactive)

	assert.ErrorIs(t, e.posts.AddBookmark(ctx, reader, inactive.ID), app.ErrForbidden)

	require.NoError(t, e.posts.AddBookmark(ctx, reader, active.ID))
	assert.ErrorIs(t, e.posts.AddBookmark(ctx, reader, active.ID), app.ErrConflict)

	page, err := e.users.ListBookmarks(ctx, reader, repository.Page{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, active.ID, page.Items[0].ID)

	require.NoError(t, e.posts.RemoveBookmark(ctx, reader, active.ID))
	assert.ErrorIs(t, e.posts.RemoveBookmark(ctx, reader, active.ID), app.ErrNotFound)
	assert.ErrorIs(t, e.posts.AddBookmark(ctx, reader, 999), app.ErrNotFound)
}

func TestBookmarkedPostHiddenAfterDeactivation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	author := e.user(t, "author", model.RoleUser)
	reader := e.user(t, "reader", model.RoleUser)
	admin := e.user(t, "admin", model.RoleAdmin)
	post := e.post(t, author, "soon hidden", model.PostActive)

	require.NoError(t, e.posts.AddBookmark(ctx, reader, post.ID))
	require.NoError(t, e.posts.AddBookmark(ctx, admin, post.ID))

	inactive := model.PostInactive
	_, err := e.posts.Update(ctx, author, post.ID, app.UpdatePostInput{Status: &inactive})
	require.NoError(t, err)

	page, err := e.users.ListBookmarks(ctx, reader, repository.Page{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.Meta.Total)

	page, err = e.users.ListBookmarks(ctx, admin, repository.Page{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, post.ID, page.Items[0].ID)
}

func TestLikesOnInactivePost(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	author := e.user(t, "author", model.RoleUser)
	voter := e.user(t, "voter", model.RoleUser)
	admin := e.user(t, "admin", model.RoleAdmin)
	post := e.post(t, author, "draft", model.PostInactive)

	_, err := e.posts.AddLike(ctx, voter, post.ID, model.LikeTypeLike)
	assert.ErrorIs(t, err, app.ErrNotFound)
	assert.ErrorIs(t, e.posts.RemoveLike(ctx, voter, post.ID), app.ErrNotFound)
	assert.Equal(t, 0, e.db.Post(post.ID).Rating)

	_, err = e.posts.AddLike(ctx, admin, post.ID, model.LikeTypeLike)
	require.NoError(t, err)
	_, err = e.posts.AddLike(ctx, author, post.ID, model.LikeTypeDislike)
	require.NoError(t, err)
	assert.Equal(t, 0, e.db.Post(post.ID).Rating)
	require.NoError(t, e.posts.RemoveLike(ctx, author, post.ID))
	assert.Equal(t, 1, e.db.Post(post.ID).Rating)
}

func intPtr(v int) *int { return &v }
