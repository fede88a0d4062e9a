package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"

	"bugtalk/internal/model"
	"bugtalk/internal/platform/database"
	"bugtalk/internal/platform/postgres"
	"bugtalk/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("repository integration tests need docker")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("bugtalk"),
		tcpostgres.WithUsername("bugtalk"),
		tcpostgres.WithPassword("bugtalk"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := postgres.New(dsn, database.GormConfig("test"))
	require.NoError(t, err)
	require.NoError(t, database.Configure(ctx, db))
	require.NoError(t, db.AutoMigrate(model.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type fixture struct {
	users      *repository.UserRepository
	posts      *repository.PostRepository
	comments   *repository.CommentRepository
	categories *repository.CategoryRepository
	likes      *repository.LikeRepository
	bookmarks  *repository.BookmarkRepository
}

func newFixture(db *gorm.DB) fixture {
	return fixture{
		users:      repository.NewUserRepository(db),
		posts:      repository.NewPostRepository(db),
		comments:   repository.NewCommentRepository(db),
		categories: repository.NewCategoryRepository(db),
		likes:      repository.NewLikeRepository(db),
		bookmarks:  repository.NewBookmarkRepository(db),
	}
}

func (f fixture) user(t *testing.T, login string) *model.User {
	t.Helper()
	u := &model.User{Login: login, Email: login + "@bugtalk.dev", Password: "x", Role: model.RoleUser}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f fixture) category(t *testing.T, title string) model.Category {
	t.Helper()
	c := &model.Category{Title: title}
	require.NoError(t, f.categories.Create(context.Background(), c))
	return *c
}

func (f fixture) post(t *testing.T, author *model.User, title string, status model.PostStatus, cats ...model.Category) *model.Post {
	t.Helper()
	p := &model.Post{AuthorID: author.ID, Title: title, Content: title + " body", Status: status, Categories: cats}
	require.NoError(t, f.posts.Create(context.Background(), p))
	return p
}

func TestRepositories(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := newFixture(db)

	alice := f.user(t, "alice")
	bob := f.user(t, "bobby")
	golang := f.category(t, "Go")
	docker := f.category(t, "Docker")

	first := f.post(t, alice, "Goroutine leak", model.PostActive, golang)
	second := f.post(t, alice, "Compose networking", model.PostActive, docker, golang)
	hidden := f.post(t, bob, "Draft about 100% coverage", model.PostInactive)

	t.Run("duplicate login is reported", func(t *testing.T) {
		err := f.users.Create(ctx, &model.User{Login: "alice", Email: "other@bugtalk.dev", Password: "x"})
		assert.ErrorIs(t, err, repository.ErrDuplicate)
	})

	t.Run("user lookups return nil when missing", func(t *testing.T) {
		u, err := f.users.GetByEmail(ctx, "nobody@bugtalk.dev")
		require.NoError(t, err)
		assert.Nil(t, u)

		u, err = f.users.GetByLogin(ctx, "bobby")
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, bob.ID, u.ID)
	})

	t.Run("category title lookup ignores case", func(t *testing.T) {
		c, err := f.categories.GetByTitle(ctx, "  gO ")
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, golang.ID, c.ID)

		cats, err := f.categories.GetByTitles(ctx, []string{"docker", "GO", "rust"})
		require.NoError(t, err)
		assert.Len(t, cats, 2)

		err = f.categories.Create(ctx, &model.Category{Title: "Go"})
		assert.ErrorIs(t, err, repository.ErrDuplicate)
	})

	t.Run("category listing carries post counts", func(t *testing.T) {
		cats, total, err := f.categories.List(ctx, repository.Page{})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		counts := map[string]int{}
		for _, c := range cats {
			counts[c.Title] = c.PostsCount
		}
		assert.Equal(t, map[string]int{"Go": 2, "Docker": 1}, counts)

		got, err := f.categories.GetByID(ctx, docker.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 1, got.PostsCount)
	})

	t.Run("post filters combine", func(t *testing.T) {
		posts, total, err := f.posts.List(ctx, repository.PostQuery{Categories: []string{"go"}, Status: model.PostActive})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, posts, 2)

		posts, total, err = f.posts.List(ctx, repository.PostQuery{Categories: []string{"docker"}, Title: "COMPOSE"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, posts, 1)
		assert.Equal(t, second.ID, posts[0].ID)
		assert.Len(t, posts[0].Categories, 2)
		require.NotNil(t, posts[0].Author)
		assert.Equal(t, "alice", posts[0].Author.Login)

		// % in the search term is matched literally.
		posts, _, err = f.posts.List(ctx, repository.PostQuery{Title: "100%"})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, hidden.ID, posts[0].ID)

		posts, _, err = f.posts.List(ctx, repository.PostQuery{Title: "%"})
		require.NoError(t, err)
		assert.Len(t, posts, 1)

		future := time.Now().Add(time.Hour)
		_, total, err = f.posts.List(ctx, repository.PostQuery{From: &future})
		require.NoError(t, err)
		assert.Zero(t, total)

		_, total, err = f.posts.List(ctx, repository.PostQuery{AuthorID: bob.ID})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
	})

	t.Run("post listing sorts and paginates", func(t *testing.T) {
		posts, total, err := f.posts.List(ctx, repository.PostQuery{
			SortBy: "title",
			Order:  repository.SortAsc,
			Page:   repository.Page{Number: 1, Size: 2},
		})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		require.Len(t, posts, 2)
		assert.Equal(t, second.ID, posts[0].ID)
		assert.Equal(t, hidden.ID, posts[1].ID)

		posts, _, err = f.posts.List(ctx, repository.PostQuery{
			SortBy: "title",
			Order:  repository.SortAsc,
			Page:   repository.Page{Number: 2, Size: 2},
		})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, first.ID, posts[0].ID)
	})

	t.Run("post update replaces categories", func(t *testing.T) {
		p, err := f.posts.GetByID(ctx, first.ID)
		require.NoError(t, err)
		p.Title = "Goroutine leak in worker pool"
		require.NoError(t, f.posts.Update(ctx, p, []model.Category{docker}))

		p, err = f.posts.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "Goroutine leak in worker pool", p.Title)
		require.Len(t, p.Categories, 1)
		assert.Equal(t, docker.ID, p.Categories[0].ID)
	})

	t.Run("post likes move post and author ratings together", func(t *testing.T) {
		target := repository.LikeTarget{Kind: repository.LikeTargetPost, ID: second.ID, AuthorID: alice.ID}

		like := &model.Like{AuthorID: bob.ID, Type: model.LikeTypeDislike}
		require.NoError(t, f.likes.Create(ctx, like, target))
		assertRatings(t, db, second.ID, -1, alice.ID, -1)

		err := f.likes.Create(ctx, &model.Like{AuthorID: bob.ID, Type: model.LikeTypeLike}, target)
		assert.ErrorIs(t, err, repository.ErrDuplicate)
		assertRatings(t, db, second.ID, -1, alice.ID, -1)

		found, err := f.likes.Find(ctx, bob.ID, target)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, like.ID, found.ID)

		likes, err := f.likes.ListByTarget(ctx, target)
		require.NoError(t, err)
		require.Len(t, likes, 1)
		assert.Equal(t, "bobby", likes[0].Author.Login)

		require.NoError(t, f.likes.Delete(ctx, found, target))
		assertRatings(t, db, second.ID, 0, alice.ID, 0)

		err = f.likes.Delete(ctx, found, target)
		assert.ErrorIs(t, err, repository.ErrStale)
	})

	t.Run("comment likes follow the comment author", func(t *testing.T) {
		comment := &model.Comment{AuthorID: bob.ID, PostID: second.ID, Content: "use host.docker.internal"}
		require.NoError(t, f.comments.Create(ctx, comment))

		target := repository.LikeTarget{Kind: repository.LikeTargetComment, ID: comment.ID, AuthorID: bob.ID}
		require.NoError(t, f.likes.Create(ctx, &model.Like{AuthorID: alice.ID, Type: model.LikeTypeLike}, target))

		got, err := f.comments.GetByID(ctx, comment.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 1, got.Rating)

		u, err := f.users.GetByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, u.Rating)

		// The post like index does not collide with the comment like.
		postTarget := repository.LikeTarget{Kind: repository.LikeTargetPost, ID: hidden.ID, AuthorID: bob.ID}
		require.NoError(t, f.likes.Create(ctx, &model.Like{AuthorID: alice.ID, Type: model.LikeTypeLike}, postTarget))
	})

	t.Run("profile update keeps rating", func(t *testing.T) {
		stale, err := f.users.GetByID(ctx, alice.ID)
		require.NoError(t, err)

		target := repository.LikeTarget{Kind: repository.LikeTargetPost, ID: first.ID, AuthorID: alice.ID}
		like := &model.Like{AuthorID: bob.ID, Type: model.LikeTypeLike}
		require.NoError(t, f.likes.Create(ctx, like, target))

		stale.FullName = "Alice Liddell"
		require.NoError(t, f.users.Update(ctx, stale))

		u, err := f.users.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice Liddell", u.FullName)
		assert.Equal(t, stale.Rating+1, u.Rating)

		require.NoError(t, f.likes.Delete(ctx, like, target))
	})

	t.Run("like on a missing target rolls back", func(t *testing.T) {
		target := repository.LikeTarget{Kind: repository.LikeTargetPost, ID: second.ID, AuthorID: 999999}
		err := f.likes.Create(ctx, &model.Like{AuthorID: alice.ID, Type: model.LikeTypeLike}, target)
		assert.ErrorIs(t, err, repository.ErrStale)

		found, err := f.likes.Find(ctx, alice.ID, target)
		require.NoError(t, err)
		assert.Nil(t, found)
		assertRatings(t, db, second.ID, 0, alice.ID, 0)
	})

	t.Run("bookmarks", func(t *testing.T) {
		require.NoError(t, f.bookmarks.Create(ctx, &model.Bookmark{UserID: bob.ID, PostID: first.ID}))
		require.NoError(t, f.bookmarks.Create(ctx, &model.Bookmark{UserID: bob.ID, PostID: second.ID}))

		err := f.bookmarks.Create(ctx, &model.Bookmark{UserID: bob.ID, PostID: first.ID})
		assert.ErrorIs(t, err, repository.ErrDuplicate)

		ok, err := f.bookmarks.Exists(ctx, bob.ID, second.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		posts, total, err := f.bookmarks.ListPosts(ctx, bob.ID, "", repository.Page{})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, posts, 2)

		removed, err := f.bookmarks.Delete(ctx, bob.ID, first.ID)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = f.bookmarks.Delete(ctx, bob.ID, first.ID)
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("inactive posts leave counts and filtered bookmarks", func(t *testing.T) {
		p, err := f.posts.GetByID(ctx, second.ID)
		require.NoError(t, err)
		p.Status = model.PostInactive
		require.NoError(t, f.posts.Update(ctx, p, nil))

		got, err := f.categories.GetByID(ctx, golang.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.PostsCount)
		got, err = f.categories.GetByID(ctx, docker.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.PostsCount)

		_, total, err := f.bookmarks.ListPosts(ctx, bob.ID, model.PostActive, repository.Page{})
		require.NoError(t, err)
		assert.Zero(t, total)

		posts, total, err := f.bookmarks.ListPosts(ctx, bob.ID, "", repository.Page{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, posts, 1)
		assert.Equal(t, second.ID, posts[0].ID)
	})

	t.Run("deleting a category unlinks its posts", func(t *testing.T) {
		require.NoError(t, f.categories.Delete(ctx, docker.ID))

		p, err := f.posts.GetByID(ctx, second.ID)
		require.NoError(t, err)
		require.Len(t, p.Categories, 1)
		assert.Equal(t, golang.ID, p.Categories[0].ID)
	})

	t.Run("deleting a post", func(t *testing.T) {
		require.NoError(t, f.posts.Delete(ctx, hidden.ID))
		p, err := f.posts.GetByID(ctx, hidden.ID)
		require.NoError(t, err)
		assert.Nil(t, p)
	})
}

func assertRatings(t *testing.T, db *gorm.DB, postID uint, postRating int, userID uint, userRating int) {
	t.Helper()
	var post model.Post
	require.NoError(t, db.First(&post, postID).Error)
	assert.Equal(t, postRating, post.Rating, "post rating")

	var user model.User
	require.NoError(t, db.First(&user, userID).Error)
	assert.Equal(t, userRating, user.Rating, "user rating")
}
