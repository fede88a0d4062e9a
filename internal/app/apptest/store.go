// Package apptest provides in-memory implementations of the app ports for tests.
package apptest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bugtalk/internal/model"
	"bugtalk/internal/repository"
)

// DB is a shared in-memory store. The per-entity views returned by its
// accessors satisfy the app store interfaces.
type DB struct {
	mu sync.Mutex

	nextID     uint
	users      map[uint]model.User
	posts      map[uint]model.Post
	postCats   map[uint][]uint
	comments   map[uint]model.Comment
	categories map[uint]model.Category
	likes      map[uint]model.Like
	bookmarks  map[[2]uint]model.Bookmark

	now func() time.Time
}

func NewDB() *DB {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	return &DB{
		users:      map[uint]model.User{},
		posts:      map[uint]model.Post{},
		postCats:   map[uint][]uint{},
		comments:   map[uint]model.Comment{},
		categories: map[uint]model.Category{},
		likes:      map[uint]model.Like{},
		bookmarks:  map[[2]uint]model.Bookmark{},
		now: func() time.Time {
			tick++
			return start.Add(time.Duration(tick) * time.Minute)
		},
	}
}

func (db *DB) Users() *Users           { return &Users{db: db} }
func (db *DB) Posts() *Posts           { return &Posts{db: db} }
func (db *DB) Comments() *Comments     { return &Comments{db: db} }
func (db *DB) Categories() *Categories { return &Categories{db: db} }
func (db *DB) Likes() *Likes           { return &Likes{db: db} }
func (db *DB) Bookmarks() *Bookmarks   { return &Bookmarks{db: db} }

// User returns a snapshot of the stored user, for assertions.
func (db *DB) User(id uint) model.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.users[id]
}

func (db *DB) Post(id uint) model.Post {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.posts[id]
}

func (db *DB) Comment(id uint) model.Comment {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.comments[id]
}

func (db *DB) LikeCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.likes)
}

func (db *DB) id() uint {
	db.nextID++
	return db.nextID
}

func paginate[T any](items []T, page repository.Page) []T {
	page = page.Normalize()
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + page.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

type Users struct{ db *DB }

func (s *Users) Create(_ context.Context, user *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.Login == user.Login || u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = s.db.id()
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	user.CreatedAt = s.db.now()
	user.UpdatedAt = user.CreatedAt
	s.db.users[user.ID] = *user
	return nil
}

func (s *Users) Update(_ context.Context, user *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.ID != user.ID && (u.Login == user.Login || u.Email == user.Email) {
			return repository.ErrDuplicate
		}
	}
	if current, ok := s.db.users[user.ID]; ok {
		user.Rating = current.Rating
	}
	user.UpdatedAt = s.db.now()
	s.db.users[user.ID] = *user
	return nil
}

func (s *Users) Delete(_ context.Context, id uint) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.users, id)
	return nil
}

func (s *Users) GetByID(_ context.Context, id uint) (*model.User, error) {
	return s.find(func(u model.User) bool { return u.ID == id }), nil
}

func (s *Users) GetByLogin(_ context.Context, login string) (*model.User, error) {
	return s.find(func(u model.User) bool { return u.Login == login }), nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return s.find(func(u model.User) bool { return u.Email == email }), nil
}

func (s *Users) List(_ context.Context, page repository.Page) ([]model.User, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	users := make([]model.User, 0, len(s.db.users))
	for _, u := range s.db.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return paginate(users, page), int64(len(users)), nil
}

func (s *Users) find(match func(model.User) bool) *model.User {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if match(u) {
			found := u
			return &found
		}
	}
	return nil
}

type Posts struct{ db *DB }

func (s *Posts) Create(_ context.Context, post *model.Post) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	post.ID = s.db.id()
	post.CreatedAt = s.db.now()
	post.UpdatedAt = post.CreatedAt
	s.db.postCats[post.ID] = categoryIDs(post.Categories)
	stored := *post
	stored.Categories = nil
	stored.Author = nil
	s.db.posts[post.ID] = stored
	return nil
}

func (s *Posts) Update(_ context.Context, post *model.Post, categories []model.Category) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	current, ok := s.db.posts[post.ID]
	if !ok {
		return repository.ErrStale
	}
	current.Title = post.Title
	current.Content = post.Content
	current.Status = post.Status
	current.UpdatedAt = s.db.now()
	s.db.posts[post.ID] = current
	if categories != nil {
		s.db.postCats[post.ID] = categoryIDs(categories)
		post.Categories = categories
	}
	return nil
}

func (s *Posts) Delete(_ context.Context, id uint) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.posts, id)
	delete(s.db.postCats, id)
	for key := range s.db.bookmarks {
		if key[1] == id {
			delete(s.db.bookmarks, key)
		}
	}
	return nil
}

func (s *Posts) GetByID(_ context.Context, id uint) (*model.Post, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	post, ok := s.db.posts[id]
	if !ok {
		return nil, nil
	}
	hydrated := s.db.hydrate(post)
	return &hydrated, nil
}

func (s *Posts) List(_ context.Context, q repository.PostQuery) ([]model.Post, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var posts []model.Post
	for _, post := range s.db.posts {
		hydrated := s.db.hydrate(post)
		if matchPost(hydrated, q) {
			posts = append(posts, hydrated)
		}
	}
	sortPosts(posts, q)
	return paginate(posts, q.Page), int64(len(posts)), nil
}

func (db *DB) hydrate(post model.Post) model.Post {
	if author, ok := db.users[post.AuthorID]; ok {
		post.Author = &author
	}
	post.Categories = []model.Category{}
	for _, id := range db.postCats[post.ID] {
		if category, ok := db.categories[id]; ok {
			post.Categories = append(post.Categories, category)
		}
	}
	return post
}

func matchPost(post model.Post, q repository.PostQuery) bool {
	if q.Status != "" && post.Status != q.Status {
		return false
	}
	if q.AuthorID != 0 && post.AuthorID != q.AuthorID {
		return false
	}
	if q.Title != "" && !strings.Contains(strings.ToLower(post.Title), strings.ToLower(q.Title)) {
		return false
	}
	if q.From != nil && post.CreatedAt.Before(*q.From) {
		return false
	}
	if q.To != nil && post.CreatedAt.After(*q.To) {
		return false
	}
	if len(q.Categories) > 0 {
		hit := false
		for _, category := range post.Categories {
			for _, title := range q.Categories {
				if strings.EqualFold(category.Title, title) {
					hit = true
				}
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func sortPosts(posts []model.Post, q repository.PostQuery) {
	asc := strings.EqualFold(string(q.Order), string(repository.SortAsc))
	less := func(a, b model.Post) bool {
		switch q.SortBy {
		case "id":
			return a.ID < b.ID
		case "title":
			return a.Title < b.Title
		case "rating":
			return a.Rating < b.Rating
		case "updated_at":
			return a.UpdatedAt.Before(b.UpdatedAt)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(posts, func(i, j int) bool {
		if asc {
			return less(posts[i], posts[j])
		}
		return less(posts[j], posts[i])
	})
}

func categoryIDs(categories []model.Category) []uint {
	ids := make([]uint, 0, len(categories))
	for _, c := range categories {
		ids = append(ids, c.ID)
	}
	return ids
}

type Comments struct{ db *DB }

func (s *Comments) Create(_ context.Context, comment *model.Comment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	comment.ID = s.db.id()
	comment.CreatedAt = s.db.now()
	comment.UpdatedAt = comment.CreatedAt
	stored := *comment
	stored.Author = nil
	s.db.comments[comment.ID] = stored
	return nil
}

func (s *Comments) Update(_ context.Context, comment *model.Comment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	current, ok := s.db.comments[comment.ID]
	if !ok {
		return repository.ErrStale
	}
	current.Content = comment.Content
	current.UpdatedAt = s.db.now()
	s.db.comments[comment.ID] = current
	return nil
}

func (s *Comments) Delete(_ context.Context, id uint) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.comments, id)
	return nil
}

func (s *Comments) GetByID(_ context.Context, id uint) (*model.Comment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	comment, ok := s.db.comments[id]
	if !ok {
		return nil, nil
	}
	if author, ok := s.db.users[comment.AuthorID]; ok {
		comment.Author = &author
	}
	return &comment, nil
}

func (s *Comments) ListByPost(_ context.Context, postID uint, page repository.Page) ([]model.Comment, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var comments []model.Comment
	for _, c := range s.db.comments {
		if c.PostID == postID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })
	return paginate(comments, page), int64(len(comments)), nil
}

type Categories struct{ db *DB }

func (s *Categories) Create(_ context.Context, category *model.Category) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, c := range s.db.categories {
		if strings.EqualFold(c.Title, category.Title) {
			return repository.ErrDuplicate
		}
	}
	category.ID = s.db.id()
	category.CreatedAt = s.db.now()
	category.UpdatedAt = category.CreatedAt
	s.db.categories[category.ID] = *category
	return nil
}

func (s *Categories) Update(_ context.Context, category *model.Category) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, c := range s.db.categories {
		if c.ID != category.ID && strings.EqualFold(c.Title, category.Title) {
			return repository.ErrDuplicate
		}
	}
	category.UpdatedAt = s.db.now()
	s.db.categories[category.ID] = *category
	return nil
}

func (s *Categories) Delete(_ context.Context, id uint) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.categories, id)
	for postID, ids := range s.db.postCats {
		kept := ids[:0]
		for _, cid := range ids {
			if cid != id {
				kept = append(kept, cid)
			}
		}
		s.db.postCats[postID] = kept
	}
	return nil
}

func (s *Categories) GetByID(_ context.Context, id uint) (*model.Category, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	category, ok := s.db.categories[id]
	if !ok {
		return nil, nil
	}
	category.PostsCount = s.db.countPosts(id)
	return &category, nil
}

func (s *Categories) GetByTitle(_ context.Context, title string) (*model.Category, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, c := range s.db.categories {
		if strings.EqualFold(c.Title, strings.TrimSpace(title)) {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

func (s *Categories) GetByTitles(_ context.Context, titles []string) ([]model.Category, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var found []model.Category
	for _, c := range s.db.categories {
		for _, title := range titles {
			if strings.EqualFold(c.Title, strings.TrimSpace(title)) {
				found = append(found, c)
				break
			}
		}
	}
	return found, nil
}

func (s *Categories) List(_ context.Context, page repository.Page) ([]model.Category, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	categories := make([]model.Category, 0, len(s.db.categories))
	for _, c := range s.db.categories {
		c.PostsCount = s.db.countPosts(c.ID)
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	return paginate(categories, page), int64(len(categories)), nil
}

func (db *DB) countPosts(categoryID uint) int {
	count := 0
	for postID, ids := range db.postCats {
		if post, ok := db.posts[postID]; !ok || post.Status != model.PostActive {
			continue
		}
		for _, id := range ids {
			if id == categoryID {
				count++
			}
		}
	}
	return count
}

type Likes struct{ db *DB }

func (s *Likes) Find(_ context.Context, authorID uint, target repository.LikeTarget) (*model.Like, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, like := range s.db.likes {
		if like.AuthorID == authorID && likeMatches(like, target) {
			found := like
			return &found, nil
		}
	}
	return nil, nil
}

func (s *Likes) ListByTarget(_ context.Context, target repository.LikeTarget) ([]model.Like, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	likes := []model.Like{}
	for _, like := range s.db.likes {
		if likeMatches(like, target) {
			likes = append(likes, like)
		}
	}
	sort.Slice(likes, func(i, j int) bool { return likes[i].ID < likes[j].ID })
	return likes, nil
}

func (s *Likes) Create(_ context.Context, like *model.Like, target repository.LikeTarget) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.likes {
		if existing.AuthorID == like.AuthorID && likeMatches(existing, target) {
			return repository.ErrDuplicate
		}
	}

	id := target.ID
	if target.Kind == repository.LikeTargetPost {
		like.PostID = &id
	} else {
		like.CommentID = &id
	}
	if err := s.db.applyRating(target, like.Type.Delta()); err != nil {
		return err
	}
	like.ID = s.db.id()
	like.CreatedAt = s.db.now()
	s.db.likes[like.ID] = *like
	return nil
}

func (s *Likes) Delete(_ context.Context, like *model.Like, target repository.LikeTarget) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.likes[like.ID]; !ok {
		return repository.ErrStale
	}
	if err := s.db.applyRating(target, -like.Type.Delta()); err != nil {
		return err
	}
	delete(s.db.likes, like.ID)
	return nil
}

func (db *DB) applyRating(target repository.LikeTarget, delta int) error {
	author, ok := db.users[target.AuthorID]
	if !ok {
		return repository.ErrStale
	}
	switch target.Kind {
	case repository.LikeTargetPost:
		post, ok := db.posts[target.ID]
		if !ok {
			return repository.ErrStale
		}
		post.Rating += delta
		db.posts[target.ID] = post
	default:
		comment, ok := db.comments[target.ID]
		if !ok {
			return repository.ErrStale
		}
		comment.Rating += delta
		db.comments[target.ID] = comment
	}
	author.Rating += delta
	db.users[target.AuthorID] = author
	return nil
}

func likeMatches(like model.Like, target repository.LikeTarget) bool {
	if target.Kind == repository.LikeTargetPost {
		return like.PostID != nil && *like.PostID == target.ID
	}
	return like.CommentID != nil && *like.CommentID == target.ID
}

type Bookmarks struct{ db *DB }

func (s *Bookmarks) Exists(_ context.Context, userID, postID uint) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	_, ok := s.db.bookmarks[[2]uint{userID, postID}]
	return ok, nil
}

func (s *Bookmarks) Create(_ context.Context, bookmark *model.Bookmark) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	key := [2]uint{bookmark.UserID, bookmark.PostID}
	if _, ok := s.db.bookmarks[key]; ok {
		return repository.ErrDuplicate
	}
	bookmark.CreatedAt = s.db.now()
	s.db.bookmarks[key] = *bookmark
	return nil
}

func (s *Bookmarks) Delete(_ context.Context, userID, postID uint) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	key := [2]uint{userID, postID}
	if _, ok := s.db.bookmarks[key]; !ok {
		return false, nil
	}
	delete(s.db.bookmarks, key)
	return true, nil
}

func (s *Bookmarks) ListPosts(_ context.Context, userID uint, status model.PostStatus, page repository.Page) ([]model.Post, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var marks []model.Bookmark
	for key, mark := range s.db.bookmarks {
		if key[0] == userID {
			marks = append(marks, mark)
		}
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i].CreatedAt.After(marks[j].CreatedAt) })

	var posts []model.Post
	for _, mark := range marks {
		post, ok := s.db.posts[mark.PostID]
		if !ok || (status != "" && post.Status != status) {
			continue
		}
		posts = append(posts, s.db.hydrate(post))
	}
	return paginate(posts, page), int64(len(posts)), nil
}
