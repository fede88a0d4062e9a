package repository

import (
	"strings"
	"time"

	"bugtalk/internal/model"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page into the supported range.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

var postSortColumns = map[string]string{
	"id":         "posts.id",
	"title":      "posts.title",
	"rating":     "posts.rating",
	"created_at": "posts.created_at",
	"updated_at": "posts.updated_at",
}

// PostQuery combines every post filter with AND. Zero values disable a filter.
type PostQuery struct {
	Categories []string
	Title      string
	From       *time.Time
	To         *time.Time
	Status     model.PostStatus
	AuthorID   uint
	SortBy     string
	Order      SortOrder
	Page       Page
}

func IsPostSortField(field string) bool {
	_, ok := postSortColumns[field]
	return ok
}

func (q PostQuery) orderClause() string {
	column, ok := postSortColumns[q.SortBy]
	if !ok {
		column = postSortColumns["created_at"]
	}
	dir := "DESC"
	if strings.EqualFold(string(q.Order), string(SortAsc)) {
		dir = "ASC"
	}
	return column + " " + dir + ", posts.id " + dir
}

type LikeTargetKind string

const (
	LikeTargetPost    LikeTargetKind = "post"
	LikeTargetComment LikeTargetKind = "comment"
)

// LikeTarget identifies the rated row and the user whose rating follows it.
type LikeTarget struct {
	Kind     LikeTargetKind
	ID       uint
	AuthorID uint
}
