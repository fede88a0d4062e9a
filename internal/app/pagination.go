package app

import "bugtalk/internal/repository"

type PageMeta struct {
	Page  int   `json:"page"`
	Total int64 `json:"total"`
	Count int   `json:"count"`
	Pages int   `json:"pages"`
	Next  *int  `json:"next"`
	Prev  *int  `json:"prev"`
}

type PageResult[T any] struct {
	Items []T
	Meta  PageMeta
}

func newPage[T any](items []T, total int64, page repository.Page) *PageResult[T] {
	page = page.Normalize()
	if items == nil {
		items = []T{}
	}

	pages := int((total + int64(page.Size) - 1) / int64(page.Size))
	meta := PageMeta{
		Page:  page.Number,
		Total: total,
		Count: len(items),
		Pages: pages,
	}
	if page.Number < pages {
		next := page.Number + 1
		meta.Next = &next
	}
	if page.Number > 1 {
		prev := page.Number - 1
		if prev > pages && pages > 0 {
			prev = pages
		}
		meta.Prev = &prev
	}
	return &PageResult[T]{Items: items, Meta: meta}
}
