package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bugtalk/internal/app"
	"bugtalk/internal/model"
	"bugtalk/internal/repository"
	"bugtalk/internal/transport/http/middleware"
	"bugtalk/internal/transport/http/response"
)

type PostHandler struct {
	postService    *app.PostService
	commentService *app.CommentService
}

type ListPostsQuery struct {
	pageQuery
	Categories []string  `form:"categories"`
	Title      string    `form:"title"`
	From       time.Time `form:"from" time_format:"2006-01-02"`
	To         time.Time `form:"to" time_format:"2006-01-02"`
	Status     string    `form:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
	Sort       string    `form:"sort"`
	Order      string    `form:"order" binding:"omitempty,oneof=asc desc ASC DESC"`
}

type CreatePostRequest struct {
	Title      string   `json:"title" binding:"required,max=255"`
	Content    string   `json:"content" binding:"required"`
	Categories []string `json:"categories" binding:"omitempty,dive,max=64"`
	Status     string   `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

type UpdatePostRequest struct {
	Title      *string   `json:"title" binding:"omitempty,min=1,max=255"`
	Content    *string   `json:"content" binding:"omitempty,min=1"`
	Categories *[]string `json:"categories"`
	Status     *string   `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

type LikeRequest struct {
	Type string `json:"type" binding:"required,oneof=LIKE DISLIKE"`
}

func NewPostHandler(postService *app.PostService, commentService *app.CommentService) *PostHandler {
	return &PostHandler{postService: postService, commentService: commentService}
}

func (h *PostHandler) List(c *gin.Context) {
	var q ListPostsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	if q.Sort != "" && !repository.IsPostSortField(q.Sort) {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "unsupported sort field "+q.Sort)
		return
	}

	filter := app.PostFilter{
		Categories: splitList(q.Categories),
		Title:      strings.TrimSpace(q.Title),
		Status:     model.PostStatus(q.Status),
		SortBy:     q.Sort,
		Order:      repository.SortOrder(strings.ToLower(q.Order)),
		Page:       q.page(),
	}
	if !q.From.IsZero() {
		filter.From = &q.From
	}
	if !q.To.IsZero() {
		// the whole "to" day is included
		end := q.To.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}

	result, err := h.postService.List(c.Request.Context(), middleware.CurrentUser(c), filter)
	if err != nil {
		writeError(c, err, "list posts")
		return
	}
	writePage(c, result)
}

func (h *PostHandler) Get(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	post, err := h.postService.Get(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		writeError(c, err, "get post")
		return
	}
	response.OK(c, post)
}

func (h *PostHandler) Create(c *gin.Context) {
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	post, err := h.postService.Create(c.Request.Context(), middleware.CurrentUser(c), app.CreatePostInput{
		Title:      req.Title,
		Content:    req.Content,
		Categories: req.Categories,
		Status:     model.PostStatus(req.Status),
	})
	if err != nil {
		writeError(c, err, "create post")
		return
	}
	response.Created(c, post)
}

func (h *PostHandler) Update(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	input := app.UpdatePostInput{
		Title:      req.Title,
		Content:    req.Content,
		Categories: req.Categories,
	}
	if req.Status != nil {
		status := model.PostStatus(*req.Status)
		input.Status = &status
	}

	post, err := h.postService.Update(c.Request.Context(), middleware.CurrentUser(c), id, input)
	if err != nil {
		writeError(c, err, "update post")
		return
	}
	response.OK(c, post)
}

func (h *PostHandler) Delete(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.postService.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		writeError(c, err, "delete post")
		return
	}
	response.NoContent(c)
}

func (h *PostHandler) ListComments(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}
	result, err := h.commentService.ListByPost(c.Request.Context(), middleware.CurrentUser(c), id, page)
	if err != nil {
		writeError(c, err, "list comments")
		return
	}
	writePage(c, result)
}

func (h *PostHandler) CreateComment(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	comment, err := h.commentService.Create(c.Request.Context(), middleware.CurrentUser(c), id, req.Content)
	if err != nil {
		writeError(c, err, "create comment")
		return
	}
	response.Created(c, comment)
}

func (h *PostHandler) ListCategories(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	categories, err := h.postService.ListCategories(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		writeError(c, err, "list post categories")
		return
	}
	response.OK(c, categories)
}

func (h *PostHandler) ListLikes(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	likes, err := h.postService.ListLikes(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		writeError(c, err, "list post likes")
		return
	}
	response.OK(c, likes)
}

func (h *PostHandler) AddLike(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req LikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	like, err := h.postService.AddLike(c.Request.Context(), middleware.CurrentUser(c), id, model.LikeType(req.Type))
	if err != nil {
		writeError(c, err, "like post")
		return
	}
	response.Created(c, like)
}

func (h *PostHandler) RemoveLike(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.postService.RemoveLike(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		writeError(c, err, "remove post like")
		return
	}
	response.NoContent(c)
}

func (h *PostHandler) AddBookmark(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.postService.AddBookmark(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		writeError(c, err, "bookmark post")
		return
	}
	response.Created(c, nil)
}

func (h *PostHandler) RemoveBookmark(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.postService.RemoveBookmark(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		writeError(c, err, "remove bookmark")
		return
	}
	response.NoContent(c)
}

// splitList accepts both repeated and comma separated query values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
