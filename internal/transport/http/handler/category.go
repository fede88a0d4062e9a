package handler

import (
	"github.com/gin-gonic/gin"

	"bugtalk/internal/app"
	"bugtalk/internal/transport/http/middleware"
	"bugtalk/internal/transport/http/response"
)

type CategoryHandler struct {
	categoryService *app.CategoryService
}

type CreateCategoryRequest struct {
	Title       string `json:"title" binding:"required,max=64"`
	Description string `json:"description" binding:"max=2000"`
}

type UpdateCategoryRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=64"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

func NewCategoryHandler(categoryService *app.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

func (h *CategoryHandler) List(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	result, err := h.categoryService.List(c.Request.Context(), page)
	if err != nil {
		writeError(c, err, "list categories")
		return
	}
	writePage(c, result)
}

func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	category, err := h.categoryService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "get category")
		return
	}
	response.OK(c, category)
}

func (h *CategoryHandler) ListPosts(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}
	result, err := h.categoryService.ListPosts(c.Request.Context(), middleware.CurrentUser(c), id, page)
	if err != nil {
		writeError(c, err, "list category posts")
		return
	}
	writePage(c, result)
}

func (h *CategoryHandler) Create(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	category, err := h.categoryService.Create(c.Request.Context(), app.CategoryInput{
		Title:       &req.Title,
		Description: &req.Description,
	})
	if err != nil {
		writeError(c, err, "create category")
		return
	}
	response.Created(c, category)
}

func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	category, err := h.categoryService.Update(c.Request.Context(), id, app.CategoryInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, err, "update category")
		return
	}
	response.OK(c, category)
}

func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.categoryService.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err, "delete category")
		return
	}
	response.NoContent(c)
}
