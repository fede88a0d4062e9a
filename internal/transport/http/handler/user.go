package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bugtalk/internal/app"
	"bugtalk/internal/model"
	"bugtalk/internal/storage"
	"bugtalk/internal/transport/http/middleware"
	"bugtalk/internal/transport/http/response"
)

type UserHandler struct {
	userService *app.UserService
}

type CreateUserRequest struct {
	Login    string     `json:"login" binding:"required,min=5,max=20"`
	Email    string     `json:"email" binding:"required,email,max=128"`
	Password string     `json:"password" binding:"required,min=8,max=128"`
	FullName string     `json:"fullname" binding:"max=128"`
	Role     model.Role `json:"role" binding:"omitempty,oneof=USER ADMIN"`
	Verified bool       `json:"verified"`
}

type UpdateUserRequest struct {
	Login    *string     `json:"login" binding:"omitempty,min=5,max=20"`
	Email    *string     `json:"email" binding:"omitempty,email,max=128"`
	Password *string     `json:"password" binding:"omitempty,min=8,max=128"`
	FullName *string     `json:"fullname" binding:"omitempty,max=128"`
	Role     *model.Role `json:"role" binding:"omitempty,oneof=USER ADMIN"`
	Verified *bool       `json:"verified"`
}

func NewUserHandler(userService *app.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) List(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	result, err := h.userService.List(c.Request.Context(), page)
	if err != nil {
		writeError(c, err, "list users")
		return
	}
	writePage(c, result)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	user, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "get user")
		return
	}
	response.OK(c, user)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.userService.Create(c.Request.Context(), app.CreateUserInput{
		Login:    req.Login,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.Role,
		Verified: req.Verified,
	})
	if err != nil {
		writeError(c, err, "create user")
		return
	}
	response.Created(c, user)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.userService.Update(c.Request.Context(), middleware.CurrentUser(c), id, app.UpdateUserInput{
		Login:    req.Login,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.Role,
		Verified: req.Verified,
	})
	if err != nil {
		writeError(c, err, "update user")
		return
	}
	response.OK(c, user)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.userService.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		writeError(c, err, "delete user")
		return
	}
	response.NoContent(c)
}

func (h *UserHandler) UploadAvatar(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	file, err := c.FormFile("avatar")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "avatar file is required")
		return
	}

	user, err := h.userService.UploadAvatar(c.Request.Context(), middleware.CurrentUser(c), id, file)
	switch {
	case errors.Is(err, storage.ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeTooLarge, err.Error())
	case errors.Is(err, storage.ErrUnsupportedType):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case err != nil:
		writeError(c, err, "upload avatar")
	default:
		response.OK(c, user)
	}
}

func (h *UserHandler) ListPosts(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}
	result, err := h.userService.ListPosts(c.Request.Context(), middleware.CurrentUser(c), id, page)
	if err != nil {
		writeError(c, err, "list user posts")
		return
	}
	writePage(c, result)
}

func (h *UserHandler) ListBookmarks(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	result, err := h.userService.ListBookmarks(c.Request.Context(), middleware.CurrentUser(c), page)
	if err != nil {
		writeError(c, err, "list bookmarks")
		return
	}
	writePage(c, result)
}
