package handler

import (
	"github.com/gin-gonic/gin"

	"bugtalk/internal/app"
	"bugtalk/internal/model"
	"bugtalk/internal/transport/http/middleware"
	"bugtalk/internal/transport/http/response"
)

type CommentHandler struct {
	commentService *app.CommentService
}

func NewCommentHandler(commentService *app.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

func (h *CommentHandler) Get(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	comment, err := h.commentService.Get(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		writeError(c, err, "get comment")
		return
	}
	response.OK(c, comment)
}

func (h *CommentHandler) Update(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	comment, err := h.commentService.Update(c.Request.Context(), middleware.CurrentUser(c), id, req.Content)
	if err != nil {
		writeError(c, err, "update comment")
		return
	}
	response.OK(c, comment)
}

func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.commentService.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		writeError(c, err, "delete comment")
		return
	}
	response.NoContent(c)
}

func (h *CommentHandler) ListLikes(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	likes, err := h.commentService.ListLikes(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		writeError(c, err, "list comment likes")
		return
	}
	response.OK(c, likes)
}

func (h *CommentHandler) AddLike(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req LikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	like, err := h.commentService.AddLike(c.Request.Context(), middleware.CurrentUser(c), id, model.LikeType(req.Type))
	if err != nil {
		writeError(c, err, "like comment")
		return
	}
	response.Created(c, like)
}

func (h *CommentHandler) RemoveLike(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.commentService.RemoveLike(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		writeError(c, err, "remove comment like")
		return
	}
	response.NoContent(c)
}
