package handler

import (
	"errors"
	"log"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"bugtalk/internal/app"
	"bugtalk/internal/repository"
	"bugtalk/internal/transport/http/response"
)

var errorKinds = []struct {
	kind   error
	status int
	code   int
}{
	{app.ErrBadRequest, http.StatusBadRequest, response.CodeBadRequest},
	{app.ErrUnauthorized, http.StatusUnauthorized, response.CodeUnauthorized},
	{app.ErrForbidden, http.StatusForbidden, response.CodeForbidden},
	{app.ErrNotFound, http.StatusNotFound, response.CodeNotFound},
	{app.ErrConflict, http.StatusConflict, response.CodeConflict},
}

// writeError maps service errors to responses. Anything without a known kind
// is logged and reported as a 500 naming the failed action.
func writeError(c *gin.Context, err error, action string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.kind) {
			response.Error(c, k.status, k.code, err.Error())
			return
		}
	}
	log.Printf("%s failed: %v", action, err)
	response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, action+" failed")
}

// RegisterValidatorTags makes validation errors report json/form field names.
func RegisterValidatorTags() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
}

func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	response.Invalid(c, fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func parseUintParam(c *gin.Context, key string) (uint, bool) {
	u, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil || u == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid "+key)
		return 0, false
	}
	return uint(u), true
}

type pageQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (q pageQuery) page() repository.Page {
	return repository.Page{Number: q.Page, Size: q.Limit}
}

func bindPage(c *gin.Context) (repository.Page, bool) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return repository.Page{}, false
	}
	return q.page(), true
}

func writePage[T any](c *gin.Context, page *app.PageResult[T]) {
	response.Page(c, page.Items, page.Meta)
}
