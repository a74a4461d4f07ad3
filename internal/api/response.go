package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobPortal/internal/api/middleware"
	"jobPortal/internal/errcode"
	"jobPortal/internal/workflow"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func Forbidden(c *gin.Context, msg string)  { Error(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// workflowStatus 将业务错误映射到 HTTP 状态码与错误码。
func workflowStatus(err error) (int, int) {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		return http.StatusNotFound, errcode.NotFound
	case errors.Is(err, workflow.ErrForbidden):
		return http.StatusForbidden, errcode.Forbidden
	case errors.Is(err, workflow.ErrNotEligible):
		return http.StatusUnprocessableEntity, errcode.NotEligible
	case errors.Is(err, workflow.ErrAlreadyApplied):
		return http.StatusConflict, errcode.AlreadyApplied
	case errors.Is(err, workflow.ErrNotApplied):
		return http.StatusForbidden, errcode.NotApplied
	case errors.Is(err, workflow.ErrInvalidStatus):
		return http.StatusBadRequest, errcode.InvalidStatus
	case errors.Is(err, workflow.ErrInvalidJob):
		return http.StatusBadRequest, errcode.InvalidJob
	case errors.Is(err, workflow.ErrInvalidAnswers):
		return http.StatusBadRequest, errcode.InvalidAnswers
	case errors.Is(err, workflow.ErrInvalidProfile):
		return http.StatusBadRequest, errcode.InvalidProfile
	case errors.Is(err, workflow.ErrPersistence):
		return http.StatusInternalServerError, errcode.Persistence
	default:
		return http.StatusInternalServerError, errcode.SystemError
	}
}

// writeWorkflowError 输出业务错误；系统错误不向客户端暴露细节。
func writeWorkflowError(c *gin.Context, err error) {
	status, code := workflowStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		middleware.LoggerFromContext(c).Error("workflow operation failed", slog.Any("error", err))
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg, "code": code})
}

// withDegraded 在分发失败时给成功响应附加告警字段，主状态码不变。
func withDegraded(body gin.H, degraded *workflow.DegradedError) gin.H {
	if degraded != nil {
		body["degraded"] = true
		body["warning"] = degraded.Error()
		body["code"] = errcode.Degraded
	}
	return body
}
