package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"jobPortal/internal/api/middleware"
	"jobPortal/internal/workflow"
)

type notificationStore interface {
	ListNotifications(ctx context.Context) ([]workflow.Notification, error)
	GetNotification(ctx context.Context, id uint) (*workflow.Notification, error)
	SaveNotification(ctx context.Context, n *workflow.Notification) error
	UpdateNotification(ctx context.Context, n *workflow.Notification) error
	DeleteNotification(ctx context.Context, id uint) error
}

// NotificationHandler 提供通知的公开列表与管理员维护接口。
type NotificationHandler struct {
	store       notificationStore
	broadcaster workflow.Broadcaster
}

// NewNotificationHandler 构造 NotificationHandler，broadcaster 可为空。
func NewNotificationHandler(store notificationStore, broadcaster workflow.Broadcaster) *NotificationHandler {
	return &NotificationHandler{store: store, broadcaster: broadcaster}
}

type notificationRequest struct {
	Title  string `json:"title" binding:"required,max=255"`
	Body   string `json:"body" binding:"required"`
	Author string `json:"author" binding:"required,max=255"`
}

type notificationResponse struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

func newNotificationResponse(n workflow.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		Author:    n.Author,
		CreatedAt: n.CreatedAt,
	}
}

// ListNotifications 按时间倒序返回全部通知。
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	items, err := h.store.ListNotifications(c.Request.Context())
	if err != nil {
		middleware.LoggerFromContext(c).Error("list notifications failed", slog.Any("error", err))
		Internal(c, "failed to list notifications")
		return
	}

	resp := make([]notificationResponse, 0, len(items))
	for _, n := range items {
		resp = append(resp, newNotificationResponse(n))
	}
	c.JSON(http.StatusOK, gin.H{"items": resp})
}

// CreateNotification 手动发布通知，并推送给在线用户。
func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	var req notificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	n := workflow.Notification{
		Title:  strings.TrimSpace(req.Title),
		Body:   strings.TrimSpace(req.Body),
		Author: strings.TrimSpace(req.Author),
	}
	if err := h.store.SaveNotification(ctx, &n); err != nil {
		writeWorkflowError(c, workflow.Persistence("save notification", err))
		return
	}

	body := gin.H{"notification": newNotificationResponse(n)}
	if h.broadcaster != nil {
		if err := h.broadcaster.Broadcast(context.WithoutCancel(ctx), n); err != nil {
			middleware.LoggerFromContext(c).Warn("notification broadcast failed",
				slog.Uint64("notification_id", uint64(n.ID)),
				slog.Any("error", err),
			)
			body = withDegraded(body, &workflow.DegradedError{Event: workflow.EventNotificationPosted, Err: err})
		}
	}
	c.JSON(http.StatusCreated, body)
}

// UpdateNotification 覆盖标题、正文与作者。
func (h *NotificationHandler) UpdateNotification(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		BadRequest(c, "invalid notification id")
		return
	}

	var req notificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	n := workflow.Notification{
		ID:     id,
		Title:  strings.TrimSpace(req.Title),
		Body:   strings.TrimSpace(req.Body),
		Author: strings.TrimSpace(req.Author),
	}
	if err := h.store.UpdateNotification(ctx, &n); err != nil {
		writeWorkflowError(c, workflow.Persistence("update notification", err))
		return
	}

	updated, err := h.store.GetNotification(ctx, id)
	if err != nil {
		writeWorkflowError(c, workflow.Persistence("get notification", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"notification": newNotificationResponse(*updated)})
}

// DeleteNotification 删除通知。
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		BadRequest(c, "invalid notification id")
		return
	}

	if err := h.store.DeleteNotification(c.Request.Context(), id); err != nil {
		writeWorkflowError(c, workflow.Persistence("delete notification", err))
		return
	}
	c.Status(http.StatusNoContent)
}
