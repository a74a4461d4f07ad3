package worker

import "time"

// 统一的 WebSocket 消息协议（通过 Redis Pub/Sub 转发给前端）。
// 注意：这里的字段名与前端解析保持一致。
const (
	MessageTypeNotification = "notification"
	MessageTypeApplication  = "application"
)

// NotificationMessage 是广播给所有在线用户的通知。
type NotificationMessage struct {
	Type           string    `json:"type"`
	NotificationID uint      `json:"notification_id"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	Author         string    `json:"author"`
	CreatedAt      time.Time `json:"created_at"`
}

// ApplicationMessage 是推送给投递者本人的回执。
type ApplicationMessage struct {
	Type    string `json:"type"`
	JobID   uint   `json:"job_id"`
	Role    string `json:"role"`
	Company string `json:"company"`
	Message string `json:"message"`
}
