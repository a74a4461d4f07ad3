package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeNotificationBroadcast = "notification:broadcast"
	TypeApplicationReceived   = "application:received"
)

// Redis Pub/Sub 频道，WebSocket 端按同名频道订阅。
const (
	NotificationChannel = "notifications:broadcast"
	userChannelPrefix   = "user_notify:"
)

// UserChannel 返回单个用户的私有推送频道。
func UserChannel(userID uint) string {
	return fmt.Sprintf("%s%d", userChannelPrefix, userID)
}

// NotificationBroadcastPayload 指向一条已落库的通知。
type NotificationBroadcastPayload struct {
	NotificationID uint `json:"notification_id"`
}

// ApplicationReceivedPayload 描述一次成功投递。
type ApplicationReceivedPayload struct {
	JobID       uint   `json:"job_id"`
	CandidateID uint   `json:"candidate_id"`
	Role        string `json:"role"`
	Company     string `json:"company"`
}

// NewNotificationBroadcastTask 构造通知广播任务。
func NewNotificationBroadcastTask(notificationID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(NotificationBroadcastPayload{NotificationID: notificationID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeNotificationBroadcast, payload), nil
}

// NewApplicationReceivedTask 构造投递回执任务。
func NewApplicationReceivedTask(p ApplicationReceivedPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeApplicationReceived, payload), nil
}
