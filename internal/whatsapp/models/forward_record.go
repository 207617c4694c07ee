package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ForwardRecord 转发记录（审计用，TTL 自动过期）
type ForwardRecord struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Origin          string             `bson:"origin"`            // trigger/sticker/status
	Kind            string             `bson:"kind"`              // image/video/audio
	SourceChat      string             `bson:"source_chat"`       // 媒体所在会话
	SourceMessageID string             `bson:"source_message_id"` // 原始消息 ID
	TargetChat      string             `bson:"target_chat"`       // 转发目标
	MimeType        string             `bson:"mime_type,omitempty"`
	FileLength      int64              `bson:"file_length"`     // 声明大小
	Status          string             `bson:"status"`          // success/failed/too_large
	Error           string             `bson:"error,omitempty"` // 失败原因
	CreatedAt       time.Time          `bson:"created_at"`      // 创建时间（TTL索引）
}

const (
	ForwardOriginTrigger = "trigger"
	ForwardOriginSticker = "sticker"
	ForwardOriginStatus  = "status"
)

const (
	ForwardStatusSuccess  = "success"
	ForwardStatusFailed   = "failed"
	ForwardStatusTooLarge = "too_large"
)
