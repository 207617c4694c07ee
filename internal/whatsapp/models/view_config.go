package models

import (
	"time"
)

// ViewConfigID 配置文档的固定 ID（单主人，只有一份配置）
const ViewConfigID = "default"

// MaxTriggers 触发词数量上限
const MaxTriggers = 50

// DefaultTrigger 默认触发词
const DefaultTrigger = "view"

// ViewConfig 转发配置
type ViewConfig struct {
	ID        string    `bson:"_id"`
	Chat      string    `bson:"chat,omitempty"` // 转发目标会话 JID，为空表示未设置
	Triggers  []string  `bson:"triggers"`       // 触发词
	Sticker   bool      `bson:"sticker"`        // 是否允许用贴纸触发
	Audio     bool      `bson:"audio"`          // 是否转发音频
	Status    bool      `bson:"status"`         // 是否启用点赞转发状态
	UpdatedAt time.Time `bson:"updated_at"`
}

// DefaultViewConfig 默认配置
func DefaultViewConfig() *ViewConfig {
	return &ViewConfig{
		ID:       ViewConfigID,
		Triggers: []string{DefaultTrigger},
		Sticker:  true,
		Audio:    true,
		Status:   false,
	}
}
