package service

import (
	"context"
	"time"

	"view_bot/internal/whatsapp/models"
)

// ConfigService 转发配置业务逻辑接口
//
// 所有修改方法返回 changed：值未变化时不写库，调用方据此决定是否回复确认。
type ConfigService interface {
	// Load 读取当前配置（每个事件都重新读取，不缓存）
	Load(ctx context.Context) (*models.ViewConfig, error)

	// SetDestination 设置转发目标会话
	SetDestination(ctx context.Context, chat string) (bool, error)

	// SetSticker 开关贴纸触发
	SetSticker(ctx context.Context, enabled bool) (bool, error)

	// SetAudio 开关音频转发
	SetAudio(ctx context.Context, enabled bool) (bool, error)

	// SetStatus 开关点赞转发状态
	SetStatus(ctx context.Context, enabled bool) (bool, error)

	// AddTrigger 添加触发词（上限 models.MaxTriggers）
	AddTrigger(ctx context.Context, word string) (bool, error)

	// RemoveTrigger 删除触发词，删空后恢复默认触发词
	RemoveTrigger(ctx context.Context, word string) (bool, error)
}

// ForwardRecordService 转发记录业务逻辑接口
type ForwardRecordService interface {
	// Record 写入一条转发记录（失败只记日志）
	Record(ctx context.Context, record *models.ForwardRecord)

	// CountRecent 统计最近一段时间内成功转发的数量
	CountRecent(ctx context.Context, window time.Duration) (int64, error)
}
