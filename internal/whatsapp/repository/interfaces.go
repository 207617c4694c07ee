package repository

import (
	"context"
	"errors"
	"time"

	"view_bot/internal/whatsapp/models"
)

// ErrConfigNotFound 尚未保存过配置
var ErrConfigNotFound = errors.New("view config not found")

// ViewConfigRepository 转发配置数据访问接口
type ViewConfigRepository interface {
	// Load 读取配置，不存在时返回 ErrConfigNotFound
	Load(ctx context.Context) (*models.ViewConfig, error)

	// Save 保存配置（upsert）
	Save(ctx context.Context, cfg *models.ViewConfig) error
}

// ForwardRecordRepository 转发记录数据访问接口
type ForwardRecordRepository interface {
	// CreateRecord 创建转发记录
	CreateRecord(ctx context.Context, record *models.ForwardRecord) error

	// CountSince 统计指定时间之后的成功转发数量
	CountSince(ctx context.Context, since time.Time) (int64, error)

	// EnsureIndexes 确保索引存在
	EnsureIndexes(ctx context.Context, retentionDays int) error
}
