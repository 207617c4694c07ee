package service

import (
	"context"
	"fmt"
	"time"

	"view_bot/internal/logger"
	"view_bot/internal/whatsapp/models"
	"view_bot/internal/whatsapp/repository"
)

// ForwardRecordServiceImpl 转发记录服务实现
type ForwardRecordServiceImpl struct {
	repo repository.ForwardRecordRepository
	now  func() time.Time
}

// NewForwardRecordService 创建转发记录服务
func NewForwardRecordService(repo repository.ForwardRecordRepository) ForwardRecordService {
	return &ForwardRecordServiceImpl{repo: repo, now: time.Now}
}

// Record 写入转发记录，审计失败不影响转发结果
func (s *ForwardRecordServiceImpl) Record(ctx context.Context, record *models.ForwardRecord) {
	if record == nil {
		return
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	if err := s.repo.CreateRecord(ctx, record); err != nil {
		logger.L().Warnf("Failed to record forward of %s (%s): %v", record.SourceMessageID, record.Status, err)
	}
}

// CountRecent 统计最近 window 内成功转发的数量
func (s *ForwardRecordServiceImpl) CountRecent(ctx context.Context, window time.Duration) (int64, error) {
	count, err := s.repo.CountSince(ctx, s.now().Add(-window))
	if err != nil {
		return 0, fmt.Errorf("统计转发记录失败: %w", err)
	}
	return count, nil
}
