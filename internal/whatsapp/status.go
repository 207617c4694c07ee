package whatsapp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"view_bot/internal/logger"
	"view_bot/internal/whatsapp/models"
)

// buildListMessage 构建 view list 的回复文本
func (b *Bot) buildListMessage(ctx context.Context, cfg *models.ViewConfig) string {
	triggers := "无"
	if len(cfg.Triggers) > 0 {
		triggers = strings.Join(cfg.Triggers, ", ")
	}
	chat := cfg.Chat
	if chat == "" {
		chat = "未设置"
	}

	lines := []string{
		fmt.Sprintf("🔑 触发词: %s", triggers),
		fmt.Sprintf("🏷 贴纸: %s", onOff(cfg.Sticker)),
		fmt.Sprintf("🎧 音频: %s", onOff(cfg.Audio)),
		fmt.Sprintf("👀 状态: %s", onOff(cfg.Status)),
		fmt.Sprintf("📦 上限: %dMB", b.pipeline.MaxBytes()/(1024*1024)),
		fmt.Sprintf("💬 目标: %s", chat),
		fmt.Sprintf("🗂 已缓存状态: %d", b.cache.Len()),
	}

	if b.recordService != nil {
		count, err := b.recordService.CountRecent(ctx, 24*time.Hour)
		if err != nil {
			logger.L().Warnf("Failed to count recent forwards: %v", err)
			lines = append(lines, "📤 24小时转发: ⚠️ 统计失败")
		} else {
			lines = append(lines, fmt.Sprintf("📤 24小时转发: %d", count))
		}
	}

	if !b.startTime.IsZero() {
		lines = append(lines, fmt.Sprintf("⏱ 运行时间: %s", formatDuration(time.Since(b.startTime))))
	}

	if b.workerPool != nil {
		stats := b.workerPool.Stats()
		lines = append(lines, fmt.Sprintf("🛠 工作池: %d 个协程，队列 %d/%d", stats.Workers, stats.QueueLength, stats.QueueCapacity))
	}

	return strings.Join(lines, "\n")
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// formatDuration 将持续时间格式化为人类可读的字符串
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	d = d.Round(time.Second)

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second

	parts := make([]string, 0, 4)
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d天", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d小时", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d分钟", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d秒", seconds))
	}

	return strings.Join(parts, "")
}
