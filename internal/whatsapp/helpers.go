package whatsapp

import (
	"context"

	"view_bot/internal/logger"

	"go.mau.fi/whatsmeow/types"
)

// sendMessage 发送文本消息（统一错误处理）
func (b *Bot) sendMessage(ctx context.Context, chat types.JID, text string) {
	if err := b.transport.SendText(ctx, chat, text); err != nil {
		logger.L().Errorf("Failed to send message to chat %s: %v", chat, err)
	}
}

// sendErrorMessage 发送错误消息
func (b *Bot) sendErrorMessage(ctx context.Context, chat types.JID, message string) {
	b.sendMessage(ctx, chat, "❌ "+message)
}

// sendSuccessMessage 发送成功消息
func (b *Bot) sendSuccessMessage(ctx context.Context, chat types.JID, message string) {
	b.sendMessage(ctx, chat, "✅ "+message)
}

// sendWarningMessage 发送提示消息
func (b *Bot) sendWarningMessage(ctx context.Context, chat types.JID, message string) {
	b.sendMessage(ctx, chat, "⚠️ "+message)
}
