package whatsapp

import (
	"context"

	"view_bot/internal/logger"
	"view_bot/internal/whatsapp/media"
	"view_bot/internal/whatsapp/models"
	"view_bot/internal/whatsapp/trigger"

	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// handleMessage 处理主人发出的普通消息：先尝试指令，再判断是否触发转发
func (b *Bot) handleMessage(ctx context.Context, evt *events.Message) {
	if !b.gate.Allow(evt.Info.MessageSource) {
		logger.L().Debugf("Ignoring message %s from non-owner %s", evt.Info.ID, evt.Info.Sender)
		return
	}

	cfg, err := b.configService.Load(ctx)
	if err != nil {
		logger.L().Errorf("Failed to load config for message %s: %v", evt.Info.ID, err)
		return
	}

	msg := evt.Message
	text := media.ExtractText(msg)
	isSticker := msg.GetStickerMessage() != nil

	if !isSticker && b.handleCommand(ctx, evt.Info.Chat, text, cfg) {
		return
	}

	if cfg.Chat == "" {
		return
	}
	target, err := types.ParseJID(cfg.Chat)
	if err != nil {
		logger.L().Warnf("Configured destination %q is invalid: %v", cfg.Chat, err)
		return
	}

	ctxInfo := media.QuotedContext(msg)
	if ctxInfo.GetQuotedMessage() == nil {
		return
	}

	matcher := trigger.Matcher{Triggers: cfg.Triggers, StickerEnabled: cfg.Sticker}
	if !matcher.ShouldForward(text, isSticker) {
		return
	}

	desc, ok := media.Unwrap(ctxInfo.GetQuotedMessage(), media.RefFromContext(evt.Info, ctxInfo))
	if !ok {
		logger.L().Debugf("Quoted message of %s carries no forwardable media", evt.Info.ID)
		return
	}
	if desc.Kind == media.KindAudio && !cfg.Audio {
		logger.L().Debugf("Audio forwarding disabled, skipping %s", desc.Source.MessageID)
		return
	}
	logger.L().Debugf("Resolved quoted %s %s (envelope=%s)", desc.Kind, desc.Source.MessageID, desc.Envelope)

	origin := models.ForwardOriginTrigger
	if isSticker {
		origin = models.ForwardOriginSticker
	}

	b.forward(ctx, origin, media.Request{
		Media:     desc,
		Target:    target,
		Requester: evt.Info.Chat,
	})
}

// forward 执行转发并写入审计记录
func (b *Bot) forward(ctx context.Context, origin string, req media.Request) error {
	outcome, err := b.pipeline.Transfer(ctx, req)

	record := &models.ForwardRecord{
		Origin:          origin,
		Kind:            string(req.Media.Kind),
		SourceChat:      req.Media.Source.Chat.String(),
		SourceMessageID: string(req.Media.Source.MessageID),
		TargetChat:      req.Target.String(),
		MimeType:        req.Media.MimeType,
		FileLength:      int64(req.Media.FileLength),
		Status:          models.ForwardStatusSuccess,
	}

	switch {
	case err != nil:
		record.Status = models.ForwardStatusFailed
		record.Error = err.Error()
		logger.L().Errorf("Forward %s %s to %s failed: %v", req.Media.Kind, req.Media.Source.MessageID, req.Target, err)
	case outcome == media.OutcomeTooLarge:
		record.Status = models.ForwardStatusTooLarge
	default:
		logger.L().Infof("Forwarded %s %s to %s (origin=%s)", req.Media.Kind, req.Media.Source.MessageID, req.Target, origin)
	}

	if b.recordService != nil {
		b.recordService.Record(ctx, record)
	}
	return err
}
