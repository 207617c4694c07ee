package whatsapp

import (
	"context"
	"strings"

	"view_bot/internal/logger"
	"view_bot/internal/whatsapp/media"
	"view_bot/internal/whatsapp/models"

	"go.mau.fi/whatsmeow/proto/waCommon"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// statusNotForwardedText 状态未命中缓存或转发失败时发到目标会话的提示
const statusNotForwardedText = "无法转发这条状态。\n" +
	"常见原因：状态没有进入缓存，或 WhatsApp 没有推送它。\n" +
	"提示：先打开状态等它加载完成，再点 ❤️。"

// heartReactions 触发状态转发的表情
var heartReactions = map[string]struct{}{
	"❤️": {},
	"❤":  {},
	"💖":  {},
	"💗":  {},
	"💓":  {},
	"💕":  {},
	"😍":  {},
	"👍":  {},
}

func isHeartReaction(text string) bool {
	_, ok := heartReactions[strings.TrimSpace(text)]
	return ok
}

// handleReaction 主人对状态点赞时，从缓存中取出状态转发到目标会话
func (b *Bot) handleReaction(ctx context.Context, evt *events.Message) {
	if !b.gate.Allow(evt.Info.MessageSource) {
		logger.L().Debugf("Ignoring reaction %s from non-owner %s", evt.Info.ID, evt.Info.Sender)
		return
	}

	cfg, err := b.configService.Load(ctx)
	if err != nil {
		logger.L().Errorf("Failed to load config for reaction %s: %v", evt.Info.ID, err)
		return
	}
	if !cfg.Status || cfg.Chat == "" {
		return
	}
	target, err := types.ParseJID(cfg.Chat)
	if err != nil {
		logger.L().Warnf("Configured destination %q is invalid: %v", cfg.Chat, err)
		return
	}

	reaction := evt.Message.GetReactionMessage()
	if !isHeartReaction(reaction.GetText()) {
		return
	}

	key := reaction.GetKey()
	if remote := key.GetRemoteJID(); remote != "" && remote != types.StatusBroadcastJID.String() {
		logger.L().Debugf("Ignoring reaction to non-status chat %s", remote)
		return
	}

	if !b.forwardStatus(ctx, key, target) {
		b.sendWarningMessage(ctx, target, statusNotForwardedText)
	}
}

// forwardStatus 查找并转发被点赞的状态，返回是否成功
func (b *Bot) forwardStatus(ctx context.Context, key *waCommon.MessageKey, target types.JID) bool {
	id := key.GetID()
	if id == "" {
		return false
	}

	author := reactionAuthor(key)
	entry, ok := b.cache.Lookup(id, author)
	if !ok {
		logger.L().Infof("Status %s|%s not in cache (cached=%d)", id, author, b.cache.Len())
		return false
	}

	desc, ok := entry.Descriptor()
	if !ok {
		logger.L().Warnf("Cached status %s has no forwardable media", id)
		return false
	}

	err := b.forward(ctx, models.ForwardOriginStatus, media.Request{
		Media:     desc,
		Target:    target,
		Requester: target,
	})
	return err == nil
}

// reactionAuthor 被点赞状态的作者，与入缓存时的作者格式一致
func reactionAuthor(key *waCommon.MessageKey) string {
	raw := key.GetParticipant()
	if raw == "" {
		raw = key.GetRemoteJID()
	}
	if raw == "" {
		return ""
	}
	jid, err := types.ParseJID(raw)
	if err != nil {
		return raw
	}
	return jid.ToNonAD().String()
}
