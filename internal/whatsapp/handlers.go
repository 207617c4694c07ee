package whatsapp

import (
	"context"

	"view_bot/internal/logger"
	"view_bot/internal/whatsapp/statuscache"

	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// handleEvent whatsmeow 事件入口
// 状态入缓存在当前协程内完成，消息与回应交给工作池
func (b *Bot) handleEvent(rawEvt interface{}) {
	switch evt := rawEvt.(type) {
	case *events.Message:
		b.dispatchMessage(evt)
	case *events.MediaRetry:
		if t, ok := b.transport.(*clientTransport); ok {
			t.handleMediaRetry(evt)
		}
	case *events.Connected:
		logger.L().Info("WhatsApp connection established")
	case *events.Disconnected:
		logger.L().Warn("WhatsApp connection lost")
	case *events.LoggedOut:
		logger.L().Errorf("WhatsApp session logged out (reason=%v), pairing required", evt.Reason)
	}
}

func (b *Bot) dispatchMessage(evt *events.Message) {
	if evt == nil || evt.Message == nil {
		return
	}

	if evt.Message.GetReactionMessage() != nil {
		b.workerPool.Submit(EventTask{
			Ctx:  context.Background(),
			Name: "reaction " + string(evt.Info.ID),
			Run: func(ctx context.Context) {
				b.handleReaction(ctx, evt)
			},
		})
		return
	}

	if evt.Info.Chat == types.StatusBroadcastJID {
		b.ingestStatus(evt)
		return
	}

	b.workerPool.Submit(EventTask{
		Ctx:  context.Background(),
		Name: "message " + string(evt.Info.ID),
		Run: func(ctx context.Context) {
			b.handleMessage(ctx, evt)
		},
	})
}

// ingestStatus 缓存带图片/视频的状态，不做主人校验
func (b *Bot) ingestStatus(evt *events.Message) {
	key, entry, ok := statuscache.FromStatus(evt.Info, evt.Message)
	if !ok {
		return
	}
	b.cache.Put(key, entry)
	logger.L().Debugf("Status cached: key=%s kind=%s envelope=%s", key, entry.Kind, entry.Envelope)
}
