package whatsapp

import (
	"context"
	"errors"
	"strings"

	"view_bot/internal/config"
	"view_bot/internal/logger"
	"view_bot/internal/whatsapp/models"
	"view_bot/internal/whatsapp/service"

	"go.mau.fi/whatsmeow/types"
)

// commandPrefix 指令首词
const commandPrefix = "view"

// ackText 状态变更后的确认回复
const ackText = "已完成"

// handleCommand 解析 view 指令，返回 true 表示已作为指令处理
// 无法识别的 view 文本返回 false，继续走触发词流程（"view" 本身也是默认触发词）
func (b *Bot) handleCommand(ctx context.Context, chat types.JID, text string, cfg *models.ViewConfig) bool {
	fields := strings.Fields(text)
	if len(fields) < 2 || strings.ToLower(fields[0]) != commandPrefix {
		return false
	}

	sub := strings.ToLower(fields[1])
	args := fields[2:]

	switch sub {
	case "here":
		if len(args) != 0 {
			return false
		}
		b.applyCommand(ctx, chat, "here", func() (bool, error) {
			return b.configService.SetDestination(ctx, chat.ToNonAD().String())
		})
		return true

	case "sticker", "audio", "estado":
		if len(args) != 1 {
			return false
		}
		enabled, ok := parseSwitch(args[0])
		if !ok {
			return false
		}
		setter := b.configService.SetStatus
		switch sub {
		case "sticker":
			setter = b.configService.SetSticker
		case "audio":
			setter = b.configService.SetAudio
		}
		b.applyCommand(ctx, chat, sub, func() (bool, error) {
			return setter(ctx, enabled)
		})
		return true

	case "add", "del":
		if len(args) == 0 {
			return false
		}
		word := strings.Join(args, " ")
		b.applyCommand(ctx, chat, sub, func() (bool, error) {
			if sub == "add" {
				return b.configService.AddTrigger(ctx, word)
			}
			return b.configService.RemoveTrigger(ctx, word)
		})
		return true

	case "list":
		if len(args) != 0 {
			return false
		}
		b.sendMessage(ctx, chat, b.buildListMessage(ctx, cfg))
		return true

	case "setchat":
		if len(args) != 1 {
			return false
		}
		target, ok := normalizeTargetJID(args[0])
		if !ok {
			logger.L().Debugf("Ignoring setchat with invalid target %q", args[0])
			return true
		}
		b.applyCommand(ctx, chat, "setchat", func() (bool, error) {
			return b.configService.SetDestination(ctx, target)
		})
		return true
	}

	return false
}

// applyCommand 执行修改：有变化回复确认，无变化不回复，失败回复错误
func (b *Bot) applyCommand(ctx context.Context, chat types.JID, name string, apply func() (bool, error)) {
	changed, err := apply()
	if err != nil {
		logger.L().Warnf("Command view %s failed: %v", name, err)
		if errors.Is(err, service.ErrTooManyTriggers) {
			b.sendErrorMessage(ctx, chat, err.Error())
		} else {
			b.sendErrorMessage(ctx, chat, "保存配置失败，请稍后重试")
		}
		return
	}
	if !changed {
		logger.L().Debugf("Command view %s made no change", name)
		return
	}
	b.sendSuccessMessage(ctx, chat, ackText)
}

func parseSwitch(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "on":
		return true, true
	case "off":
		return false, true
	}
	return false, false
}

// normalizeTargetJID 解析 setchat 参数
// 支持 xxx@g.us、xxx@s.whatsapp.net，其他输入取其中的数字作为个人号码
func normalizeTargetJID(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	if strings.HasSuffix(s, "@"+types.GroupServer) || strings.HasSuffix(s, "@"+types.DefaultUserServer) {
		jid, err := types.ParseJID(s)
		if err != nil || jid.User == "" {
			return "", false
		}
		return jid.String(), true
	}

	digits := config.DigitsOnly(s)
	if digits == "" {
		return "", false
	}
	return types.NewJID(digits, types.DefaultUserServer).String(), true
}
