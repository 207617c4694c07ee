package whatsapp

import (
	"view_bot/internal/config"

	"go.mau.fi/whatsmeow/types"
)

// Gate 主人校验：只处理自己发出的或主人号码发出的事件
type Gate struct {
	OwnerNumber string // 只含数字
}

// NewGate 创建主人校验
func NewGate(ownerNumber string) Gate {
	return Gate{OwnerNumber: config.DigitsOnly(ownerNumber)}
}

// Allow 判断事件来源是否为主人
// 未配置主人号码时，除自己发出的事件外一律拒绝
func (g Gate) Allow(src types.MessageSource) bool {
	if src.IsFromMe {
		return true
	}
	if g.OwnerNumber == "" {
		return false
	}

	if config.DigitsOnly(src.Sender.User) == g.OwnerNumber {
		return true
	}
	// LID 寻址时手机号在 SenderAlt 上
	if !src.SenderAlt.IsEmpty() && config.DigitsOnly(src.SenderAlt.User) == g.OwnerNumber {
		return true
	}
	return false
}
