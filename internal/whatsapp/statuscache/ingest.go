package statuscache

import (
	"view_bot/internal/whatsapp/media"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
)

// AuthorOf 取状态的作者标识：优先发送者，其次会话
func AuthorOf(chat, sender types.JID) string {
	if !sender.IsEmpty() {
		return sender.ToNonAD().String()
	}
	if !chat.IsEmpty() {
		return chat.ToNonAD().String()
	}
	return ""
}

// authorsOf 返回作者的主标识与备用标识
// 主标识优先使用手机号形式；发送者以 LID 寻址且带有手机号时，LID 作为备用标识
func authorsOf(src types.MessageSource) (primary, alt string) {
	sender := src.Sender
	if sender.Server == types.HiddenUserServer && !src.SenderAlt.IsEmpty() {
		return AuthorOf(src.Chat, src.SenderAlt), sender.ToNonAD().String()
	}
	if !sender.IsEmpty() && src.SenderAlt.Server == types.HiddenUserServer {
		return AuthorOf(src.Chat, sender), src.SenderAlt.ToNonAD().String()
	}
	return AuthorOf(src.Chat, sender), ""
}

// FromStatus 判断一条状态广播是否值得缓存，并生成缓存键与条目
// 只缓存图片/视频（直接携带或包一层 view-once）且带消息 ID 的状态
func FromStatus(info types.MessageInfo, msg *waE2E.Message) (string, Entry, bool) {
	if msg == nil || info.Chat != types.StatusBroadcastJID || info.ID == "" {
		return "", Entry{}, false
	}

	desc, ok := media.VisualDescriptor(msg, media.Source{})
	if !ok {
		return "", Entry{}, false
	}

	author, alt := authorsOf(info.MessageSource)
	entry := Entry{
		MessageID: info.ID,
		Author:    author,
		AltAuthor: alt,
		Chat:      info.Chat,
		Sender:    info.Sender.ToNonAD(),
		Message:   msg,
		MimeType:  desc.MimeType,
		Kind:      desc.Kind,
		Envelope:  desc.Envelope,
	}
	return Key(string(info.ID), author), entry, true
}
