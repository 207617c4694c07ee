package media

import (
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
)

// Kind 媒体类型
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// defaultAudioMimeType 语音消息缺省 MIME
const defaultAudioMimeType = "audio/ogg; codecs=opus"

// Source 重新下载媒体所需的寻址信息
type Source struct {
	Chat      types.JID       // 媒体所在会话
	MessageID types.MessageID // 原始消息 ID
	Sender    types.JID       // 群聊/状态中的发送者（可能为空）
	FromMe    bool
	Message   *waE2E.Message // 直接包含媒体字段的那一层消息
}

// Descriptor 待转发媒体的描述，由 Unwrap 生成后不再修改
type Descriptor struct {
	Kind       Kind
	MimeType   string
	FileLength uint64 // 声明的字节数，0 表示未知
	Caption    string
	PTT        bool     // 仅音频：是否为语音消息
	Envelope   Envelope // 解开的 view-once 外层，直接携带时为 EnvelopeNone
	Source     Source
}

// Downloadable 返回可供 whatsmeow 下载的媒体消息
func (d *Descriptor) Downloadable() whatsmeow.DownloadableMessage {
	if d == nil || d.Source.Message == nil {
		return nil
	}
	msg := d.Source.Message
	switch d.Kind {
	case KindImage:
		if m := msg.GetImageMessage(); m != nil {
			return m
		}
	case KindVideo:
		if m := msg.GetVideoMessage(); m != nil {
			return m
		}
	case KindAudio:
		if m := msg.GetAudioMessage(); m != nil {
			return m
		}
	}
	return nil
}

// MessageInfo 构造媒体重传请求需要的消息信息
func (s Source) MessageInfo() *types.MessageInfo {
	return &types.MessageInfo{
		ID: s.MessageID,
		MessageSource: types.MessageSource{
			Chat:     s.Chat,
			Sender:   s.Sender,
			IsFromMe: s.FromMe,
			IsGroup:  s.Chat.Server == types.GroupServer,
		},
	}
}
