package media

import (
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
)

// Envelope 一次性查看（view-once）外层包装的种类
type Envelope int

const (
	EnvelopeNone Envelope = iota
	EnvelopeViewOnce
	EnvelopeViewOnceV2
	EnvelopeViewOnceV2Extension
)

func (e Envelope) String() string {
	switch e {
	case EnvelopeViewOnce:
		return "view_once"
	case EnvelopeViewOnceV2:
		return "view_once_v2"
	case EnvelopeViewOnceV2Extension:
		return "view_once_v2_extension"
	default:
		return "none"
	}
}

// ResolveEnvelope 识别外层包装并返回其内部消息
// 没有包装时返回 EnvelopeNone 和原消息本身；只解一层
func ResolveEnvelope(msg *waE2E.Message) (Envelope, *waE2E.Message) {
	if msg == nil {
		return EnvelopeNone, nil
	}
	if inner := msg.GetViewOnceMessage().GetMessage(); inner != nil {
		return EnvelopeViewOnce, inner
	}
	if inner := msg.GetViewOnceMessageV2().GetMessage(); inner != nil {
		return EnvelopeViewOnceV2, inner
	}
	if inner := msg.GetViewOnceMessageV2Extension().GetMessage(); inner != nil {
		return EnvelopeViewOnceV2Extension, inner
	}
	return EnvelopeNone, msg
}

// QuoteRef 被引用消息的定位信息
type QuoteRef struct {
	Chat        types.JID       // 回复所在的会话
	StanzaID    types.MessageID // 被引用消息 ID
	Participant types.JID       // 被引用消息的发送者（群聊）
	ReplyID     types.MessageID // 回复本身的 ID，StanzaID 为空时使用
	FromMe      bool
}

// RefFromContext 由回复的 ContextInfo 构造 QuoteRef
func RefFromContext(info types.MessageInfo, ctxInfo *waE2E.ContextInfo) QuoteRef {
	ref := QuoteRef{
		Chat:     info.Chat,
		StanzaID: ctxInfo.GetStanzaID(),
		ReplyID:  info.ID,
	}
	if p := ctxInfo.GetParticipant(); p != "" {
		if jid, err := types.ParseJID(p); err == nil {
			ref.Participant = jid
		}
	}
	if ref.StanzaID == "" {
		ref.FromMe = info.IsFromMe
	}
	return ref
}

func (r QuoteRef) source(msg *waE2E.Message) Source {
	id := r.StanzaID
	if id == "" {
		id = r.ReplyID
	}
	return Source{
		Chat:      r.Chat,
		MessageID: id,
		Sender:    r.Participant,
		FromMe:    r.FromMe,
		Message:   msg,
	}
}

// Unwrap 将被引用的消息解析为媒体描述
// 优先级：一次性（或直接携带的）图片/视频 > 普通音频
func Unwrap(quoted *waE2E.Message, ref QuoteRef) (*Descriptor, bool) {
	if quoted == nil {
		return nil, false
	}

	if desc, ok := visualDescriptor(quoted, ref.source); ok {
		return desc, true
	}

	if audio := quoted.GetAudioMessage(); audio != nil {
		mime := audio.GetMimetype()
		if mime == "" {
			mime = defaultAudioMimeType
		}
		return &Descriptor{
			Kind:       KindAudio,
			MimeType:   mime,
			FileLength: audio.GetFileLength(),
			PTT:        audio.GetPTT(),
			Source:     ref.source(quoted),
		}, true
	}

	return nil, false
}

// VisualDescriptor 解析图片/视频（直接携带或包一层 view-once）
func VisualDescriptor(msg *waE2E.Message, source Source) (*Descriptor, bool) {
	return visualDescriptor(msg, func(inner *waE2E.Message) Source {
		source.Message = inner
		return source
	})
}

func visualDescriptor(msg *waE2E.Message, source func(*waE2E.Message) Source) (*Descriptor, bool) {
	envelope, inner := ResolveEnvelope(msg)
	if inner == nil {
		return nil, false
	}

	if img := inner.GetImageMessage(); img != nil {
		return &Descriptor{
			Kind:       KindImage,
			MimeType:   img.GetMimetype(),
			FileLength: img.GetFileLength(),
			Caption:    img.GetCaption(),
			Envelope:   envelope,
			Source:     source(inner),
		}, true
	}
	if vid := inner.GetVideoMessage(); vid != nil {
		return &Descriptor{
			Kind:       KindVideo,
			MimeType:   vid.GetMimetype(),
			FileLength: vid.GetFileLength(),
			Caption:    vid.GetCaption(),
			Envelope:   envelope,
			Source:     source(inner),
		}, true
	}
	return nil, false
}

// QuotedContext 返回回复消息上的引用上下文
func QuotedContext(msg *waE2E.Message) *waE2E.ContextInfo {
	if msg == nil {
		return nil
	}
	switch {
	case msg.GetExtendedTextMessage().GetContextInfo() != nil:
		return msg.GetExtendedTextMessage().GetContextInfo()
	case msg.GetStickerMessage().GetContextInfo() != nil:
		return msg.GetStickerMessage().GetContextInfo()
	case msg.GetImageMessage().GetContextInfo() != nil:
		return msg.GetImageMessage().GetContextInfo()
	case msg.GetVideoMessage().GetContextInfo() != nil:
		return msg.GetVideoMessage().GetContextInfo()
	case msg.GetAudioMessage().GetContextInfo() != nil:
		return msg.GetAudioMessage().GetContextInfo()
	}
	return nil
}

// ExtractText 提取消息中的文本（正文或图片/视频/文档说明）
func ExtractText(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	switch {
	case msg.GetConversation() != "":
		return msg.GetConversation()
	case msg.GetExtendedTextMessage().GetText() != "":
		return msg.GetExtendedTextMessage().GetText()
	case msg.GetImageMessage().GetCaption() != "":
		return msg.GetImageMessage().GetCaption()
	case msg.GetVideoMessage().GetCaption() != "":
		return msg.GetVideoMessage().GetCaption()
	case msg.GetDocumentMessage().GetCaption() != "":
		return msg.GetDocumentMessage().GetCaption()
	}
	return ""
}
