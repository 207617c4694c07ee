package media

import (
	"context"
	"errors"
	"fmt"

	"view_bot/internal/logger"

	"github.com/gabriel-vasile/mimetype"
	"go.mau.fi/whatsmeow/types"
)

// ErrMediaExpired 平台上的媒体副本已过期，需要请求重新上传
var ErrMediaExpired = errors.New("media expired on server")

// Upload 待发送的本地媒体文件
type Upload struct {
	Kind     Kind
	MimeType string
	Caption  string
	PTT      bool
	Path     string
}

// Transport 消息平台的传输层
type Transport interface {
	// SendText 发送文本消息
	SendText(ctx context.Context, to types.JID, text string) error

	// Download 将媒体内容写入 dst；媒体已过期时返回 ErrMediaExpired
	Download(ctx context.Context, src *Descriptor, dst *ScratchFile) error

	// RequestReupload 请求发送方重新上传已过期的媒体，返回可重新下载的描述
	RequestReupload(ctx context.Context, src *Descriptor) (*Descriptor, error)

	// SendMedia 上传本地文件并作为同类媒体发送
	SendMedia(ctx context.Context, to types.JID, upload Upload) error
}

// Outcome 转发结果
type Outcome int

const (
	OutcomeForwarded Outcome = iota
	OutcomeTooLarge
)

func (o Outcome) String() string {
	if o == OutcomeTooLarge {
		return "too_large"
	}
	return "forwarded"
}

// Request 一次转发请求
type Request struct {
	Media           *Descriptor
	Target          types.JID // 转发目标会话
	Requester       types.JID // 超限提示发送到这里
	CaptionOverride string
}

// Pipeline 媒体转发流水线：大小检查 -> 落盘 -> 重新上传 -> 清理
type Pipeline struct {
	transport Transport
	scratch   *ScratchDir
	maxBytes  int64
}

// NewPipeline 创建转发流水线
func NewPipeline(transport Transport, scratch *ScratchDir, maxBytes int64) *Pipeline {
	return &Pipeline{
		transport: transport,
		scratch:   scratch,
		maxBytes:  maxBytes,
	}
}

// MaxBytes 单个文件大小上限
func (p *Pipeline) MaxBytes() int64 {
	return p.maxBytes
}

// TooLarge 声明大小已知且超过上限
func (p *Pipeline) TooLarge(length uint64) bool {
	return length > 0 && length > uint64(p.maxBytes)
}

// SizeLimitText 超限提示文本
func (p *Pipeline) SizeLimitText(kind Kind) string {
	subject := "文件"
	if kind == KindAudio {
		subject = "音频"
	}
	return fmt.Sprintf("⚠️ %s超过允许的大小（最大 %dMB）", subject, p.maxBytes/(1024*1024))
}

// Transfer 执行一次转发，不做重试
func (p *Pipeline) Transfer(ctx context.Context, req Request) (Outcome, error) {
	desc := req.Media
	if desc == nil {
		return OutcomeForwarded, fmt.Errorf("missing media descriptor")
	}

	if p.TooLarge(desc.FileLength) {
		if err := p.transport.SendText(ctx, req.Requester, p.SizeLimitText(desc.Kind)); err != nil {
			logger.L().Warnf("Failed to send size limit notice to %s: %v", req.Requester, err)
		}
		logger.L().Infof("Media rejected by size gate: kind=%s length=%d max=%d", desc.Kind, desc.FileLength, p.maxBytes)
		return OutcomeTooLarge, nil
	}

	file, err := p.scratch.Acquire(desc.MimeType, desc.Kind)
	if err != nil {
		return OutcomeForwarded, err
	}
	defer file.Release()

	if err := p.download(ctx, desc, file); err != nil {
		return OutcomeForwarded, err
	}

	mimeType := desc.MimeType
	if mimeType == "" {
		if detected, err := mimetype.DetectFile(file.Path()); err == nil {
			mimeType = detected.String()
		}
	}

	caption := desc.Caption
	if req.CaptionOverride != "" {
		caption = req.CaptionOverride
	}

	upload := Upload{
		Kind:     desc.Kind,
		MimeType: mimeType,
		Caption:  caption,
		Path:     file.Path(),
	}
	if desc.Kind == KindAudio {
		upload.Caption = ""
		upload.PTT = desc.PTT
	}

	if err := p.transport.SendMedia(ctx, req.Target, upload); err != nil {
		return OutcomeForwarded, fmt.Errorf("failed to send %s to %s: %w", desc.Kind, req.Target, err)
	}
	return OutcomeForwarded, nil
}

func (p *Pipeline) download(ctx context.Context, desc *Descriptor, file *ScratchFile) error {
	err := p.transport.Download(ctx, desc, file)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrMediaExpired) {
		return fmt.Errorf("failed to download %s %s: %w", desc.Kind, desc.Source.MessageID, err)
	}

	logger.L().Infof("Media %s expired, requesting reupload", desc.Source.MessageID)
	refreshed, err := p.transport.RequestReupload(ctx, desc)
	if err != nil {
		return fmt.Errorf("failed to request reupload for %s: %w", desc.Source.MessageID, err)
	}
	if err := file.Reset(); err != nil {
		return fmt.Errorf("failed to reset scratch file: %w", err)
	}
	if err := p.transport.Download(ctx, refreshed, file); err != nil {
		return fmt.Errorf("failed to download reuploaded %s %s: %w", desc.Kind, desc.Source.MessageID, err)
	}
	return nil
}
