package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"view_bot/internal/logger"
	"view_bot/internal/whatsapp/media"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/proto/waMmsRetry"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

// defaultReuploadTimeout 等待发送方重新上传的最长时间
const defaultReuploadTimeout = 30 * time.Second

// clientTransport 基于 whatsmeow 的 media.Transport 实现
type clientTransport struct {
	client          *whatsmeow.Client
	retries         *mediaRetryWaiter
	reuploadTimeout time.Duration
}

func newClientTransport(client *whatsmeow.Client) *clientTransport {
	return &clientTransport{
		client:          client,
		retries:         newMediaRetryWaiter(),
		reuploadTimeout: defaultReuploadTimeout,
	}
}

// SendText 发送文本
func (t *clientTransport) SendText(ctx context.Context, to types.JID, text string) error {
	_, err := t.client.SendMessage(ctx, to, &waE2E.Message{Conversation: proto.String(text)})
	if err != nil {
		return fmt.Errorf("failed to send text to %s: %w", to, err)
	}
	return nil
}

// Download 流式下载到临时文件
func (t *clientTransport) Download(ctx context.Context, src *media.Descriptor, dst *media.ScratchFile) error {
	msg := src.Downloadable()
	if msg == nil {
		return fmt.Errorf("message %s carries no downloadable %s", src.Source.MessageID, src.Kind)
	}

	err := t.client.DownloadToFile(ctx, msg, dst)
	if errors.Is(err, whatsmeow.ErrMediaDownloadFailedWith404) || errors.Is(err, whatsmeow.ErrMediaDownloadFailedWith410) {
		return fmt.Errorf("%w: %v", media.ErrMediaExpired, err)
	}
	return err
}

// RequestReupload 发送媒体重传回执并等待 MediaRetry 通知
func (t *clientTransport) RequestReupload(ctx context.Context, src *media.Descriptor) (*media.Descriptor, error) {
	msg := src.Downloadable()
	if msg == nil {
		return nil, fmt.Errorf("message %s carries no downloadable %s", src.Source.MessageID, src.Kind)
	}
	mediaKey := msg.GetMediaKey()

	wait := t.retries.expect(src.Source.MessageID)
	defer t.retries.forget(src.Source.MessageID, wait)

	if err := t.client.SendMediaRetryReceipt(ctx, src.Source.MessageInfo(), mediaKey); err != nil {
		return nil, fmt.Errorf("failed to send media retry receipt: %w", err)
	}

	timer := time.NewTimer(t.reuploadTimeout)
	defer timer.Stop()

	var evt *events.MediaRetry
	select {
	case evt = <-wait:
	case <-timer.C:
		return nil, fmt.Errorf("timed out waiting for reupload of %s", src.Source.MessageID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	notification, err := whatsmeow.DecryptMediaRetryNotification(evt, mediaKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt media retry notification: %w", err)
	}
	if notification.GetResult() != waMmsRetry.MediaRetryNotification_SUCCESS {
		return nil, fmt.Errorf("reupload of %s rejected: %s", src.Source.MessageID, notification.GetResult())
	}

	return withDirectPath(src, notification.GetDirectPath())
}

// SendMedia 流式读取临时文件，加密上传后作为同类媒体发送
func (t *clientTransport) SendMedia(ctx context.Context, to types.JID, upload media.Upload) error {
	appInfo := mediaTypeOf(upload.Kind)
	resp, err := streamUpload(upload.Path, func(plaintext io.Reader, encrypted io.ReadWriteSeeker) (whatsmeow.UploadResponse, error) {
		return t.client.UploadReader(ctx, plaintext, encrypted, appInfo)
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", upload.Kind, err)
	}

	msg := buildMediaMessage(upload, resp)
	if _, err := t.client.SendMessage(ctx, to, msg); err != nil {
		return fmt.Errorf("failed to send %s message: %w", upload.Kind, err)
	}
	return nil
}

type uploadFunc func(plaintext io.Reader, encrypted io.ReadWriteSeeker) (whatsmeow.UploadResponse, error)

// streamUpload 打开明文文件，并在同一临时目录创建密文文件供加密使用
// 两个文件在返回前都会关闭，密文文件会被删除
func streamUpload(path string, upload uploadFunc) (whatsmeow.UploadResponse, error) {
	plaintext, err := os.Open(path)
	if err != nil {
		return whatsmeow.UploadResponse{}, fmt.Errorf("failed to open scratch file: %w", err)
	}
	defer plaintext.Close()

	encrypted, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".enc-*")
	if err != nil {
		return whatsmeow.UploadResponse{}, fmt.Errorf("failed to create encryption scratch file: %w", err)
	}
	defer func() {
		_ = encrypted.Close()
		if err := os.Remove(encrypted.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.L().Warnf("Failed to remove encryption scratch file %s: %v", encrypted.Name(), err)
		}
	}()

	return upload(plaintext, encrypted)
}

func mediaTypeOf(kind media.Kind) whatsmeow.MediaType {
	switch kind {
	case media.KindVideo:
		return whatsmeow.MediaVideo
	case media.KindAudio:
		return whatsmeow.MediaAudio
	default:
		return whatsmeow.MediaImage
	}
}

// buildMediaMessage 由上传结果构造消息
func buildMediaMessage(upload media.Upload, resp whatsmeow.UploadResponse) *waE2E.Message {
	var caption *string
	if upload.Caption != "" {
		caption = proto.String(upload.Caption)
	}

	switch upload.Kind {
	case media.KindVideo:
		return &waE2E.Message{VideoMessage: &waE2E.VideoMessage{
			URL:           proto.String(resp.URL),
			DirectPath:    proto.String(resp.DirectPath),
			MediaKey:      resp.MediaKey,
			Mimetype:      proto.String(upload.MimeType),
			FileEncSHA256: resp.FileEncSHA256,
			FileSHA256:    resp.FileSHA256,
			FileLength:    proto.Uint64(resp.FileLength),
			Caption:       caption,
		}}
	case media.KindAudio:
		return &waE2E.Message{AudioMessage: &waE2E.AudioMessage{
			URL:           proto.String(resp.URL),
			DirectPath:    proto.String(resp.DirectPath),
			MediaKey:      resp.MediaKey,
			Mimetype:      proto.String(upload.MimeType),
			FileEncSHA256: resp.FileEncSHA256,
			FileSHA256:    resp.FileSHA256,
			FileLength:    proto.Uint64(resp.FileLength),
			PTT:           proto.Bool(upload.PTT),
		}}
	default:
		return &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
			URL:           proto.String(resp.URL),
			DirectPath:    proto.String(resp.DirectPath),
			MediaKey:      resp.MediaKey,
			Mimetype:      proto.String(upload.MimeType),
			FileEncSHA256: resp.FileEncSHA256,
			FileSHA256:    resp.FileSHA256,
			FileLength:    proto.Uint64(resp.FileLength),
			Caption:       caption,
		}}
	}
}

// withDirectPath 复制描述并替换媒体的 DirectPath，原描述保持不变
func withDirectPath(src *media.Descriptor, directPath string) (*media.Descriptor, error) {
	if directPath == "" {
		return nil, fmt.Errorf("reupload of %s returned empty direct path", src.Source.MessageID)
	}

	cloned, ok := proto.Clone(src.Source.Message).(*waE2E.Message)
	if !ok || cloned == nil {
		return nil, fmt.Errorf("failed to clone message %s", src.Source.MessageID)
	}

	switch src.Kind {
	case media.KindImage:
		if m := cloned.GetImageMessage(); m != nil {
			m.DirectPath = proto.String(directPath)
		}
	case media.KindVideo:
		if m := cloned.GetVideoMessage(); m != nil {
			m.DirectPath = proto.String(directPath)
		}
	case media.KindAudio:
		if m := cloned.GetAudioMessage(); m != nil {
			m.DirectPath = proto.String(directPath)
		}
	}

	refreshed := *src
	refreshed.Source.Message = cloned
	return &refreshed, nil
}

// handleMediaRetry 把 MediaRetry 事件交给正在等待的请求
func (t *clientTransport) handleMediaRetry(evt *events.MediaRetry) {
	if !t.retries.deliver(evt) {
		logger.L().Debugf("Unexpected media retry for %s", evt.MessageID)
	}
}

// mediaRetryWaiter 按消息 ID 匹配重传请求与通知
// 同一消息可以有多个请求同时等待，通知会发给每一个
type mediaRetryWaiter struct {
	mu      sync.Mutex
	pending map[types.MessageID][]chan *events.MediaRetry
}

func newMediaRetryWaiter() *mediaRetryWaiter {
	return &mediaRetryWaiter{pending: make(map[types.MessageID][]chan *events.MediaRetry)}
}

func (w *mediaRetryWaiter) expect(id types.MessageID) chan *events.MediaRetry {
	w.mu.Lock()
	defer w.mu.Unlock()

	ch := make(chan *events.MediaRetry, 1)
	w.pending[id] = append(w.pending[id], ch)
	return ch
}

// forget 只移除调用方自己的通道
func (w *mediaRetryWaiter) forget(id types.MessageID, ch chan *events.MediaRetry) {
	w.mu.Lock()
	defer w.mu.Unlock()

	waiters := w.pending[id]
	for i, c := range waiters {
		if c == ch {
			waiters = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(waiters) == 0 {
		delete(w.pending, id)
		return
	}
	w.pending[id] = waiters
}

func (w *mediaRetryWaiter) deliver(evt *events.MediaRetry) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	waiters := w.pending[evt.MessageID]
	if len(waiters) == 0 {
		return false
	}
	for _, ch := range waiters {
		select {
		case ch <- evt:
		default:
		}
	}
	return true
}
