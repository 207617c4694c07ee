package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"view_bot/internal/logger"

	"github.com/google/uuid"
)

// extensionTable MIME 关键字到扩展名的映射，按顺序匹配
var extensionTable = []struct {
	keyword string
	ext     string
}{
	{"jpeg", ".jpg"},
	{"jpg", ".jpg"},
	{"png", ".png"},
	{"webp", ".webp"},
	{"mp4", ".mp4"},
	{"mpeg", ".mp3"},
	{"ogg", ".ogg"},
	{"opus", ".ogg"},
	{"pdf", ".pdf"},
}

// PickExtension 根据 MIME 推断扩展名，无法识别时按媒体类型取默认值
func PickExtension(mimeType string, kind Kind) string {
	m := strings.ToLower(mimeType)
	for _, item := range extensionTable {
		if strings.Contains(m, item.keyword) {
			return item.ext
		}
	}
	switch kind {
	case KindImage:
		return ".jpg"
	case KindVideo:
		return ".mp4"
	case KindAudio:
		return ".ogg"
	}
	return ""
}

// ScratchDir 转发过程中使用的临时目录
type ScratchDir struct {
	dir string
	now func() time.Time
}

// NewScratchDir 创建（必要时）临时目录
func NewScratchDir(dir string) (*ScratchDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch dir %s: %w", dir, err)
	}
	return &ScratchDir{dir: dir, now: time.Now}, nil
}

// Path 返回目录路径
func (s *ScratchDir) Path() string {
	return s.dir
}

// ScratchFile 单次转发独占的临时文件
type ScratchFile struct {
	*os.File
	path string
}

// Acquire 创建一个唯一命名的临时文件
// 调用方必须 defer Release()
func (s *ScratchDir) Acquire(mimeType string, kind Kind) (*ScratchFile, error) {
	name := fmt.Sprintf("view_%d_%s%s",
		s.now().UnixMilli(),
		strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		PickExtension(mimeType, kind),
	)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch file: %w", err)
	}
	return &ScratchFile{File: f, path: path}, nil
}

// Path 临时文件路径
func (f *ScratchFile) Path() string {
	return f.path
}

// Reset 清空文件内容，用于重新下载
func (f *ScratchFile) Reset() error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	_, err := f.Seek(0, 0)
	return err
}

// Release 关闭并删除临时文件，可重复调用
func (f *ScratchFile) Release() {
	if f == nil {
		return
	}
	_ = f.Close()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		logger.L().Warnf("Failed to remove scratch file %s: %v", f.path, err)
	}
}

// CleanupOrphans 删除修改时间早于 maxAge 的残留文件（进程崩溃后的恢复）
func (s *ScratchDir) CleanupOrphans(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read scratch dir: %w", err)
	}

	now := s.now()
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.L().Warnf("Failed to remove orphan scratch file %s: %v", path, err)
			continue
		}
		removed++
	}
	return removed, nil
}
