package whatsapp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"view_bot/internal/logger"

	_ "github.com/mattn/go-sqlite3"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
)

// openSession 打开 SQLite 会话库并创建客户端
func openSession(ctx context.Context, dsn string) (*whatsmeow.Client, error) {
	if dir := sessionDir(dsn); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	container, err := sqlstore.New(ctx, "sqlite3", dsn, logger.WhatsApp("Database"))
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load device: %w", err)
	}

	return whatsmeow.NewClient(device, logger.WhatsApp("Client")), nil
}

// connect 连接 WhatsApp；首次登录时输出配对码并写出二维码图片
func connect(ctx context.Context, client *whatsmeow.Client, qrPath string) error {
	if client.Store.ID != nil {
		if err := client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		logger.L().Infof("Connected as %s", client.Store.ID)
		return nil
	}

	qrChan, err := client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get QR channel: %w", err)
	}
	if err := client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	for item := range qrChan {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			logger.L().Infof("Scan the pairing code to log in: %s", item.Code)
			if err := writeQRCode(item.Code, qrPath); err != nil {
				logger.L().Warnf("Failed to write QR image: %v", err)
			} else {
				logger.L().Infof("QR image written to %s", qrPath)
			}
		case whatsmeow.QRChannelSuccess.Event:
			logger.L().Info("Pairing succeeded")
			return nil
		default:
			logger.L().Warnf("Pairing ended: %s", item.Event)
			return fmt.Errorf("pairing failed: %s", item.Event)
		}
	}
	return nil
}

// writeQRCode 将配对码写为 PNG
func writeQRCode(code, path string) error {
	if path == "" {
		return nil
	}
	return qrcode.WriteFile(code, qrcode.Medium, 256, path)
}

// sessionDir 从 DSN 中取出数据库文件所在目录
// 例如 file:data/session.db?_foreign_keys=on -> data
func sessionDir(dsn string) string {
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if path == "" || path == ":memory:" {
		return ""
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return ""
	}
	return dir
}

// qrPathFor 二维码图片放在会话库旁边
func qrPathFor(dsn string) string {
	dir := sessionDir(dsn)
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "pairing_qr.png")
}
