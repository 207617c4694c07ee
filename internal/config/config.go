package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const defaultSessionDB = "file:data/session.db?_foreign_keys=on"

// Config 应用程序配置
type Config struct {
	OwnerNumber string `env:"OWNER_NUMBER"`                   // Bot 主人的手机号（只保留数字）
	MongoURI    string `env:"MONGO_URI"`                      // MongoDB连接URI
	MongoDBName string `env:"MONGO_DB_NAME,default=view_bot"` // MongoDB数据库名称
	SessionDB   string `env:"SESSION_DB"`                     // WhatsApp 会话库（sqlite DSN）

	Media  MediaConfig
	Worker WorkerConfig
	Log    LogConfig

	ForwardRecordRetentionDays int `env:"FORWARD_RECORD_RETENTION_DAYS,default=7"` // 转发记录保留天数
}

// MediaConfig 媒体转发与状态缓存相关配置（毫秒单位与旧版环境变量保持一致）
type MediaConfig struct {
	Dir           string `env:"MEDIA_DIR,default=media_tmp"`
	MaxBytes      int64  `env:"MAX_MEDIA_BYTES,default=125829120"` // 单个文件上限，默认 120MB
	StatusTTLMs   int64  `env:"STATUS_TTL_MS,default=86400000"`    // 状态缓存有效期，默认 24h
	StatusCleanMs int64  `env:"STATUS_CLEAN_MS,default=600000"`    // 状态缓存清理间隔，默认 10 分钟
	TmpMaxAgeMs   int64  `env:"TMP_MAX_AGE_MS,default=21600000"`   // 启动时清理超过该时长的临时文件，默认 6h
}

// WorkerConfig 事件处理工作池配置
type WorkerConfig struct {
	Count     int `env:"WORKER_COUNT,default=8"`
	QueueSize int `env:"WORKER_QUEUE,default=128"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `env:"LOG_LEVEL,default=info"`
	File  string `env:"LOG_FILE"`
}

// StatusTTL 状态缓存有效期
func (m MediaConfig) StatusTTL() time.Duration {
	return time.Duration(m.StatusTTLMs) * time.Millisecond
}

// StatusCleanInterval 状态缓存清理间隔
func (m MediaConfig) StatusCleanInterval() time.Duration {
	return time.Duration(m.StatusCleanMs) * time.Millisecond
}

// TmpMaxAge 临时文件最大保留时长
func (m MediaConfig) TmpMaxAge() time.Duration {
	return time.Duration(m.TmpMaxAgeMs) * time.Millisecond
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	return LoadWithLookuper(context.Background(), envconfig.OsLookuper())
}

// LoadWithLookuper 从指定来源加载配置（测试时可传入 MapLookuper）
func LoadWithLookuper(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to parse env vars: %w", err)
	}

	cfg.OwnerNumber = DigitsOnly(cfg.OwnerNumber)
	cfg.MongoURI = strings.TrimSpace(cfg.MongoURI)
	if cfg.SessionDB = strings.TrimSpace(cfg.SessionDB); cfg.SessionDB == "" {
		cfg.SessionDB = defaultSessionDB
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadMedia 只加载媒体相关配置（离线清理临时文件时不需要 MongoDB）
func LoadMedia(ctx context.Context, lookuper envconfig.Lookuper) (*MediaConfig, error) {
	media := &MediaConfig{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   media,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to parse env vars: %w", err)
	}
	if media.TmpMaxAgeMs <= 0 {
		return nil, fmt.Errorf("TMP_MAX_AGE_MS must be > 0, got %d", media.TmpMaxAgeMs)
	}
	return media, nil
}

func (c *Config) validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.Media.MaxBytes <= 0 {
		return fmt.Errorf("MAX_MEDIA_BYTES must be > 0, got %d", c.Media.MaxBytes)
	}
	if c.Media.StatusTTLMs <= 0 {
		return fmt.Errorf("STATUS_TTL_MS must be > 0, got %d", c.Media.StatusTTLMs)
	}
	if c.Media.StatusCleanMs <= 0 {
		return fmt.Errorf("STATUS_CLEAN_MS must be > 0, got %d", c.Media.StatusCleanMs)
	}
	if c.Media.TmpMaxAgeMs <= 0 {
		return fmt.Errorf("TMP_MAX_AGE_MS must be > 0, got %d", c.Media.TmpMaxAgeMs)
	}
	if c.Worker.Count < 1 {
		return fmt.Errorf("WORKER_COUNT must be >= 1, got %d", c.Worker.Count)
	}
	if c.Worker.QueueSize < 1 {
		return fmt.Errorf("WORKER_QUEUE must be >= 1, got %d", c.Worker.QueueSize)
	}
	if c.ForwardRecordRetentionDays < 1 {
		return fmt.Errorf("FORWARD_RECORD_RETENTION_DAYS must be >= 1, got %d", c.ForwardRecordRetentionDays)
	}
	return nil
}

// DigitsOnly 只保留字符串中的数字
// 例如: "+54 9 11-2345" -> "549112345"
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
