package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options 日志初始化选项
type Options struct {
	Level string // 日志级别：debug/info/warn/error
	File  string // 日志文件路径（为空则只输出到标准输出）
}

var (
	log  = logrus.StandardLogger()
	once sync.Once
)

// Init 使用默认选项初始化 logger
func Init() {
	InitWithOptions(Options{Level: os.Getenv("LOG_LEVEL"), File: os.Getenv("LOG_FILE")})
}

// InitWithOptions 初始化 logger，只生效一次
func InitWithOptions(opts Options) {
	once.Do(func() {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})

		level, err := logrus.ParseLevel(strings.TrimSpace(opts.Level))
		if err != nil {
			level = logrus.InfoLevel
		}
		log.SetLevel(level)

		var out io.Writer = os.Stdout
		if opts.File != "" {
			// 按大小滚动，保留最近的日志文件
			out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    50, // MB
				MaxBackups: 5,
				MaxAge:     14, // 天
				Compress:   true,
			})
		}
		log.SetOutput(out)
	})
}

// L 返回全局 logger
func L() *logrus.Logger {
	return log
}
