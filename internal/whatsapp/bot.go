package whatsapp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"view_bot/internal/config"
	"view_bot/internal/logger"
	"view_bot/internal/whatsapp/media"
	"view_bot/internal/whatsapp/repository"
	"view_bot/internal/whatsapp/service"
	"view_bot/internal/whatsapp/statuscache"

	"go.mau.fi/whatsmeow"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	defaultStatusTTL           = 24 * time.Hour
	defaultStatusCleanInterval = 10 * time.Minute
)

// Config WhatsApp Bot 配置
type Config struct {
	OwnerNumber         string        // 主人手机号
	MediaDir            string        // 临时文件目录
	MaxMediaBytes       int64         // 单个文件上限
	StatusTTL           time.Duration // 状态缓存有效期
	StatusCleanInterval time.Duration // 状态缓存清理间隔
	Workers             int           // 事件处理协程数
	QueueSize           int           // 事件队列长度
}

// Bot WhatsApp Bot 服务
type Bot struct {
	client    *whatsmeow.Client // 测试中为 nil
	transport media.Transport
	sessionDB string

	configService service.ConfigService
	recordService service.ForwardRecordService

	gate       Gate
	cache      *statuscache.Cache
	sweeper    *statuscache.Sweeper
	scratch    *media.ScratchDir
	pipeline   *media.Pipeline
	workerPool *WorkerPool

	startTime time.Time
	stopOnce  sync.Once
}

// New 创建 Bot 实例
func New(cfg Config, transport media.Transport, configService service.ConfigService, recordService service.ForwardRecordService) (*Bot, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}
	if cfg.MaxMediaBytes <= 0 {
		return nil, fmt.Errorf("max media bytes must be > 0")
	}
	if cfg.OwnerNumber == "" {
		logger.L().Warn("OWNER_NUMBER is empty, only self-sent events will be handled")
	}

	scratch, err := media.NewScratchDir(cfg.MediaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare media dir: %w", err)
	}

	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = defaultStatusTTL
	}
	if cfg.StatusCleanInterval <= 0 {
		cfg.StatusCleanInterval = defaultStatusCleanInterval
	}

	cache := statuscache.New(cfg.StatusTTL)

	return &Bot{
		transport:     transport,
		configService: configService,
		recordService: recordService,
		gate:          NewGate(cfg.OwnerNumber),
		cache:         cache,
		sweeper:       statuscache.NewSweeper(cache, cfg.StatusCleanInterval),
		scratch:       scratch,
		pipeline:      media.NewPipeline(transport, scratch, cfg.MaxMediaBytes),
		workerPool:    NewWorkerPool(cfg.Workers, cfg.QueueSize),
		startTime:     time.Now(),
	}, nil
}

// InitFromConfig 从应用配置初始化 WhatsApp Bot（打开会话库、创建仓储与服务）
func InitFromConfig(ctx context.Context, cfg *config.Config, db *mongo.Database) (*Bot, error) {
	configRepo := repository.NewMongoViewConfigRepository(db)
	recordRepo := repository.NewMongoForwardRecordRepository(db)

	if err := recordRepo.EnsureIndexes(ctx, cfg.ForwardRecordRetentionDays); err != nil {
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}
	logger.L().Debug("Forward record indexes ensured")

	client, err := openSession(ctx, cfg.SessionDB)
	if err != nil {
		return nil, err
	}
	transport := newClientTransport(client)

	b, err := New(Config{
		OwnerNumber:         cfg.OwnerNumber,
		MediaDir:            cfg.Media.Dir,
		MaxMediaBytes:       cfg.Media.MaxBytes,
		StatusTTL:           cfg.Media.StatusTTL(),
		StatusCleanInterval: cfg.Media.StatusCleanInterval(),
		Workers:             cfg.Worker.Count,
		QueueSize:           cfg.Worker.QueueSize,
	}, transport, service.NewConfigService(configRepo), service.NewForwardRecordService(recordRepo))
	if err != nil {
		return nil, err
	}

	b.client = client
	b.sessionDB = cfg.SessionDB
	client.AddEventHandler(func(evt interface{}) {
		b.handleEvent(evt)
	})

	if removed, err := b.scratch.CleanupOrphans(cfg.Media.TmpMaxAge()); err != nil {
		logger.L().Warnf("Failed to clean orphan scratch files: %v", err)
	} else if removed > 0 {
		logger.L().Infof("Removed %d orphan scratch files", removed)
	}

	logger.L().Info("WhatsApp bot initialized successfully")
	return b, nil
}

// Start 启动 Bot（阻塞式，应在 goroutine 中运行）
func (b *Bot) Start(ctx context.Context) error {
	logger.L().Info("Starting WhatsApp bot...")

	if b.client != nil {
		if err := connect(ctx, b.client, qrPathFor(b.sessionDB)); err != nil {
			return err
		}
	}

	if ctx.Err() != nil {
		return nil
	}

	b.startTime = time.Now()
	b.sweeper.Start()

	<-ctx.Done()
	logger.L().Info("WhatsApp bot stopped")
	return nil
}

// Stop 停止 Bot：停止清理器、断开连接、等待进行中的任务
func (b *Bot) Stop(ctx context.Context) error {
	b.stopOnce.Do(func() {
		logger.L().Info("Stopping WhatsApp bot...")
		b.sweeper.Stop()
		if b.client != nil {
			b.client.Disconnect()
		}
		b.workerPool.Shutdown()
	})
	return nil
}
