package app

import (
	"context"
	"fmt"

	"view_bot/internal/config"
	"view_bot/internal/logger"
	"view_bot/internal/mongo"
	"view_bot/internal/whatsapp"

	"golang.org/x/sync/errgroup"
)

// App 应用服务容器
// 负责管理所有服务的生命周期（初始化、运行、关闭）
type App struct {
	MongoDB     *mongo.Client
	WhatsAppBot *whatsapp.Bot
}

// New 初始化应用及其所有服务
// 按顺序初始化各个服务，任何服务初始化失败都会返回错误
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{}

	mongoClient, err := mongo.InitFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init MongoDB failed: %w", err)
	}
	app.MongoDB = mongoClient
	logger.L().Info("MongoDB initialized successfully")

	bot, err := whatsapp.InitFromConfig(ctx, cfg, mongoClient.Database())
	if err != nil {
		_ = app.Close(context.Background())
		return nil, fmt.Errorf("init WhatsApp bot failed: %w", err)
	}
	app.WhatsAppBot = bot

	return app, nil
}

// Run 运行 Bot 直到 ctx 被取消或 Bot 出错退出
func (a *App) Run(ctx context.Context) error {
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := a.WhatsAppBot.Start(egCtx); err != nil {
			return fmt.Errorf("WhatsApp bot exited: %w", err)
		}
		return nil
	})

	err := eg.Wait()
	if ctx.Err() != nil {
		logger.L().Info("Shutdown signal received")
	}
	return err
}

// Close 优雅关闭所有服务
// 应该在应用退出时调用，确保资源正确释放
func (a *App) Close(ctx context.Context) error {
	if a.WhatsAppBot != nil {
		if err := a.WhatsAppBot.Stop(ctx); err != nil {
			logger.L().Warnf("Stop WhatsApp bot failed: %v", err)
		}
	}
	if a.MongoDB != nil {
		if err := a.MongoDB.Close(ctx); err != nil {
			return fmt.Errorf("close MongoDB failed: %w", err)
		}
	}
	return nil
}
