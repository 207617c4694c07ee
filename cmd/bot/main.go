package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"view_bot/internal/app"
	"view_bot/internal/config"
	"view_bot/internal/logger"
	"view_bot/internal/whatsapp/media"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "view-bot",
		Usage: "Forward quoted view-once media and liked statuses to a WhatsApp chat",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file loaded before reading the environment",
				Value: ".env",
			},
		},
		Before: loadEnvFile,
		Action: runBot,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Connect to WhatsApp and start forwarding (default)",
				Action: runBot,
			},
			{
				Name:   "clean-scratch",
				Usage:  "Remove leftover temporary media files older than TMP_MAX_AGE_MS",
				Action: cleanScratch,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadEnvFile 加载 .env，默认文件不存在时忽略
func loadEnvFile(c *cli.Context) error {
	path := c.String("env-file")
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !c.IsSet("env-file") {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func runBot(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.InitWithOptions(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.L().Errorf("应用初始化失败: %v", err)
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := application.Close(closeCtx); err != nil {
			logger.L().Errorf("应用关闭失败: %v", err)
		}
	}()

	logger.L().Info("View bot is running, press Ctrl+C to stop")
	return application.Run(ctx)
}

func cleanScratch(c *cli.Context) error {
	logger.Init()

	mediaCfg, err := config.LoadMedia(c.Context, envconfig.OsLookuper())
	if err != nil {
		return err
	}

	scratch, err := media.NewScratchDir(mediaCfg.Dir)
	if err != nil {
		return err
	}

	removed, err := scratch.CleanupOrphans(mediaCfg.TmpMaxAge())
	if err != nil {
		return err
	}
	logger.L().Infof("Removed %d scratch files older than %s from %s", removed, mediaCfg.TmpMaxAge(), scratch.Path())
	return nil
}
