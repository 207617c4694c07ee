package service

import (
	"context"
	"errors"
	"fmt"

	"view_bot/internal/logger"
	"view_bot/internal/whatsapp/models"
	"view_bot/internal/whatsapp/repository"
	"view_bot/internal/whatsapp/trigger"
)

// ErrTooManyTriggers 触发词数量已达上限
var ErrTooManyTriggers = fmt.Errorf("触发词数量已达上限（%d）", models.MaxTriggers)

// ConfigServiceImpl 配置服务实现
type ConfigServiceImpl struct {
	repo repository.ViewConfigRepository
}

// NewConfigService 创建配置服务
func NewConfigService(repo repository.ViewConfigRepository) ConfigService {
	return &ConfigServiceImpl{repo: repo}
}

// Load 读取配置，不存在时返回默认值
func (s *ConfigServiceImpl) Load(ctx context.Context) (*models.ViewConfig, error) {
	cfg, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrConfigNotFound) {
			return models.DefaultViewConfig(), nil
		}
		logger.L().Errorf("Failed to load view config: %v", err)
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	normalizeTriggers(cfg)
	return cfg, nil
}

// SetDestination 设置转发目标
func (s *ConfigServiceImpl) SetDestination(ctx context.Context, chat string) (bool, error) {
	return s.mutate(ctx, func(cfg *models.ViewConfig) bool {
		if cfg.Chat == chat {
			return false
		}
		cfg.Chat = chat
		return true
	})
}

// SetSticker 开关贴纸触发
func (s *ConfigServiceImpl) SetSticker(ctx context.Context, enabled bool) (bool, error) {
	return s.mutate(ctx, func(cfg *models.ViewConfig) bool {
		return setFlag(&cfg.Sticker, enabled)
	})
}

// SetAudio 开关音频转发
func (s *ConfigServiceImpl) SetAudio(ctx context.Context, enabled bool) (bool, error) {
	return s.mutate(ctx, func(cfg *models.ViewConfig) bool {
		return setFlag(&cfg.Audio, enabled)
	})
}

// SetStatus 开关点赞转发状态
func (s *ConfigServiceImpl) SetStatus(ctx context.Context, enabled bool) (bool, error) {
	return s.mutate(ctx, func(cfg *models.ViewConfig) bool {
		return setFlag(&cfg.Status, enabled)
	})
}

// AddTrigger 添加触发词
func (s *ConfigServiceImpl) AddTrigger(ctx context.Context, word string) (bool, error) {
	word = trigger.NormalizeWord(word)
	if word == "" {
		return false, nil
	}

	full := false
	changed, err := s.mutate(ctx, func(cfg *models.ViewConfig) bool {
		for _, existing := range cfg.Triggers {
			if existing == word {
				return false
			}
		}
		if len(cfg.Triggers) >= models.MaxTriggers {
			full = true
			return false
		}
		cfg.Triggers = append(cfg.Triggers, word)
		return true
	})
	if err != nil {
		return false, err
	}
	if full {
		return false, ErrTooManyTriggers
	}
	return changed, nil
}

// RemoveTrigger 删除触发词
func (s *ConfigServiceImpl) RemoveTrigger(ctx context.Context, word string) (bool, error) {
	word = trigger.NormalizeWord(word)
	if word == "" {
		return false, nil
	}

	return s.mutate(ctx, func(cfg *models.ViewConfig) bool {
		kept := make([]string, 0, len(cfg.Triggers))
		for _, existing := range cfg.Triggers {
			if existing != word {
				kept = append(kept, existing)
			}
		}
		if len(kept) == len(cfg.Triggers) {
			return false
		}
		if len(kept) == 0 {
			kept = []string{models.DefaultTrigger}
		}
		cfg.Triggers = kept
		return true
	})
}

// mutate 读取 → 修改 → 有变化才保存
func (s *ConfigServiceImpl) mutate(ctx context.Context, apply func(cfg *models.ViewConfig) bool) (bool, error) {
	cfg, err := s.Load(ctx)
	if err != nil {
		return false, err
	}

	if !apply(cfg) {
		return false, nil
	}

	if err := s.repo.Save(ctx, cfg); err != nil {
		logger.L().Errorf("Failed to save view config: %v", err)
		return false, fmt.Errorf("保存配置失败: %w", err)
	}

	logger.L().Infof("View config updated: chat=%s triggers=%v sticker=%t audio=%t status=%t",
		cfg.Chat, cfg.Triggers, cfg.Sticker, cfg.Audio, cfg.Status)
	return true, nil
}

func setFlag(field *bool, value bool) bool {
	if *field == value {
		return false
	}
	*field = value
	return true
}

// normalizeTriggers 空触发词列表恢复为默认值
func normalizeTriggers(cfg *models.ViewConfig) {
	if len(cfg.Triggers) == 0 {
		cfg.Triggers = []string{models.DefaultTrigger}
	}
}
