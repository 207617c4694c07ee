package statuscache

import (
	"context"
	"time"

	"view_bot/internal/logger"
)

// Sweeper 定期清理过期状态
type Sweeper struct {
	cache    *Cache
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSweeper 创建清理任务
func NewSweeper(cache *Cache, interval time.Duration) *Sweeper {
	return &Sweeper{
		cache:    cache,
		interval: interval,
	}
}

// Start 启动后台清理
func (s *Sweeper) Start() {
	if s == nil || s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx)
	logger.L().Infof("Status cache sweeper started: interval=%s ttl=%s", s.interval, s.cache.TTL())
}

// Stop 停止后台清理并等待退出
func (s *Sweeper) Stop() {
	if s == nil || s.cancel == nil {
		return
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	logger.L().Info("Status cache sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := s.cache.Sweep(now); removed > 0 {
				logger.L().Debugf("Status cache sweep removed %d entries, %d remaining", removed, s.cache.Len())
			}
		}
	}
}
