package whatsapp

import (
	"context"
	"sync"
	"sync/atomic"

	"view_bot/internal/logger"
)

// EventTask 事件处理任务
type EventTask struct {
	Ctx  context.Context
	Name string // 用于日志，例如 "message ABC123"
	Run  func(ctx context.Context)
}

// WorkerPoolStats 工作池状态
type WorkerPoolStats struct {
	Workers       int
	QueueLength   int
	QueueCapacity int
	Dropped       uint64
}

// WorkerPool 事件工作池
type WorkerPool struct {
	taskQueue chan EventTask
	wg        sync.WaitGroup
	workers   int
	dropped   atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool 创建工作池
// workers: worker 协程数量
// queueSize: 任务队列大小
func NewWorkerPool(workers int, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	pool := &WorkerPool{
		taskQueue: make(chan EventTask, queueSize),
		workers:   workers,
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	logger.L().Infof("Worker pool started with %d workers, queue size %d", workers, queueSize)
	return pool
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	logger.L().Debugf("Worker %d started", id)

	for task := range p.taskQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.L().Errorf("Worker %d: task %s panic recovered: %v", id, task.Name, r)
				}
			}()

			ctx := task.Ctx
			if ctx == nil {
				ctx = context.Background()
			}
			task.Run(ctx)
		}()
	}

	logger.L().Debugf("Worker %d stopped", id)
}

// Submit 提交任务；队列已满或已关闭时丢弃并返回 false
func (p *WorkerPool) Submit(task EventTask) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		logger.L().Warnf("Worker pool is shut down, task %s dropped", task.Name)
		p.dropped.Add(1)
		return false
	}

	select {
	case p.taskQueue <- task:
		return true
	default:
		logger.L().Warnf("Worker pool queue is full, task %s dropped", task.Name)
		p.dropped.Add(1)
		return false
	}
}

// Stats 返回当前状态
func (p *WorkerPool) Stats() WorkerPoolStats {
	return WorkerPoolStats{
		Workers:       p.workers,
		QueueLength:   len(p.taskQueue),
		QueueCapacity: cap(p.taskQueue),
		Dropped:       p.dropped.Load(),
	}
}

// Shutdown 优雅关闭工作池
// 等待所有已提交的任务完成，可重复调用
func (p *WorkerPool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.taskQueue)
	p.mu.Unlock()

	logger.L().Info("Shutting down worker pool...")
	p.wg.Wait()
	logger.L().Info("Worker pool shut down successfully")
}
