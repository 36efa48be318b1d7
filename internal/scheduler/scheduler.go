// Package scheduler 提供定时任务调度
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dumeirei/funzone-backend/internal/common/logger"
	"github.com/dumeirei/funzone-backend/internal/common/metrics"
)

// defaultTaskTimeout 单次任务执行超时
const defaultTaskTimeout = 5 * time.Minute

// 执行结果，同时作为指标标签
const (
	resultOK    = "ok"
	resultError = "error"
	resultPanic = "panic"
)

// Task 定时任务
type Task struct {
	Name     string
	Interval time.Duration
	Handler  func(ctx context.Context) error
}

// Option 调度器选项
type Option func(*Scheduler)

// WithTaskTimeout 设置单次执行超时
func WithTaskTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMetrics 记录任务执行次数与耗时
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// Scheduler 按固定间隔运行任务，启动时每个任务先执行一次
// 每个任务只在自己的 goroutine 里串行执行，上一轮超时未结束的 tick 被丢弃，panic 只影响当轮
type Scheduler struct {
	tasks   []*Task
	log     *zap.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler 创建调度器，log 为 nil 时不输出日志
func NewScheduler(log *zap.Logger, opts ...Option) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		log:     log.Named("scheduler"),
		timeout: defaultTaskTimeout,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddTask 注册任务，间隔不大于 0 的任务被忽略
func (s *Scheduler) AddTask(name string, interval time.Duration, handler func(ctx context.Context) error) {
	if interval <= 0 {
		s.log.Warn("task skipped, interval not positive", zap.String("task", name))
		return
	}
	s.tasks = append(s.tasks, &Task{Name: name, Interval: interval, Handler: handler})
}

// Tasks 已注册的任务
func (s *Scheduler) Tasks() []*Task {
	return s.tasks
}

// Start 为每个任务启动一个 goroutine
func (s *Scheduler) Start() {
	s.log.Info("starting", zap.Int("tasks", len(s.tasks)))
	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.loop(task)
	}
}

// Stop 取消所有任务并等待当前执行结束
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	s.log.Info("stopped")
}

func (s *Scheduler) loop(task *Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	s.log.Debug("task scheduled", zap.String("task", task.Name), zap.Duration("interval", task.Interval))
	s.run(task)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.run(task)
		}
	}
}

// run 执行一轮任务并返回结果标签
func (s *Scheduler) run(task *Task) (result string) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("task panicked", zap.String("task", task.Name), zap.String("panic", fmt.Sprint(rec)), zap.Stack("stack"))
			result = resultPanic
		}
		s.metrics.RecordSchedulerRun(task.Name, result, time.Since(start))
	}()

	if err := task.Handler(ctx); err != nil {
		s.log.Error("task failed", zap.String("task", task.Name), zap.Error(err), logger.Elapsed(time.Since(start)))
		return resultError
	}
	s.log.Debug("task completed", zap.String("task", task.Name), logger.Elapsed(time.Since(start)))
	return resultOK
}
