package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LJTian/TrendPulse/internal/logger"
	"github.com/LJTian/TrendPulse/internal/models"
	"github.com/LJTian/TrendPulse/internal/refresher"
)

// Refresher 由 refresher.Refresher 实现
type Refresher interface {
	Refresh(ctx context.Context, topics []string, trigger models.Trigger) (refresher.Outcome, error)
}

// TopicSource 每次触发时读取当前目录中的主题集合，目录热加载后立即生效
type TopicSource interface {
	ScheduledTopics() []string
	WarmupTopics() []string
}

type Scheduler struct {
	cron        *cron.Cron
	refresher   Refresher
	topics      TopicSource
	warmupDelay time.Duration
	log         *slog.Logger

	mu     sync.Mutex
	warmup *time.Timer
	ctx    context.Context
	cancel context.CancelFunc
}

func New(spec string, warmupDelay time.Duration, r Refresher, topics TopicSource, log *slog.Logger) (*Scheduler, error) {
	log = logger.OrDiscard(log)
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{log})))

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:        c,
		refresher:   r,
		topics:      topics,
		warmupDelay: warmupDelay,
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}

	if _, err := c.AddFunc(spec, func() { s.RunOnce(models.TriggerScheduled) }); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// 延迟执行预热，避免与服务启动争抢资源
	s.mu.Lock()
	s.warmup = time.AfterFunc(s.warmupDelay, func() {
		s.RunOnce(models.TriggerWarmup)
	})
	s.mu.Unlock()
	s.log.Info("scheduler started", slog.Duration("warmup_delay", s.warmupDelay))
}

// Stop 停止调度并等待正在执行的定时任务结束
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.warmup != nil {
		s.warmup.Stop()
	}
	s.mu.Unlock()
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunOnce 对外暴露的单次执行入口，按触发源选择主题集合
func (s *Scheduler) RunOnce(trigger models.Trigger) {
	topics := s.topics.ScheduledTopics()
	if trigger == models.TriggerWarmup {
		topics = s.topics.WarmupTopics()
	}
	s.log.Info("start refresh job", slog.String("trigger", string(trigger)), slog.Any("topics", topics))

	out, err := s.refresher.Refresh(s.ctx, topics, trigger)
	if err != nil {
		s.log.Warn("refresh job failed", slog.String("trigger", string(trigger)), slog.Any("err", err))
		return
	}
	s.log.Info("refresh job done",
		slog.String("trigger", string(trigger)),
		slog.String("status", string(out.Status)),
		slog.Bool("shared", out.Shared),
		slog.Int("articles", len(out.Snapshot.Articles)),
	)
}

// cronLogger 把 cron 的内部日志接到 slog
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append([]interface{}{"err", err}, keysAndValues...)...)
}
