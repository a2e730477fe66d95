// Package refresher 协调所有刷新触发源：同一时刻最多只有一次聚合在执行，
// 其余触发者加入正在进行的那一次并共享结果。
package refresher

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/LJTian/TrendPulse/internal/aggregator"
	"github.com/LJTian/TrendPulse/internal/cache"
	"github.com/LJTian/TrendPulse/internal/logger"
	"github.com/LJTian/TrendPulse/internal/models"
)

// 所有触发源共用一个 key：刷新是全局的，不按主题区分
const flightKey = "refresh"

const recordTimeout = 5 * time.Second

// Status 一次 Refresh / EnsureFresh 调用的结果
type Status string

const (
	StatusReplaced Status = Status(aggregator.OutcomeReplaced)
	StatusReused   Status = Status(aggregator.OutcomeReused)
	StatusRetained Status = Status(aggregator.OutcomeRetained)
	// StatusFresh 缓存仍新鲜，未抓取
	StatusFresh Status = "fresh"
	// StatusCooldown 最近一次刷新全部失败，冷却期内不再按需刷新
	StatusCooldown Status = "cooldown"
)

type Outcome struct {
	Status   Status
	Shared   bool
	RunID    string
	Trigger  models.Trigger
	Topics   []string
	Fetched  int
	Failed   int
	Snapshot *cache.Snapshot
}

// Aggregator 由 aggregator.Aggregator 实现
type Aggregator interface {
	Aggregate(ctx context.Context, topics []string, previous []models.Article) aggregator.Result
}

// RunRecorder 保存刷新记录；失败只记录日志
type RunRecorder interface {
	RecordRun(ctx context.Context, run models.RefreshRun) error
}

type Refresher struct {
	store    *cache.Store
	agg      Aggregator
	recorder RunRecorder
	timeout  time.Duration
	cooldown time.Duration
	log      *slog.Logger
	now      func() time.Time

	group       singleflight.Group
	lastFailure atomic.Int64 // UnixNano，0 表示最近一次没有全失败
}

type Option func(*Refresher)

func WithRecorder(rr RunRecorder) Option {
	return func(r *Refresher) { r.recorder = rr }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Refresher) { r.log = logger.OrDiscard(l) }
}

func WithClock(now func() time.Time) Option {
	return func(r *Refresher) { r.now = now }
}

func New(store *cache.Store, agg Aggregator, timeout, cooldown time.Duration, opts ...Option) *Refresher {
	r := &Refresher{
		store:    store,
		agg:      agg,
		timeout:  timeout,
		cooldown: cooldown,
		log:      logger.Discard(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Refresher) Store() *cache.Store {
	return r.store
}

// Refresh 无视新鲜度执行一次刷新（定时、预热、人工强制）
func (r *Refresher) Refresh(ctx context.Context, topics []string, trigger models.Trigger) (Outcome, error) {
	return r.do(ctx, models.NormalizeTopics(topics), trigger, false)
}

// EnsureFresh 仅在缓存过期时刷新；冷却期内直接返回旧快照
func (r *Refresher) EnsureFresh(ctx context.Context, topics []string) (Outcome, error) {
	topics = models.NormalizeTopics(topics)
	if out, skip := r.skip(topics); skip {
		return out, nil
	}
	return r.do(ctx, topics, models.TriggerOnDemand, true)
}

func (r *Refresher) skip(topics []string) (Outcome, bool) {
	if !r.store.IsStale() {
		return Outcome{Status: StatusFresh, Trigger: models.TriggerOnDemand, Topics: topics, Snapshot: r.store.Snapshot()}, true
	}
	if r.inCooldown() {
		r.log.Debug("on-demand refresh suppressed after total failure", slog.Any("topics", topics))
		return Outcome{Status: StatusCooldown, Trigger: models.TriggerOnDemand, Topics: topics, Snapshot: r.store.Snapshot()}, true
	}
	return Outcome{}, false
}

func (r *Refresher) inCooldown() bool {
	last := r.lastFailure.Load()
	if last == 0 || r.cooldown <= 0 {
		return false
	}
	return r.now().Sub(time.Unix(0, last)) < r.cooldown
}

func (r *Refresher) do(ctx context.Context, topics []string, trigger models.Trigger, onlyIfStale bool) (Outcome, error) {
	ch := r.group.DoChan(flightKey, func() (v any, err error) {
		defer func() {
			if p := recover(); p != nil {
				r.log.Error("refresh panicked", slog.String("trigger", string(trigger)), slog.Any("panic", p))
				v, err = Outcome{Status: StatusRetained, Trigger: trigger, Topics: topics, Snapshot: r.store.Snapshot()}, fmt.Errorf("refresh panicked: %v", p)
			}
		}()
		// 排队期间可能已有别的刷新完成
		if onlyIfStale {
			if out, skip := r.skip(topics); skip {
				return out, nil
			}
		}
		return r.run(ctx, topics, trigger), nil
	})

	select {
	case res := <-ch:
		out, _ := res.Val.(Outcome)
		out.Shared = res.Shared
		return out, res.Err
	case <-ctx.Done():
		// 刷新本身继续执行，结果仍会写入缓存
		return Outcome{Trigger: trigger, Topics: topics, Snapshot: r.store.Snapshot()}, ctx.Err()
	}
}

func (r *Refresher) run(parent context.Context, topics []string, trigger models.Trigger) Outcome {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), r.timeout)
	defer cancel()

	id := uuid.NewString()
	start := r.now()
	log := r.log.With(slog.String("run_id", id), slog.String("trigger", string(trigger)))
	log.Info("refresh started", slog.Any("topics", topics))

	prev := r.store.Snapshot()
	res := r.agg.Aggregate(ctx, topics, prev.Articles)

	snap := prev
	switch res.Outcome {
	case aggregator.OutcomeRetained:
		r.lastFailure.Store(r.now().UnixNano())
		log.Warn("all sources failed, keeping previous trends",
			slog.Int("failed", res.Stats.Failed),
			slog.Int("cached", len(prev.Articles)),
		)
	default:
		snap = r.store.Replace(res.Articles)
		r.lastFailure.Store(0)
	}

	run := models.RefreshRun{
		ID:           id,
		Trigger:      trigger,
		Topics:       topics,
		StartedAt:    start,
		Duration:     r.now().Sub(start),
		Fetched:      res.Stats.Fetched,
		Failed:       res.Stats.Failed,
		CorpusSize:   len(snap.Articles),
		Outcome:      string(res.Outcome),
		AdapterStats: adapterStats(res),
	}
	if res.Outcome == aggregator.OutcomeRetained {
		run.Error = "all source calls failed"
	}
	log.Info("refresh finished",
		slog.String("outcome", run.Outcome),
		slog.Int("articles", run.CorpusSize),
		slog.Duration("elapsed", run.Duration),
	)
	r.record(ctx, run)

	return Outcome{
		Status:   Status(res.Outcome),
		RunID:    id,
		Trigger:  trigger,
		Topics:   topics,
		Fetched:  res.Stats.Fetched,
		Failed:   res.Stats.Failed,
		Snapshot: snap,
	}
}

func (r *Refresher) record(ctx context.Context, run models.RefreshRun) {
	if r.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := r.recorder.RecordRun(ctx, run); err != nil {
		r.log.Warn("record refresh run failed", slog.String("run_id", run.ID), slog.Any("err", err))
	}
}

func adapterStats(res aggregator.Result) map[string]map[string]int {
	out := make(map[string]map[string]int, len(res.Stats.Adapters))
	for name, s := range res.Stats.Adapters {
		out[name] = map[string]int{"ok": s.OK, "empty": s.Empty, "failed": s.Failed}
	}
	return out
}
