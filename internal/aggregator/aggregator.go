// Package aggregator 负责一次完整的抓取：按 (数据源, 主题) 并发调用各数据源，
// 再把结果折叠为去重、排序、截断后的语料。
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/LJTian/TrendPulse/internal/collector"
	"github.com/LJTian/TrendPulse/internal/logger"
	"github.com/LJTian/TrendPulse/internal/models"
	"github.com/LJTian/TrendPulse/internal/processor"
)

// Outcome 一次聚合对缓存的影响
type Outcome string

const (
	// OutcomeReplaced 合并结果替换旧语料
	OutcomeReplaced Outcome = "replaced"
	// OutcomeReused 有成功调用但合并为空，沿用旧语料并刷新时间戳
	OutcomeReused Outcome = "reused"
	// OutcomeRetained 所有调用都失败，快照保持不动
	OutcomeRetained Outcome = "retained"
)

const defaultConcurrency = 4

// Enricher 在合并后对语料做补充（例如抓取配图）
type Enricher interface {
	Enrich(ctx context.Context, articles []models.Article) int
}

type Result struct {
	Topics   []string
	Articles []models.Article
	Stats    processor.MergeStats
	Outcome  Outcome
}

type Aggregator struct {
	fetchers    []collector.Fetcher
	concurrency int
	callTimeout time.Duration
	enricher    Enricher
	log         *slog.Logger
}

type Option func(*Aggregator)

func WithEnricher(e Enricher) Option {
	return func(a *Aggregator) { a.enricher = e }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.log = logger.OrDiscard(l) }
}

func New(fetchers []collector.Fetcher, concurrency int, callTimeout time.Duration, opts ...Option) *Aggregator {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	a := &Aggregator{
		fetchers:    fetchers,
		concurrency: concurrency,
		callTimeout: callTimeout,
		log:         logger.Discard(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Aggregate 抓取并合并 topics 的文章。previous 为当前缓存语料，只在 reused/retained 时原样返回。
func (a *Aggregator) Aggregate(ctx context.Context, topics []string, previous []models.Article) Result {
	topics = models.NormalizeTopics(topics)
	start := time.Now()

	// 结果槽位固定为 数据源序号*主题数+主题序号，合并顺序与完成顺序无关
	results := make([]models.FetchResult, len(a.fetchers)*len(topics))
	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, a.concurrency)
	)
	for fi, f := range a.fetchers {
		for ti, topic := range topics {
			wg.Add(1)
			sem <- struct{}{}
			go func(slot int, f collector.Fetcher, topic string) {
				defer wg.Done()
				defer func() { <-sem }()
				results[slot] = a.call(ctx, f, topic)
			}(fi*len(topics)+ti, f, topic)
		}
	}
	wg.Wait()

	merged, stats := processor.Merge(results, models.MaxCorpusSize)
	res := Result{Topics: topics, Stats: stats}
	switch {
	case stats.TotalFailure():
		res.Outcome = OutcomeRetained
		res.Articles = previous
	case len(merged) == 0 && len(previous) > 0:
		res.Outcome = OutcomeReused
		res.Articles = previous
	default:
		res.Outcome = OutcomeReplaced
		res.Articles = merged
		if a.enricher != nil && len(merged) > 0 {
			n := a.enricher.Enrich(ctx, merged)
			a.log.Debug("enriched articles", slog.Int("count", n))
		}
	}

	a.log.Info("aggregate done",
		slog.Any("topics", topics),
		slog.String("outcome", string(res.Outcome)),
		slog.Int("succeeded", stats.Succeeded),
		slog.Int("failed", stats.Failed),
		slog.Int("fetched", stats.Fetched),
		slog.Int("duplicates", stats.Duplicates),
		slog.Int("untitled", stats.Untitled),
		slog.Int("articles", len(res.Articles)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return res
}

// call 为单次调用加超时并兜住 panic；超时后不再等待数据源返回
func (a *Aggregator) call(ctx context.Context, f collector.Fetcher, topic string) models.FetchResult {
	name := f.Name()
	cctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	ch := make(chan models.FetchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.log.Error("fetcher panicked", slog.String("adapter", name), slog.String("topic", topic), slog.Any("panic", r))
				ch <- models.NewFetchResult(name, topic, nil, fmt.Errorf("%s: panic: %v", name, r))
			}
		}()
		ch <- f.Fetch(cctx, topic)
	}()

	select {
	case r := <-ch:
		r.Adapter, r.Topic = name, topic
		return r
	case <-cctx.Done():
		a.log.Warn("fetcher call timed out", slog.String("adapter", name), slog.String("topic", topic), slog.Any("err", cctx.Err()))
		return models.NewFetchResult(name, topic, nil, fmt.Errorf("%s %s: %w", name, topic, cctx.Err()))
	}
}
