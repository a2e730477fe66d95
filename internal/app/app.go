// Package app 组装各组件，供 cmd/api 与 cmd/collect 共用。
package app

import (
	"fmt"
	"log/slog"

	"github.com/LJTian/TrendPulse/internal/aggregator"
	"github.com/LJTian/TrendPulse/internal/api"
	"github.com/LJTian/TrendPulse/internal/cache"
	"github.com/LJTian/TrendPulse/internal/catalog"
	"github.com/LJTian/TrendPulse/internal/collector"
	"github.com/LJTian/TrendPulse/internal/config"
	"github.com/LJTian/TrendPulse/internal/logger"
	"github.com/LJTian/TrendPulse/internal/refresher"
	"github.com/LJTian/TrendPulse/internal/storage"
	"github.com/LJTian/TrendPulse/internal/trends"
)

// 每轮刷新最多为多少篇文章补全配图
const enrichMaxArticles = 10

type App struct {
	Config    *config.Config
	Catalog   *catalog.Holder
	Store     *storage.Store
	Cache     *cache.Store
	Refresher *refresher.Refresher
	Trends    *trends.Service
	Log       *slog.Logger
}

func Build(cfg *config.Config, log *slog.Logger) (*App, error) {
	log = logger.OrDiscard(log)

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	holder := catalog.NewHolder(cat)

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr, log.With("component", "storage"))
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	fetchers := []collector.Fetcher{
		collector.NewFeedFetcher(holder, cfg.EndpointTimeout, log.With("component", "feed")),
		collector.NewHeadlineFetcher(cfg.NewsAPIKey, cfg.NewsAPICountry, cfg.NewsAPIBaseURL, holder, cfg.EndpointTimeout, log.With("component", "headlines")),
	}
	if cfg.HackerNewsEnabled {
		fetchers = append(fetchers, collector.NewHackerNewsFetcher(holder, cfg.EndpointTimeout, log.With("component", "hackernews")))
	}
	if !cfg.NewsAPIEnabled() {
		log.Info("NEWS_API_KEY not set, headline source disabled")
	}

	aggOpts := []aggregator.Option{aggregator.WithLogger(log.With("component", "aggregator"))}
	if cfg.EnrichImages {
		aggOpts = append(aggOpts, aggregator.WithEnricher(
			collector.NewImageEnricher(enrichMaxArticles, cfg.FetchConcurrency, cfg.EndpointTimeout, log.With("component", "preview")),
		))
	}
	agg := aggregator.New(fetchers, cfg.FetchConcurrency, cfg.CallTimeout, aggOpts...)

	cacheStore := cache.NewStore(cfg.CacheTTL)

	refOpts := []refresher.Option{refresher.WithLogger(log.With("component", "refresher"))}
	if store.HistoryEnabled() {
		refOpts = append(refOpts, refresher.WithRecorder(store))
	}
	ref := refresher.New(cacheStore, agg, cfg.RefreshTimeout, cfg.FailureCooldown, refOpts...)

	var respCache trends.ResponseCache
	if store.CacheEnabled() {
		respCache = store
	}

	return &App{
		Config:    cfg,
		Catalog:   holder,
		Store:     store,
		Cache:     cacheStore,
		Refresher: ref,
		Trends:    trends.NewService(ref, respCache, log.With("component", "trends")),
		Log:       log,
	}, nil
}

// Runs 未启用刷新历史时返回 nil
func (a *App) Runs() api.RunLister {
	if !a.Store.HistoryEnabled() {
		return nil
	}
	return a.Store
}

func (a *App) Close() error {
	return a.Store.Close()
}
