package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/LJTian/TrendPulse/internal/catalog"
	"github.com/LJTian/TrendPulse/internal/logger"
	"github.com/LJTian/TrendPulse/internal/models"
	"github.com/LJTian/TrendPulse/internal/processor"
)

const (
	feedSummaryMaxRunes = 200
	feedUserAgent       = "TrendPulseBot/1.0"
)

// FeedFetcher 抓取 RSS/Atom 订阅源：每个主题只取目录中的前 N 个源，每个源最多 MaxItemsPerFeed 条
type FeedFetcher struct {
	catalog CatalogProvider
	parser  *gofeed.Parser
	timeout time.Duration
	log     *slog.Logger
	now     func() time.Time
}

// NewFeedFetcher timeout 作用于单个订阅源请求
func NewFeedFetcher(cp CatalogProvider, timeout time.Duration, log *slog.Logger) *FeedFetcher {
	p := gofeed.NewParser()
	p.UserAgent = feedUserAgent
	p.Client = &http.Client{Timeout: timeout}
	return &FeedFetcher{
		catalog: cp,
		parser:  p,
		timeout: timeout,
		log:     logger.OrDiscard(log),
		now:     time.Now,
	}
}

func (f *FeedFetcher) Name() string {
	return "feed"
}

func (f *FeedFetcher) Fetch(ctx context.Context, topic string) models.FetchResult {
	cat := f.catalog.Current()
	feeds := cat.FeedsFor(topic)

	var (
		articles []models.Article
		errs     []error
	)
	for _, feedURL := range feeds {
		items, err := f.fetchOne(ctx, cat, feedURL, topic)
		if err != nil {
			f.log.Warn("fetch feed failed", slog.String("url", feedURL), slog.String("topic", topic), slog.Any("err", err))
			errs = append(errs, err)
			continue
		}
		f.log.Debug("fetched feed", slog.String("url", feedURL), slog.String("topic", topic), slog.Int("items", len(items)))
		articles = append(articles, items...)
	}

	processor.SortByPublishDate(articles)

	// 只要有一个源成功就不算失败
	var err error
	if len(errs) > 0 && len(errs) == len(feeds) {
		err = errors.Join(errs...)
	}
	return models.NewFetchResult(f.Name(), topic, articles, err)
}

func (f *FeedFetcher) fetchOne(ctx context.Context, cat *catalog.Catalog, feedURL, topic string) ([]models.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", feedURL, err)
	}

	items := feed.Items
	if len(items) > cat.MaxItemsPerFeed {
		items = items[:cat.MaxItemsPerFeed]
	}

	now := f.now()
	source := hostOf(feedURL)
	scorer := cat.Scorer()
	out := make([]models.Article, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		title := strings.TrimSpace(it.Title)
		summary := feedSummary(it)
		out = append(out, models.Article{
			Title:          title,
			Summary:        summary,
			Link:           strings.TrimSpace(it.Link),
			PublishDate:    itemDate(it, now),
			Source:         source,
			Topic:          topic,
			RelevanceScore: scorer.Score(title, summary),
			ImageURL:       itemImage(it),
		})
	}
	return out, nil
}

// feedSummary 优先用描述的纯文本，其次截断正文
func feedSummary(it *gofeed.Item) string {
	if s := plainText(it.Description); s != "" {
		return s
	}
	if s := plainText(it.Content); s != "" {
		return truncateRunes(s, feedSummaryMaxRunes)
	}
	return noSummary
}

func itemDate(it *gofeed.Item, now time.Time) time.Time {
	if it.PublishedParsed != nil && !it.PublishedParsed.IsZero() {
		return *it.PublishedParsed
	}
	if it.UpdatedParsed != nil && !it.UpdatedParsed.IsZero() {
		return *it.UpdatedParsed
	}
	return now
}

func itemImage(it *gofeed.Item) string {
	if it.Image != nil && it.Image.URL != "" {
		return it.Image.URL
	}
	for _, enc := range it.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	return ""
}
