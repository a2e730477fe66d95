package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/LJTian/TrendPulse/internal/logger"
	"github.com/LJTian/TrendPulse/internal/models"
	"github.com/LJTian/TrendPulse/internal/processor"
)

const (
	hnBaseURL          = "https://hacker-news.firebaseio.com/v0"
	hnMaxItems         = 30
	hnMaxResponseBytes = 1 << 20 // 1MB
	hnConcurrency      = 10
	hnSource           = "news.ycombinator.com"
	// 一轮刷新内各主题共用同一份热门列表
	hnStoriesTTL = time.Minute
)

// 整站偏技术，这些主题不做标题过滤
var hnBroadTopics = map[string]bool{
	"technology": true,
	"tech":       true,
	"startup":    true,
}

// HackerNewsFetcher 通过官方 Firebase API 抓取 Hacker News 热门故事，按主题过滤标题
type HackerNewsFetcher struct {
	BaseURL string

	catalog CatalogProvider
	client  *http.Client
	log     *slog.Logger
	now     func() time.Time

	group    singleflight.Group
	mu       sync.Mutex
	stories  []hnItem
	storedAt time.Time
}

func NewHackerNewsFetcher(cp CatalogProvider, timeout time.Duration, log *slog.Logger) *HackerNewsFetcher {
	return &HackerNewsFetcher{
		BaseURL: hnBaseURL,
		catalog: cp,
		client:  &http.Client{Timeout: timeout},
		log:     logger.OrDiscard(log),
		now:     time.Now,
	}
}

func (h *HackerNewsFetcher) Name() string {
	return "hackernews"
}

type hnItem struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Type        string `json:"type"`
}

func (h *HackerNewsFetcher) Fetch(ctx context.Context, topic string) models.FetchResult {
	stories, err := h.topStories(ctx)
	if err != nil {
		h.log.Warn("fetch hacker news failed", slog.String("topic", topic), slog.Any("err", err))
		return models.NewFetchResult(h.Name(), topic, nil, err)
	}

	scorer := h.catalog.Current().Scorer()
	needle := strings.ToLower(topic)
	out := make([]models.Article, 0, len(stories))
	for _, it := range stories {
		if !hnBroadTopics[needle] && !strings.Contains(strings.ToLower(it.Title), needle) {
			continue
		}
		link := it.URL
		if link == "" {
			link = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", it.ID)
		}
		summary := fmt.Sprintf("%d points by %s, %d comments", it.Score, it.By, it.Descendants)
		out = append(out, models.Article{
			Title:          it.Title,
			Summary:        summary,
			Link:           link,
			PublishDate:    time.Unix(it.Time, 0).UTC(),
			Source:         hnSource,
			Topic:          topic,
			RelevanceScore: scorer.Score(it.Title, summary),
		})
	}
	processor.SortByPublishDate(out)
	return models.NewFetchResult(h.Name(), topic, out, nil)
}

// topStories 在 hnStoriesTTL 内复用上一次的结果，并发调用合并为一次请求
func (h *HackerNewsFetcher) topStories(ctx context.Context) ([]hnItem, error) {
	h.mu.Lock()
	if h.stories != nil && h.now().Sub(h.storedAt) < hnStoriesTTL {
		s := h.stories
		h.mu.Unlock()
		return s, nil
	}
	h.mu.Unlock()

	ch := h.group.DoChan("top", func() (any, error) {
		// 单个主题的调用超时不应拖垮共享的请求
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.client.Timeout*2)
		defer cancel()
		items, err := h.fetchTop(fctx)
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		h.stories, h.storedAt = items, h.now()
		h.mu.Unlock()
		return items, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]hnItem), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *HackerNewsFetcher) fetchTop(ctx context.Context) ([]hnItem, error) {
	var ids []int
	if err := h.getJSON(ctx, h.BaseURL+"/topstories.json", &ids); err != nil {
		return nil, fmt.Errorf("hackernews: fetch top stories: %w", err)
	}
	if len(ids) > hnMaxItems {
		ids = ids[:hnMaxItems]
	}

	var (
		wg    sync.WaitGroup
		sem   = make(chan struct{}, hnConcurrency)
		slots = make([]*hnItem, len(ids))
	)
	for i, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx, id int) {
			defer wg.Done()
			defer func() { <-sem }()

			var it hnItem
			if err := h.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", h.BaseURL, id), &it); err != nil {
				h.log.Debug("fetch hacker news item failed", slog.Int("id", id), slog.Any("err", err))
				return
			}
			if strings.TrimSpace(it.Title) == "" || it.Type != "story" {
				return
			}
			slots[idx] = &it
		}(i, id)
	}
	wg.Wait()

	// 保持热门榜顺序
	items := make([]hnItem, 0, len(slots))
	for _, it := range slots {
		if it != nil {
			items = append(items, *it)
		}
	}
	return items, nil
}

func (h *HackerNewsFetcher) getJSON(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", feedUserAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, hnMaxResponseBytes)).Decode(dst)
}
