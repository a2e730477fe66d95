package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/LJTian/TrendPulse/internal/logger"
	"github.com/LJTian/TrendPulse/internal/models"
	"github.com/LJTian/TrendPulse/internal/processor"
)

const (
	headlinePath             = "/v2/top-headlines"
	headlinePageSize         = 20
	headlineMaxResponseBytes = 1 << 20 // 1MB
	headlineRemovedTitle     = "[Removed]"
)

// NewsAPI 支持的分类；其它主题改用关键词查询
var headlineCategories = map[string]bool{
	"business":      true,
	"entertainment": true,
	"general":       true,
	"health":        true,
	"science":       true,
	"sports":        true,
	"technology":    true,
}

// HeadlineFetcher 通过 NewsAPI top-headlines 获取头条。未配置 APIKey 时为空操作。
type HeadlineFetcher struct {
	APIKey  string
	Country string
	BaseURL string

	catalog CatalogProvider
	client  *http.Client
	log     *slog.Logger
	now     func() time.Time
}

func NewHeadlineFetcher(apiKey, country, baseURL string, cp CatalogProvider, timeout time.Duration, log *slog.Logger) *HeadlineFetcher {
	if country == "" {
		country = "us"
	}
	if baseURL == "" {
		baseURL = "https://newsapi.org"
	}
	return &HeadlineFetcher{
		APIKey:  apiKey,
		Country: country,
		BaseURL: strings.TrimRight(baseURL, "/"),
		catalog: cp,
		client:  &http.Client{Timeout: timeout},
		log:     logger.OrDiscard(log),
		now:     time.Now,
	}
}

func (h *HeadlineFetcher) Name() string {
	return "headlines"
}

type headlineResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		URLToImage  string `json:"urlToImage"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

func (h *HeadlineFetcher) Fetch(ctx context.Context, topic string) models.FetchResult {
	if h.APIKey == "" {
		h.log.Debug("news api key not configured, skipping headlines", slog.String("topic", topic))
		return models.NewFetchResult(h.Name(), topic, nil, nil)
	}

	articles, err := h.fetch(ctx, topic)
	if err != nil {
		h.log.Warn("fetch headlines failed", slog.String("topic", topic), slog.Any("err", err))
		return models.NewFetchResult(h.Name(), topic, nil, err)
	}
	processor.SortByPublishDate(articles)
	return models.NewFetchResult(h.Name(), topic, articles, nil)
}

func (h *HeadlineFetcher) fetch(ctx context.Context, topic string) ([]models.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.requestURL(topic), nil)
	if err != nil {
		return nil, fmt.Errorf("headlines: build request: %w", err)
	}
	req.Header.Set("User-Agent", feedUserAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		// url.Error 会带上完整地址（含 apiKey），日志里只保留底层错误
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("headlines: request: %w", err)
	}
	defer resp.Body.Close()

	var data headlineResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, headlineMaxResponseBytes)).Decode(&data); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("headlines: unexpected status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("headlines: decode: %w", err)
	}
	if resp.StatusCode != http.StatusOK || data.Status != "ok" {
		return nil, fmt.Errorf("headlines: status %d %s: %s", resp.StatusCode, data.Code, data.Message)
	}

	now := h.now()
	scorer := h.catalog.Current().Scorer()
	out := make([]models.Article, 0, len(data.Articles))
	for _, a := range data.Articles {
		title := strings.TrimSpace(a.Title)
		desc := plainText(a.Description)
		if title == "" || desc == "" || title == headlineRemovedTitle {
			continue
		}
		published := now
		if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
			published = t
		}
		out = append(out, models.Article{
			Title:          title,
			Summary:        desc,
			Link:           a.URL,
			PublishDate:    published,
			Source:         a.Source.Name,
			Topic:          topic,
			RelevanceScore: scorer.Score(title, desc),
			ImageURL:       a.URLToImage,
		})
		if len(out) == headlinePageSize {
			break
		}
	}
	return out, nil
}

func (h *HeadlineFetcher) requestURL(topic string) string {
	q := url.Values{}
	if headlineCategories[topic] {
		q.Set("category", topic)
	} else {
		q.Set("q", topic)
	}
	q.Set("country", h.Country)
	q.Set("pageSize", strconv.Itoa(headlinePageSize))
	q.Set("apiKey", h.APIKey)
	return h.BaseURL + headlinePath + "?" + q.Encode()
}
