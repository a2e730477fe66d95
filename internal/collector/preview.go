package collector

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/LJTian/TrendPulse/internal/logger"
	"github.com/LJTian/TrendPulse/internal/models"
)

const previewMaxBodyBytes = 2 << 20 // 2MB，只需要 <head> 中的 meta

// ImageEnricher 为缺少配图的文章抓取原文页面的 og:image / twitter:image。
// 尽力而为：任何失败都只是保留空配图。
type ImageEnricher struct {
	MaxArticles int
	Parallelism int
	Timeout     time.Duration

	log *slog.Logger
}

func NewImageEnricher(maxArticles, parallelism int, timeout time.Duration, log *slog.Logger) *ImageEnricher {
	if parallelism <= 0 {
		parallelism = 4
	}
	return &ImageEnricher{
		MaxArticles: maxArticles,
		Parallelism: parallelism,
		Timeout:     timeout,
		log:         logger.OrDiscard(log),
	}
}

// Enrich 原地补全 articles 中前 MaxArticles 条缺少配图的文章，返回补全数量
func (e *ImageEnricher) Enrich(ctx context.Context, articles []models.Article) int {
	c := colly.NewCollector(
		colly.UserAgent(feedUserAgent),
		colly.MaxBodySize(previewMaxBodyBytes),
		colly.Async(true),
	)
	c.SetRequestTimeout(e.Timeout)
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: e.Parallelism}); err != nil {
		e.log.Warn("preview limit rule rejected", slog.Any("err", err))
	}

	var (
		mu       sync.Mutex
		enriched int
	)
	c.OnHTML(`meta[property="og:image"], meta[name="twitter:image"]`, func(el *colly.HTMLElement) {
		idx, err := strconv.Atoi(el.Request.Ctx.Get("idx"))
		if err != nil || idx < 0 || idx >= len(articles) {
			return
		}
		img := strings.TrimSpace(el.Attr("content"))
		if img == "" {
			return
		}
		img = el.Request.AbsoluteURL(img)

		mu.Lock()
		defer mu.Unlock()
		if articles[idx].ImageURL == "" {
			articles[idx].ImageURL = img
			enriched++
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		e.log.Debug("preview fetch failed", slog.String("url", r.Request.URL.String()), slog.Any("err", err))
	})

	visited := 0
	for i := range articles {
		if visited >= e.MaxArticles || ctx.Err() != nil {
			break
		}
		a := articles[i]
		if a.ImageURL != "" || !strings.HasPrefix(a.Link, "http") {
			continue
		}
		rctx := colly.NewContext()
		rctx.Put("idx", strconv.Itoa(i))
		if err := c.Request("GET", a.Link, nil, rctx, nil); err != nil {
			e.log.Debug("preview request skipped", slog.String("url", a.Link), slog.Any("err", err))
			continue
		}
		visited++
	}
	c.Wait()

	return enriched
}
