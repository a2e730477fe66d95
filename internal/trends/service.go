// Package trends 是对外的查询接口：读取前保证缓存新鲜，并把快照整理成响应结构。
package trends

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/LJTian/TrendPulse/internal/cache"
	"github.com/LJTian/TrendPulse/internal/logger"
	"github.com/LJTian/TrendPulse/internal/models"
	"github.com/LJTian/TrendPulse/internal/refresher"
	"github.com/LJTian/TrendPulse/internal/storage"
)

const (
	DefaultLimit        = 20
	DefaultSummaryCount = 3
)

// Refresher 由 refresher.Refresher 实现
type Refresher interface {
	Refresh(ctx context.Context, topics []string, trigger models.Trigger) (refresher.Outcome, error)
	EnsureFresh(ctx context.Context, topics []string) (refresher.Outcome, error)
	Store() *cache.Store
}

// ResponseCache 由 storage.Store 实现；未配置 Redis 时总是未命中
type ResponseCache interface {
	GetJSON(ctx context.Context, key string, dst any) bool
	SetJSON(ctx context.Context, key string, v any)
}

type TrendsResponse struct {
	Trends          []models.Article `json:"trends"`
	LastUpdated     *time.Time       `json:"lastUpdated"`
	TotalArticles   int              `json:"totalArticles"`
	AvailableTopics []string         `json:"availableTopics"`
}

type RefreshResponse struct {
	Success       bool       `json:"success"`
	Message       string     `json:"message"`
	ArticlesCount int        `json:"articlesCount"`
	LastUpdated   *time.Time `json:"lastUpdated"`
	Topics        []string   `json:"topics"`
}

// SummaryResponse Context 可直接拼接到生成类提示词中
type SummaryResponse struct {
	Context     string           `json:"context"`
	Used        []models.Article `json:"used"`
	LastUpdated *time.Time       `json:"lastUpdated"`
}

type Service struct {
	refresher Refresher
	store     *cache.Store
	respCache ResponseCache
	log       *slog.Logger
}

// NewService respCache 可以为 nil
func NewService(r Refresher, respCache ResponseCache, log *slog.Logger) *Service {
	return &Service{
		refresher: r,
		store:     r.Store(),
		respCache: respCache,
		log:       logger.OrDiscard(log),
	}
}

// GetTrends topicsCSV 形如 "business,technology"；limit 为负时返回空列表
func (s *Service) GetTrends(ctx context.Context, topicsCSV string, limit int) TrendsResponse {
	topics := models.ParseTopicsCSV(topicsCSV)
	s.ensureFresh(ctx, topics)

	snap := s.store.Snapshot()
	key := storage.ResponseKey("list", snap.LastUpdated, topics, limit)
	var resp TrendsResponse
	if s.respCache != nil && s.respCache.GetJSON(ctx, key, &resp) {
		return resp
	}

	resp = TrendsResponse{
		Trends:          s.store.ReadSnapshot(snap, topics, limit),
		LastUpdated:     stamp(snap),
		TotalArticles:   len(snap.Articles),
		AvailableTopics: snap.Index.Topics(),
	}
	if s.respCache != nil && !snap.Never() {
		s.respCache.SetJSON(ctx, key, resp)
	}
	return resp
}

// RefreshTrends 人工强制刷新；全部数据源失败时仍返回成功，但 ArticlesCount 为 0
func (s *Service) RefreshTrends(ctx context.Context, topics []string) (RefreshResponse, error) {
	topics = models.NormalizeTopics(topics)
	out, err := s.refresher.Refresh(ctx, topics, models.TriggerForced)
	if err != nil {
		return RefreshResponse{Success: false, Topics: topics}, err
	}

	resp := RefreshResponse{
		Success:     true,
		LastUpdated: stamp(out.Snapshot),
		Topics:      topics,
	}
	switch out.Status {
	case refresher.StatusReplaced:
		resp.Message = "Trends refreshed successfully"
		resp.ArticlesCount = len(out.Snapshot.Articles)
	case refresher.StatusReused:
		resp.Message = "No new articles found, previous trends kept"
	default:
		resp.Message = "All sources failed, previous trends kept"
	}
	if out.Shared {
		resp.Message += " (joined an in-flight refresh)"
	}
	return resp, nil
}

// Summary 取前 n 条相关趋势，并格式化为提示词上下文
func (s *Service) Summary(ctx context.Context, topics []string, n int) SummaryResponse {
	topics = models.NormalizeTopics(topics)
	if n <= 0 {
		n = DefaultSummaryCount
	}
	s.ensureFresh(ctx, topics)

	snap := s.store.Snapshot()
	key := storage.ResponseKey("summary", snap.LastUpdated, topics, n)
	var resp SummaryResponse
	if s.respCache != nil && s.respCache.GetJSON(ctx, key, &resp) {
		return resp
	}

	used := s.store.ReadSnapshot(snap, topics, n)
	resp = SummaryResponse{
		Context:     FormatContext(used),
		Used:        used,
		LastUpdated: stamp(snap),
	}
	if s.respCache != nil && !snap.Never() {
		s.respCache.SetJSON(ctx, key, resp)
	}
	return resp
}

func (s *Service) ensureFresh(ctx context.Context, topics []string) {
	out, err := s.refresher.EnsureFresh(ctx, topics)
	if err != nil {
		// 调用方已放弃等待，照常返回当前快照
		s.log.Warn("ensure fresh interrupted", slog.Any("topics", topics), slog.Any("err", err))
		return
	}
	if out.Status != refresher.StatusFresh {
		s.log.Debug("cache refreshed on demand", slog.String("status", string(out.Status)), slog.Bool("shared", out.Shared))
	}
}

// FormatContext 没有文章时返回空串
func FormatContext(articles []models.Article) string {
	if len(articles) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nCURRENT TRENDING TOPICS:\n")
	for i, a := range articles {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%d. %s\n   Summary: %s", i+1, a.Title, a.Summary)
	}
	return b.String()
}

// ParseLimit 非数字或 0 使用默认值；负数原样返回，由读取时截成 0
func ParseLimit(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n == 0 {
		return def
	}
	return n
}

func stamp(snap *cache.Snapshot) *time.Time {
	if snap == nil || snap.Never() {
		return nil
	}
	t := snap.LastUpdated
	return &t
}
