package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/TrendPulse/internal/models"
	"github.com/LJTian/TrendPulse/internal/storage"
	"github.com/LJTian/TrendPulse/internal/trends"
)

// TrendsService 由 trends.Service 实现
type TrendsService interface {
	GetTrends(ctx context.Context, topicsCSV string, limit int) trends.TrendsResponse
	RefreshTrends(ctx context.Context, topics []string) (trends.RefreshResponse, error)
	Summary(ctx context.Context, topics []string, n int) trends.SummaryResponse
}

// RunLister 由 storage.Store 实现；为 nil 时 /api/trends/runs 返回 503
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]models.RefreshRun, error)
}

type Server struct {
	trends TrendsService
	runs   RunLister
}

func NewServer(svc TrendsService, runs RunLister) *Server {
	return &Server{trends: svc, runs: runs}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	g := r.Group("/api/trends")
	{
		g.GET("", s.getTrends)
		g.POST("/refresh", s.refreshTrends)
		g.GET("/summary", s.summary)
		g.GET("/runs", s.listRuns)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getTrends(c *gin.Context) {
	limit := trends.ParseLimit(c.Query("limit"), trends.DefaultLimit)
	c.JSON(http.StatusOK, s.trends.GetTrends(c.Request.Context(), c.Query("topics"), limit))
}

type refreshRequest struct {
	Topics []any `json:"topics"`
}

// refreshTrends 请求体无效或 topics 不是数组时使用默认主题；非字符串元素被忽略
func (s *Server) refreshTrends(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)

	topics := make([]string, 0, len(req.Topics))
	for _, t := range req.Topics {
		if str, ok := t.(string); ok {
			topics = append(topics, str)
		}
	}

	resp, err := s.trends.RefreshTrends(c.Request.Context(), topics)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to refresh trends",
			"details": err.Error(),
			"success": false,
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) summary(c *gin.Context) {
	n := trends.ParseLimit(c.Query("n"), trends.DefaultSummaryCount)
	topics := models.ParseTopicsCSV(c.Query("topics"))
	c.JSON(http.StatusOK, s.trends.Summary(c.Request.Context(), topics, n))
}

type runView struct {
	ID         string                    `json:"id"`
	Trigger    models.Trigger            `json:"trigger"`
	Topics     []string                  `json:"topics"`
	StartedAt  time.Time                 `json:"startedAt"`
	DurationMS int64                     `json:"durationMs"`
	Fetched    int                       `json:"fetched"`
	Failed     int                       `json:"failed"`
	CorpusSize int                       `json:"corpusSize"`
	Outcome    string                    `json:"outcome"`
	Error      string                    `json:"error,omitempty"`
	Adapters   map[string]map[string]int `json:"adapters"`
}

func (s *Server) listRuns(c *gin.Context) {
	if s.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    "history_disabled",
			"message": storage.ErrHistoryDisabled.Error(),
		})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	runs, err := s.runs.ListRuns(c.Request.Context(), limit)
	if errors.Is(err, storage.ErrHistoryDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    "history_disabled",
			"message": err.Error(),
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	items := make([]runView, 0, len(runs))
	for _, r := range runs {
		items = append(items, runView{
			ID:         r.ID,
			Trigger:    r.Trigger,
			Topics:     r.Topics,
			StartedAt:  r.StartedAt,
			DurationMS: r.Duration.Milliseconds(),
			Fetched:    r.Fetched,
			Failed:     r.Failed,
			CorpusSize: r.CorpusSize,
			Outcome:    r.Outcome,
			Error:      r.Error,
			Adapters:   r.AdapterStats,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}
