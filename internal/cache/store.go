// Package cache 持有当前语料快照，并负责新鲜度判断与按主题读取。
package cache

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/LJTian/TrendPulse/internal/models"
)

// DisplaySummaryRunes 读取时摘要的展示长度
const DisplaySummaryRunes = 150

// Snapshot 不可变：替换时整体换掉指针
type Snapshot struct {
	Articles    []models.Article
	Index       *TopicIndex
	LastUpdated time.Time
}

// Never 尚未成功刷新过
func (s *Snapshot) Never() bool {
	return s.LastUpdated.IsZero()
}

// Matcher 判断文章是否与请求的主题集合相关
type Matcher func(a models.Article, topics []string) bool

// MatchesAny 主题与文章的 topic 相同，或作为子串出现在 topic/标题/摘要中（大小写不敏感）
func MatchesAny(a models.Article, topics []string) bool {
	topic := strings.ToLower(a.Topic)
	title := strings.ToLower(a.Title)
	summary := strings.ToLower(a.Summary)
	for _, t := range topics {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if topic == t || strings.Contains(topic, t) || strings.Contains(title, t) || strings.Contains(summary, t) {
			return true
		}
	}
	return false
}

type Store struct {
	ttl     time.Duration
	now     func() time.Time
	matcher Matcher
	snap    atomic.Pointer[Snapshot]
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithMatcher(m Matcher) Option {
	return func(s *Store) { s.matcher = m }
}

func NewStore(ttl time.Duration, opts ...Option) *Store {
	s := &Store{ttl: ttl, now: time.Now, matcher: MatchesAny}
	for _, o := range opts {
		o(s)
	}
	s.snap.Store(&Snapshot{Index: BuildIndex(nil)})
	return s
}

// Snapshot 读取当前快照，调用方不得修改其中的切片
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

// IsStale 从未刷新、超过 TTL 或语料为空都视为过期
func (s *Store) IsStale() bool {
	return s.staleAt(s.Snapshot(), s.now())
}

func (s *Store) staleAt(snap *Snapshot, now time.Time) bool {
	return snap.Never() || now.Sub(snap.LastUpdated) > s.ttl || len(snap.Articles) == 0
}

// Replace 用新语料替换快照：语料、索引与时间戳一次性可见
func (s *Store) Replace(corpus []models.Article) *Snapshot {
	articles := append([]models.Article(nil), corpus...)
	snap := &Snapshot{
		Articles:    articles,
		Index:       BuildIndex(articles),
		LastUpdated: s.now(),
	}
	s.snap.Store(snap)
	return snap
}

// Read 按主题过滤并截取前 limit 条，摘要截断用于展示。不会触发刷新。
func (s *Store) Read(topics []string, limit int) ([]models.Article, *Snapshot) {
	snap := s.Snapshot()
	return s.ReadSnapshot(snap, topics, limit), snap
}

// ReadSnapshot 与 Read 相同，但作用于调用方已持有的快照
func (s *Store) ReadSnapshot(snap *Snapshot, topics []string, limit int) []models.Article {
	if limit < 0 {
		limit = 0
	}
	out := make([]models.Article, 0, min(limit, len(snap.Articles)))
	for _, a := range snap.Articles {
		if len(out) >= limit {
			break
		}
		if !s.matcher(a, topics) {
			continue
		}
		a.Summary = displaySummary(a.Summary)
		out = append(out, a)
	}
	return out
}

func displaySummary(s string) string {
	rs := []rune(s)
	if len(rs) <= DisplaySummaryRunes {
		return s
	}
	return string(rs[:DisplaySummaryRunes]) + "..."
}
