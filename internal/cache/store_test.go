package cache

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/TrendPulse/internal/models"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func corpus() []models.Article {
	return []models.Article{
		{Title: "Startup funding rebounds", Summary: "Investors return", Topic: "business", RelevanceScore: 3},
		{Title: "New chip architecture", Summary: "A leap for AI workloads", Topic: "technology", RelevanceScore: 2},
		{Title: "Quarterly earnings", Summary: "Markets react", Topic: "business", RelevanceScore: 1},
		{Title: "Brand storytelling", Summary: "Marketing teams adapt", Topic: "marketing", RelevanceScore: 0},
	}
}

func TestBuildIndexGroupsByFirstAppearance(t *testing.T) {
	idx := BuildIndex(corpus())
	assert.Equal(t, []string{"business", "technology", "marketing"}, idx.Topics())

	biz := idx.Articles("business")
	require.Len(t, biz, 2)
	assert.Equal(t, "Startup funding rebounds", biz[0].Title)
	assert.Equal(t, "Quarterly earnings", biz[1].Title)
	assert.Empty(t, idx.Articles("finance"))

	empty := BuildIndex(nil)
	assert.Equal(t, []string{}, empty.Topics())
}

func TestStaleness(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(30*time.Minute, WithClock(clock.Now))

	assert.True(t, s.IsStale(), "never updated")
	assert.True(t, s.Snapshot().Never())

	s.Replace(corpus())
	assert.False(t, s.IsStale())

	clock.Advance(30 * time.Minute)
	assert.False(t, s.IsStale(), "exactly at ttl is still fresh")

	clock.Advance(time.Second)
	assert.True(t, s.IsStale())

	s.Replace(nil)
	assert.True(t, s.IsStale(), "empty corpus is stale")
	assert.False(t, s.Snapshot().Never())
}

func TestReplaceIsAtomicAndCopies(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(time.Hour, WithClock(clock.Now))

	in := corpus()
	snap := s.Replace(in)
	in[0].Title = "mutated"

	assert.Equal(t, "Startup funding rebounds", s.Snapshot().Articles[0].Title)
	assert.Same(t, snap, s.Snapshot())
	assert.Equal(t, clock.Now(), snap.LastUpdated)
	assert.Equal(t, []string{"business", "technology", "marketing"}, snap.Index.Topics())
}

func TestReadFiltersAndLimits(t *testing.T) {
	s := NewStore(time.Hour)
	s.Replace(corpus())

	got, _ := s.Read([]string{"business"}, 20)
	require.Len(t, got, 2)
	assert.Equal(t, "Startup funding rebounds", got[0].Title)

	// 子串也匹配摘要
	got, _ = s.Read([]string{"AI"}, 20)
	require.Len(t, got, 1)
	assert.Equal(t, "New chip architecture", got[0].Title)

	got, _ = s.Read([]string{"business", "technology", "marketing"}, 2)
	assert.Len(t, got, 2)

	got, _ = s.Read([]string{"business"}, 0)
	assert.Empty(t, got)
	got, _ = s.Read([]string{"business"}, -5)
	assert.Empty(t, got)

	got, _ = s.Read([]string{"finance"}, 20)
	assert.Empty(t, got)
}

func TestReadTruncatesSummaryForDisplay(t *testing.T) {
	s := NewStore(time.Hour)
	long := strings.Repeat("é", DisplaySummaryRunes+10)
	exact := strings.Repeat("x", DisplaySummaryRunes)
	s.Replace([]models.Article{
		{Title: "Long", Summary: long, Topic: "business"},
		{Title: "Exact", Summary: exact, Topic: "business"},
	})

	got, snap := s.Read([]string{"business"}, 10)
	require.Len(t, got, 2)
	assert.Equal(t, strings.Repeat("é", DisplaySummaryRunes)+"...", got[0].Summary)
	assert.Equal(t, exact, got[1].Summary)
	// 缓存中的原文不受影响
	assert.Equal(t, long, snap.Articles[0].Summary)
}

func TestCustomMatcher(t *testing.T) {
	exactTopic := func(a models.Article, topics []string) bool {
		for _, t := range topics {
			if a.Topic == t {
				return true
			}
		}
		return false
	}
	s := NewStore(time.Hour, WithMatcher(exactTopic))
	s.Replace(corpus())

	got, _ := s.Read([]string{"tech"}, 10)
	assert.Empty(t, got)
	got, _ = s.Read([]string{"technology"}, 10)
	assert.Len(t, got, 1)
}

func TestMatchesAny(t *testing.T) {
	a := models.Article{Title: "Fintech rally", Summary: "Payments", Topic: "finance"}
	assert.True(t, MatchesAny(a, []string{"FINANCE"}))
	assert.True(t, MatchesAny(a, []string{"fin"}))
	assert.True(t, MatchesAny(a, []string{"rally"}))
	assert.True(t, MatchesAny(a, []string{"payments"}))
	assert.False(t, MatchesAny(a, []string{"sports", " "}))
	assert.False(t, MatchesAny(a, nil))
}

func TestConcurrentReadsDuringReplace(t *testing.T) {
	s := NewStore(time.Hour)
	s.Replace(corpus())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got, snap := s.Read([]string{"business"}, 50)
				// 读到的总是某个完整快照
				assert.Len(t, snap.Articles, len(corpus()))
				assert.Len(t, got, 2)
			}
		}()
	}
	for j := 0; j < 50; j++ {
		s.Replace(corpus())
	}
	wg.Wait()
}
