package processor

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LJTian/TrendPulse/internal/models"
)

var businessKeywords = []string{
	"business", "market", "revenue", "growth", "innovation", "technology",
	"strategy", "leadership", "management", "industry", "professional",
	"career", "networking", "partnership", "investment", "startup",
	"entrepreneur", "digital transformation", "AI", "automation",
}

func TestScoreCountsDistinctKeywords(t *testing.T) {
	s := NewScorer(businessKeywords)

	require.GreaterOrEqual(t, s.Score("AI-powered growth strategy", ""), 2)
	require.Equal(t, 3, s.Score("AI-powered growth strategy", ""))
	// 同一关键词出现多次只计一次
	require.Equal(t, 1, s.Score("growth growth growth", "more growth"))
	require.Equal(t, 0, s.Score("Weather report", "sunny tomorrow"))
	// 子串匹配："rain" 含有 "ai"
	require.Equal(t, 1, s.Score("Weather report", "rain tomorrow"))
	// 正文参与匹配，且大小写不敏感
	require.Equal(t, 2, s.Score("Quarterly", "REVENUE beats MARKET"))
}

func TestScoreDeterministicAndNonNegative(t *testing.T) {
	s := NewScorer(businessKeywords)
	for _, in := range [][2]string{{"", ""}, {"startup", "investment"}, {"日本語", "テキスト"}} {
		a := s.Score(in[0], in[1])
		b := s.Score(in[0], in[1])
		require.Equal(t, a, b)
		require.GreaterOrEqual(t, a, 0)
	}
	var nilScorer *Scorer
	require.Equal(t, 0, nilScorer.Score("growth", ""))
}

func TestNewScorerDedupesAndLowercases(t *testing.T) {
	s := NewScorer([]string{"AI", "ai", " ", "Growth"})
	require.Equal(t, []string{"ai", "growth"}, s.Keywords())
}

func article(title string, score int) models.Article {
	return models.Article{Title: title, RelevanceScore: score}
}

func TestMergeDedupRankAndFilter(t *testing.T) {
	results := []models.FetchResult{
		models.NewFetchResult("feed", "business", []models.Article{
			article("Weather report", 0),
			article("Growth strategies for 2024", 1),
			article("Growth strategies for 2024", 5),
			article("   ", 9),
		}, nil),
		models.NewFetchResult("headlines", "business", []models.Article{
			article("AI in healthcare", 1),
		}, nil),
	}

	out, stats := Merge(results, models.MaxCorpusSize)
	require.Len(t, out, 3)
	require.Equal(t, "Growth strategies for 2024", out[0].Title)
	// 去重保留先出现的那条
	require.Equal(t, 1, out[0].RelevanceScore)
	// 同分保持合并顺序
	require.Equal(t, "AI in healthcare", out[1].Title)
	require.Equal(t, "Weather report", out[2].Title)

	require.Equal(t, 1, stats.Duplicates)
	require.Equal(t, 1, stats.Untitled)
	require.Equal(t, 5, stats.Fetched)
	require.Equal(t, 2, stats.Succeeded)
	require.False(t, stats.TotalFailure())
}

func TestMergeTitleDedupIsCaseSensitive(t *testing.T) {
	results := []models.FetchResult{
		models.NewFetchResult("feed", "t", []models.Article{article("Go", 0), article("go", 0)}, nil),
	}
	out, _ := Merge(results, 10)
	require.Len(t, out, 2)
}

func TestMergeCapsAndSorts(t *testing.T) {
	var arts []models.Article
	for i := 0; i < 80; i++ {
		arts = append(arts, article(fmt.Sprintf("title-%d", i), i%7))
	}
	out, stats := Merge([]models.FetchResult{models.NewFetchResult("feed", "t", arts, nil)}, models.MaxCorpusSize)

	require.Len(t, out, models.MaxCorpusSize)
	require.Equal(t, 30, stats.Truncated)
	seen := map[string]bool{}
	for i, a := range out {
		require.False(t, seen[a.Title], "duplicate title %q", a.Title)
		seen[a.Title] = true
		if i > 0 {
			require.GreaterOrEqual(t, out[i-1].RelevanceScore, a.RelevanceScore)
		}
	}
}

func TestMergeTotalFailure(t *testing.T) {
	boom := errors.New("boom")
	results := []models.FetchResult{
		models.NewFetchResult("feed", "business", nil, boom),
		models.NewFetchResult("headlines", "business", nil, boom),
	}
	out, stats := Merge(results, models.MaxCorpusSize)
	require.Empty(t, out)
	require.True(t, stats.TotalFailure())
	require.Equal(t, 1, stats.Adapters["feed"].Failed)
	require.Equal(t, 1, stats.Adapters["headlines"].Failed)
}

func TestSortByPublishDate(t *testing.T) {
	now := time.Now()
	arts := []models.Article{
		{Title: "old", PublishDate: now.Add(-time.Hour)},
		{Title: "new", PublishDate: now},
		{Title: "same-old", PublishDate: now.Add(-time.Hour)},
	}
	SortByPublishDate(arts)
	require.Equal(t, []string{"new", "old", "same-old"}, []string{arts[0].Title, arts[1].Title, arts[2].Title})
}
