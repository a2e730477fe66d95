package processor

import (
	"sort"
	"strings"

	"github.com/LJTian/TrendPulse/internal/models"
)

// AdapterStats 单个数据源在一次合并中的结果计数
type AdapterStats struct {
	OK     int
	Empty  int
	Failed int
}

// MergeStats 合并过程的统计，用于日志与刷新记录
type MergeStats struct {
	Succeeded  int // ok + empty
	Failed     int
	Fetched    int // 合并前的文章总数
	Untitled   int
	Duplicates int
	Truncated  int
	Adapters   map[string]*AdapterStats
}

// TotalFailure 没有任何一次调用成功
func (s MergeStats) TotalFailure() bool {
	return s.Succeeded == 0
}

// Merge 对调用结果做纯折叠：按传入顺序拼接 → 过滤空标题 → 按标题去重（先到先得）→ 按相关度稳定降序 → 截断到 max
func Merge(results []models.FetchResult, max int) ([]models.Article, MergeStats) {
	stats := MergeStats{Adapters: make(map[string]*AdapterStats)}

	var all []models.Article
	for _, r := range results {
		as := stats.Adapters[r.Adapter]
		if as == nil {
			as = &AdapterStats{}
			stats.Adapters[r.Adapter] = as
		}
		switch r.Status {
		case models.FetchOK:
			as.OK++
			stats.Succeeded++
		case models.FetchEmpty:
			as.Empty++
			stats.Succeeded++
		default:
			as.Failed++
			stats.Failed++
		}
		all = append(all, r.Articles...)
	}
	stats.Fetched = len(all)

	out := make([]models.Article, 0, len(all))
	seen := make(map[string]struct{}, len(all))
	for _, a := range all {
		if strings.TrimSpace(a.Title) == "" {
			stats.Untitled++
			continue
		}
		if _, ok := seen[a.Title]; ok {
			stats.Duplicates++
			continue
		}
		seen[a.Title] = struct{}{}
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})

	if max >= 0 && len(out) > max {
		stats.Truncated = len(out) - max
		out = out[:max]
	}
	return out, stats
}

// SortByPublishDate 单个数据源返回前按发布时间倒序（稳定）
func SortByPublishDate(articles []models.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishDate.After(articles[j].PublishDate)
	})
}
