package models

import (
	"strings"
	"time"
)

// Article 是各数据源归一化后的文章，标题是去重键
type Article struct {
	Title          string    `json:"title"`
	Summary        string    `json:"summary"`
	Link           string    `json:"link"`
	PublishDate    time.Time `json:"publishDate"`
	Source         string    `json:"source"`
	Topic          string    `json:"topic"`
	RelevanceScore int       `json:"relevanceScore"`
	ImageURL       string    `json:"imageUrl,omitempty"`
}

// MaxCorpusSize 缓存语料的最大条数
const MaxCorpusSize = 50

// DefaultTopics 调用方未提供有效主题时使用
var DefaultTopics = []string{"business", "technology"}

// NormalizeTopics 去空白、转小写、去重（保留首次出现顺序），为空时返回默认主题
func NormalizeTopics(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultTopics...)
	}
	return out
}

// ParseTopicsCSV 解析 "business, technology" 形式的查询参数
func ParseTopicsCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return NormalizeTopics(nil)
	}
	return NormalizeTopics(strings.Split(raw, ","))
}
