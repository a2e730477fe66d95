package processor

import "strings"

// Scorer 按固定关键词表计算相关度：命中的不同关键词个数（大小写不敏感的子串匹配）
type Scorer struct {
	keywords []string
}

// NewScorer 关键词统一转小写并去重，空白项忽略
func NewScorer(keywords []string) *Scorer {
	seen := make(map[string]struct{}, len(keywords))
	kws := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		kws = append(kws, k)
	}
	return &Scorer{keywords: kws}
}

// Score 纯函数，无 I/O
func (s *Scorer) Score(title, body string) int {
	if s == nil {
		return 0
	}
	text := strings.ToLower(title + " " + body)
	score := 0
	for _, k := range s.keywords {
		if strings.Contains(text, k) {
			score++
		}
	}
	return score
}

// Keywords 返回归一化后的关键词副本
func (s *Scorer) Keywords() []string {
	return append([]string(nil), s.keywords...)
}
