package cache

import "github.com/LJTian/TrendPulse/internal/models"

// TopicIndex 按主题分组的语料视图，主题顺序为首次出现顺序，组内保持语料顺序
type TopicIndex struct {
	order  []string
	groups map[string][]models.Article
}

// BuildIndex 线性扫描一次语料
func BuildIndex(corpus []models.Article) *TopicIndex {
	idx := &TopicIndex{groups: make(map[string][]models.Article)}
	for _, a := range corpus {
		if _, ok := idx.groups[a.Topic]; !ok {
			idx.order = append(idx.order, a.Topic)
		}
		idx.groups[a.Topic] = append(idx.groups[a.Topic], a)
	}
	return idx
}

// Topics 返回副本
func (x *TopicIndex) Topics() []string {
	if x == nil {
		return []string{}
	}
	return append([]string{}, x.order...)
}

func (x *TopicIndex) Articles(topic string) []models.Article {
	if x == nil {
		return nil
	}
	return append([]models.Article(nil), x.groups[topic]...)
}
