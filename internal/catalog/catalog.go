// Package catalog 保存趋势引擎的静态数据：主题→订阅源表、相关度关键词表以及定时任务使用的主题集合。
// 默认数据内嵌在 defaults.yaml 中，可以用外部 YAML 文件覆盖，并支持运行时热加载。
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/LJTian/TrendPulse/internal/processor"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var ErrInvalidCatalog = errors.New("invalid catalog")

type Catalog struct {
	FallbackTopic    string              `yaml:"fallback_topic"`
	MaxFeedsPerTopic int                 `yaml:"max_feeds_per_topic"`
	MaxItemsPerFeed  int                 `yaml:"max_items_per_feed"`
	ScheduledTopics  []string            `yaml:"scheduled_topics"`
	WarmupTopics     []string            `yaml:"warmup_topics"`
	Feeds            map[string][]string `yaml:"feeds"`
	Keywords         []string            `yaml:"keywords"`

	scorer *processor.Scorer
}

// Default 返回内嵌默认目录；内嵌数据损坏属于编程错误，直接 panic
func Default() *Catalog {
	c, err := Parse(defaultsYAML, nil)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded defaults: %v", err))
	}
	return c
}

// Load path 为空时返回默认目录；否则在默认值之上叠加文件内容
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(raw, Default())
}

// Parse 将 raw 解析到 base 的副本上（base 为 nil 时从零开始），随后校验并编译关键词表
func Parse(raw []byte, base *Catalog) (*Catalog, error) {
	c := &Catalog{}
	if base != nil {
		*c = *base
		// 只复制引用类型的外壳，避免改动 base；映射值本身不会被修改
		c.Feeds = make(map[string][]string, len(base.Feeds))
		for k, v := range base.Feeds {
			c.Feeds[k] = v
		}
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if err := c.normalize(); err != nil {
		return nil, err
	}
	c.scorer = processor.NewScorer(c.Keywords)
	return c, nil
}

func (c *Catalog) normalize() error {
	feeds := make(map[string][]string, len(c.Feeds))
	for topic, urls := range c.Feeds {
		topic = strings.ToLower(strings.TrimSpace(topic))
		if topic == "" {
			continue
		}
		clean := make([]string, 0, len(urls))
		for _, u := range urls {
			if u = strings.TrimSpace(u); u != "" {
				clean = append(clean, u)
			}
		}
		feeds[topic] = clean
	}
	c.Feeds = feeds
	c.FallbackTopic = strings.ToLower(strings.TrimSpace(c.FallbackTopic))

	if c.FallbackTopic == "" {
		return fmt.Errorf("%w: fallback_topic is required", ErrInvalidCatalog)
	}
	if len(c.Feeds[c.FallbackTopic]) == 0 {
		return fmt.Errorf("%w: fallback topic %q has no feeds", ErrInvalidCatalog, c.FallbackTopic)
	}
	if len(c.Keywords) == 0 {
		return fmt.Errorf("%w: keywords must not be empty", ErrInvalidCatalog)
	}
	if c.MaxFeedsPerTopic <= 0 {
		c.MaxFeedsPerTopic = 2
	}
	if c.MaxItemsPerFeed <= 0 {
		c.MaxItemsPerFeed = 10
	}
	return nil
}

// FeedsFor 返回主题对应的前 MaxFeedsPerTopic 个订阅源，未知主题使用回退列表
func (c *Catalog) FeedsFor(topic string) []string {
	feeds, ok := c.Feeds[strings.ToLower(strings.TrimSpace(topic))]
	if !ok || len(feeds) == 0 {
		feeds = c.Feeds[c.FallbackTopic]
	}
	if len(feeds) > c.MaxFeedsPerTopic {
		feeds = feeds[:c.MaxFeedsPerTopic]
	}
	return append([]string(nil), feeds...)
}

func (c *Catalog) Scorer() *processor.Scorer {
	return c.scorer
}

// Holder 持有当前生效的目录，热加载时整体替换
type Holder struct {
	p atomic.Pointer[Catalog]
}

func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	h.p.Store(c)
	return h
}

func (h *Holder) Current() *Catalog {
	return h.p.Load()
}

func (h *Holder) Store(c *Catalog) {
	h.p.Store(c)
}

// ScheduledTopics 定时刷新使用的主题（读取当前目录）
func (h *Holder) ScheduledTopics() []string {
	return append([]string(nil), h.Current().ScheduledTopics...)
}

// WarmupTopics 启动预热使用的主题
func (h *Holder) WarmupTopics() []string {
	return append([]string(nil), h.Current().WarmupTopics...)
}
