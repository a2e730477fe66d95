package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LJTian/TrendPulse/internal/logger"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	require.Equal(t, "general", c.FallbackTopic)
	require.Equal(t, 2, c.MaxFeedsPerTopic)
	require.Equal(t, 10, c.MaxItemsPerFeed)
	require.Equal(t, []string{"business", "technology", "marketing", "finance"}, c.ScheduledTopics)
	require.Equal(t, []string{"business", "technology", "marketing"}, c.WarmupTopics)
	require.Len(t, c.Keywords, 20)
	require.Equal(t, 3, c.Scorer().Score("AI-powered growth strategy", ""))
}

func TestFeedsForCapsAndFallsBack(t *testing.T) {
	c := Default()

	tech := c.FeedsFor("Technology")
	require.Equal(t, []string{"https://techcrunch.com/feed/", "https://www.theverge.com/rss/index.xml"}, tech)

	unknown := c.FeedsFor("quantum-gardening")
	require.Equal(t, c.Feeds["general"], unknown)

	// 返回副本，调用方修改不影响目录
	tech[0] = "mutated"
	require.Equal(t, "https://techcrunch.com/feed/", c.FeedsFor("technology")[0])
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
max_feeds_per_topic: 1
feeds:
  Science:
    - https://example.com/science.xml
keywords: [quantum]
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, c.MaxFeedsPerTopic)
	require.Equal(t, []string{"https://example.com/science.xml"}, c.FeedsFor("science"))
	// 默认主题仍然保留
	require.Len(t, c.FeedsFor("technology"), 1)
	require.Equal(t, 1, c.Scorer().Score("Quantum leap", ""))
	require.Equal(t, 0, c.Scorer().Score("growth", ""))

	// 覆盖不影响默认目录
	require.Len(t, Default().FeedsFor("technology"), 2)
}

func TestParseRejectsMissingFallback(t *testing.T) {
	_, err := Parse([]byte(`
fallback_topic: nowhere
feeds:
  general: [https://example.com/a.xml]
keywords: [x]
`), nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidCatalog))

	_, err = Parse([]byte(`
fallback_topic: general
feeds:
  general: [https://example.com/a.xml]
`), nil)
	require.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("keywords: [alpha]\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	h := NewHolder(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, h, logger.Discard()) }()

	// 等待 watcher 注册完成后再写文件
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("keywords: [beta]\n"), 0o644)
		return h.Current().Scorer().Score("beta", "") == 1
	}, 5*time.Second, 50*time.Millisecond)

	// 非法内容不会替换当前目录；先写临时文件再 rename，避免读到写了一半的文件
	tmp := filepath.Join(dir, "catalog.yaml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("keywords: [\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, h.Current().Scorer().Score("beta", ""))

	cancel()
	require.NoError(t, <-done)
}
