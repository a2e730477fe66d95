package collector

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LJTian/TrendPulse/internal/catalog"
)

// testCatalog 构造一个只包含 general 主题的目录，订阅源指向测试服务器
func testCatalog(t *testing.T, feeds ...string) *catalog.Holder {
	t.Helper()
	var b strings.Builder
	b.WriteString("fallback_topic: general\nmax_feeds_per_topic: 2\nmax_items_per_feed: 5\n")
	b.WriteString("keywords: [growth, strategy, market]\nfeeds:\n  general:\n")
	for _, f := range feeds {
		fmt.Fprintf(&b, "    - %q\n", f)
	}
	c, err := catalog.Parse([]byte(b.String()), nil)
	require.NoError(t, err)
	return catalog.NewHolder(c)
}
