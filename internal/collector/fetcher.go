package collector

import (
	"context"

	"github.com/LJTian/TrendPulse/internal/catalog"
	"github.com/LJTian/TrendPulse/internal/models"
)

// Fetcher 抽象每一类数据源：把一个主题转换为有限数量的归一化文章。
// 实现不得向外抛出错误，失败通过 FetchResult.Status 表达。
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, topic string) models.FetchResult
}

// CatalogProvider 提供当前生效的目录（支持热加载）
type CatalogProvider interface {
	Current() *catalog.Catalog
}
