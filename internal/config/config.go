package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppPort string

	// 若同时配置用户名与密码，则对除 /health 外的所有路由启用 Basic Auth
	BasicAuthUser string
	BasicAuthPass string

	// NewsAPI 头条接口；未配置 key 时该数据源直接跳过
	NewsAPIKey     string
	NewsAPICountry string
	NewsAPIBaseURL string

	CronSpec         string
	WarmupDelay      time.Duration
	CacheTTL         time.Duration
	EndpointTimeout  time.Duration
	CallTimeout      time.Duration
	RefreshTimeout   time.Duration
	FailureCooldown  time.Duration
	FetchConcurrency int

	// 为空时使用内嵌的默认目录（主题→订阅源、关键词表）
	CatalogFile       string
	EnrichImages      bool
	// 额外启用 Hacker News 热门榜作为数据源
	HackerNewsEnabled bool

	// 以下两项均可为空：为空则不记录刷新历史 / 不启用响应缓存
	PostgresDSN string
	RedisAddr   string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppPort:           getEnv("APP_PORT", "9000"),
		BasicAuthUser:     getEnv("APP_BASIC_USER", ""),
		BasicAuthPass:     getEnv("APP_BASIC_PASS", ""),
		NewsAPIKey:        getEnv("NEWS_API_KEY", ""),
		NewsAPICountry:    getEnv("NEWS_API_COUNTRY", "us"),
		NewsAPIBaseURL:    getEnv("NEWS_API_BASE_URL", "https://newsapi.org"),
		CronSpec:          getEnv("TRENDS_CRON_SPEC", "*/30 * * * *"),
		WarmupDelay:       getDuration("TRENDS_WARMUP_DELAY", 5*time.Second),
		CacheTTL:          getDuration("TRENDS_CACHE_TTL", 30*time.Minute),
		EndpointTimeout:   getDuration("TRENDS_ENDPOINT_TIMEOUT", 10*time.Second),
		CallTimeout:       getDuration("TRENDS_CALL_TIMEOUT", 20*time.Second),
		RefreshTimeout:    getDuration("TRENDS_REFRESH_TIMEOUT", time.Minute),
		FailureCooldown:   getDuration("TRENDS_FAILURE_COOLDOWN", time.Minute),
		FetchConcurrency:  getInt("TRENDS_FETCH_CONCURRENCY", 4),
		CatalogFile:       getEnv("TRENDS_CATALOG_FILE", ""),
		EnrichImages:      getBool("TRENDS_ENRICH_IMAGES", false),
		HackerNewsEnabled: getBool("TRENDS_HN_ENABLED", false),
		PostgresDSN:       getEnv("POSTGRES_DSN", ""),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
	}

	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("TRENDS_CACHE_TTL must be positive")
	}
	if cfg.FetchConcurrency <= 0 {
		return nil, fmt.Errorf("TRENDS_FETCH_CONCURRENCY must be positive")
	}
	if cfg.EndpointTimeout <= 0 || cfg.CallTimeout <= 0 || cfg.RefreshTimeout <= 0 {
		return nil, fmt.Errorf("trends timeouts must be positive")
	}
	if cfg.WarmupDelay < 0 || cfg.FailureCooldown < 0 {
		return nil, fmt.Errorf("TRENDS_WARMUP_DELAY and TRENDS_FAILURE_COOLDOWN cannot be negative")
	}
	if strings.TrimSpace(cfg.CronSpec) == "" {
		return nil, fmt.Errorf("TRENDS_CRON_SPEC must not be empty")
	}

	return cfg, nil
}

// NewsAPIEnabled 表示头条数据源是否可用
func (c *Config) NewsAPIEnabled() bool {
	return c.NewsAPIKey != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// getDuration 解析失败时退回默认值，不让一个写错的环境变量阻塞启动
func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}
