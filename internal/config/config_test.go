package config

import (
	"os"
	"testing"
	"time"
)

func TestGetEnvWithDefault(t *testing.T) {
	const key = "TEST_APP_PORT"

	// 环境变量未设置时，应该返回默认值
	_ = os.Unsetenv(key)
	if got := getEnv(key, "9000"); got != "9000" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "9000")
	}

	// 环境变量设置后，应优先返回环境变量
	t.Setenv(key, "8080")
	if got := getEnv(key, "9000"); got != "8080" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "8080")
	}
}

func TestTypedGettersFallBackOnGarbage(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	t.Setenv("TEST_DURATION", "soon")
	t.Setenv("TEST_BOOL", "maybe")

	if got := getInt("TEST_INT", 4); got != 4 {
		t.Fatalf("getInt = %d, want 4", got)
	}
	if got := getDuration("TEST_DURATION", time.Minute); got != time.Minute {
		t.Fatalf("getDuration = %v, want 1m", got)
	}
	if got := getBool("TEST_BOOL", true); !got {
		t.Fatalf("getBool = false, want true")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.CacheTTL != 30*time.Minute {
		t.Fatalf("CacheTTL = %v, want 30m", cfg.CacheTTL)
	}
	if cfg.WarmupDelay != 5*time.Second {
		t.Fatalf("WarmupDelay = %v, want 5s", cfg.WarmupDelay)
	}
	if cfg.CronSpec != "*/30 * * * *" {
		t.Fatalf("CronSpec = %q", cfg.CronSpec)
	}
	if cfg.NewsAPIEnabled() {
		t.Fatalf("NewsAPI should be disabled without a key")
	}
}

func TestLoadReadsAuthAndPorts(t *testing.T) {
	t.Setenv("APP_PORT", "1234")
	t.Setenv("APP_BASIC_USER", "user")
	t.Setenv("APP_BASIC_PASS", "pass")
	t.Setenv("NEWS_API_KEY", "k")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.AppPort != "1234" {
		t.Fatalf("AppPort = %q, want %q", cfg.AppPort, "1234")
	}
	if cfg.BasicAuthUser != "user" || cfg.BasicAuthPass != "pass" {
		t.Fatalf("BasicAuthUser/Pass not loaded correctly: %+v", cfg)
	}
	if !cfg.NewsAPIEnabled() {
		t.Fatalf("NewsAPI should be enabled when NEWS_API_KEY is set")
	}
}

func TestLoadRejectsNonPositiveConcurrency(t *testing.T) {
	t.Setenv("TRENDS_FETCH_CONCURRENCY", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero concurrency")
	}
}
