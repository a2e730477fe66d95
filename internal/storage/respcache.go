package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ResponseCacheTTL 响应缓存的过期时间；键里带有快照时间戳，语料更新后旧键自然失效
const ResponseCacheTTL = 5 * time.Minute

// ResponseKey 例如 trends:list:1714564800000000000:business,technology:20
func ResponseKey(kind string, stamp time.Time, topics []string, n int) string {
	var ts int64
	if !stamp.IsZero() {
		ts = stamp.UnixNano()
	}
	return fmt.Sprintf("trends:%s:%d:%s:%d", kind, ts, strings.Join(topics, ","), n)
}

// GetJSON 命中返回 true；未启用或出错都视为未命中
func (s *Store) GetJSON(ctx context.Context, key string, dst any) bool {
	if !s.CacheEnabled() {
		return false
	}
	bs, err := s.Redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(bs, dst); err != nil {
		s.logger().Debug("drop undecodable cache entry", slog.String("key", key), slog.Any("err", err))
		return false
	}
	return true
}

// SetJSON 写缓存失败只记录日志
func (s *Store) SetJSON(ctx context.Context, key string, v any) {
	if !s.CacheEnabled() {
		return
	}
	bs, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, key, bs, ResponseCacheTTL).Err(); err != nil {
		s.logger().Warn("write response cache failed", slog.String("key", key), slog.Any("err", err))
	}
}
