// Package storage 提供两个可选的外部存储：Postgres 中的刷新记录，以及 Redis 中的响应缓存。
// 两者都可以不配置；语料本身只存在于内存中。
package storage

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/LJTian/TrendPulse/internal/logger"
)

// ErrHistoryDisabled 未配置 POSTGRES_DSN
var ErrHistoryDisabled = errors.New("refresh history storage is disabled")

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client

	log *slog.Logger
}

// NewStore dsn / redisAddr 为空时对应能力关闭。Redis 连不上只告警，Postgres 连不上返回错误。
func NewStore(dsn, redisAddr string, log *slog.Logger) (*Store, error) {
	s := &Store{log: logger.OrDiscard(log)}

	if dsn != "" {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return nil, err
		}
		if err := db.AutoMigrate(&RefreshRunRecord{}); err != nil {
			return nil, err
		}
		s.DB = db
	}

	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			s.log.Warn("redis ping failed", slog.String("addr", redisAddr), slog.Any("err", err))
		}
		s.Redis = rdb
	}

	return s, nil
}

func (s *Store) logger() *slog.Logger {
	return logger.OrDiscard(s.log)
}

func (s *Store) HistoryEnabled() bool {
	return s != nil && s.DB != nil
}

func (s *Store) CacheEnabled() bool {
	return s != nil && s.Redis != nil
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.Redis != nil {
		errs = append(errs, s.Redis.Close())
	}
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// truncateRunesDB 按 rune 数截断，确保不会超过字段长度
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
