package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New 创建带 service 字段的文本日志，级别由 LOG_LEVEL 控制
func New(service string) *slog.Logger {
	return NewTo(os.Stdout, service)
}

// NewTo 输出到 w，命令行工具用它把日志写到 stderr
func NewTo(w io.Writer, service string) *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", service)
}

// Discard 返回丢弃所有输出的日志，组件未注入 logger 时使用
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrDiscard nil 安全
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
