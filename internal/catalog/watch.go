package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/LJTian/TrendPulse/internal/logger"
)

// Watch 监听目录文件变化并热加载到 h；解析失败时保留旧目录。
// 监听的是文件所在目录，以兼容编辑器“写临时文件再 rename”的保存方式。阻塞直到 ctx 结束。
func Watch(ctx context.Context, path string, h *Holder, log *slog.Logger) error {
	log = logger.OrDiscard(log)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog: new watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("catalog: resolve %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("catalog: watch %s: %w", filepath.Dir(abs), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			c, err := Load(abs)
			if err != nil {
				log.Warn("catalog reload failed, keeping previous", slog.String("path", abs), slog.Any("err", err))
				continue
			}
			h.Store(c)
			log.Info("catalog reloaded",
				slog.String("path", abs),
				slog.Int("topics", len(c.Feeds)),
				slog.Int("keywords", len(c.Keywords)),
			)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("catalog watcher error", slog.Any("err", err))
		}
	}
}
