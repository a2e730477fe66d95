package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/TrendPulse/internal/api"
	"github.com/LJTian/TrendPulse/internal/app"
	"github.com/LJTian/TrendPulse/internal/catalog"
	"github.com/LJTian/TrendPulse/internal/config"
	"github.com/LJTian/TrendPulse/internal/logger"
	"github.com/LJTian/TrendPulse/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logger.New("trendpulse-api")

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config failed", slog.Any("err", err))
		os.Exit(1)
	}

	a, err := app.Build(cfg, log)
	if err != nil {
		log.Error("init app failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 配置了外部目录文件时支持热加载
	if cfg.CatalogFile != "" {
		go func() {
			if err := catalog.Watch(ctx, cfg.CatalogFile, a.Catalog, log.With("component", "catalog")); err != nil {
				log.Warn("catalog watch stopped", slog.Any("err", err))
			}
		}()
	}

	s, err := scheduler.New(cfg.CronSpec, cfg.WarmupDelay, a.Refresher, a.Catalog, log.With("component", "scheduler"))
	if err != nil {
		log.Error("init scheduler failed", slog.Any("err", err))
		os.Exit(1)
	}
	s.Start()
	defer s.Stop()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger(log.With("component", "http")))
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(api.BasicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}
	api.NewServer(a.Trends, a.Runs()).RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("starting api server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server exit", slog.Any("err", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", slog.Any("err", err))
	}
}
