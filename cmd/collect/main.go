package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LJTian/TrendPulse/internal/app"
	"github.com/LJTian/TrendPulse/internal/config"
	"github.com/LJTian/TrendPulse/internal/logger"
	"github.com/LJTian/TrendPulse/internal/models"
	"github.com/LJTian/TrendPulse/internal/trends"
)

var (
	flagTopics  string
	flagLimit   int
	flagCatalog string
	flagSummary bool
)

// 一个仅执行一次强制刷新的命令行入口：适合手动触发采集并查看结果
var rootCmd = &cobra.Command{
	Use:           "collect",
	Short:         "Run one forced trends refresh and print the result as JSON",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCollect,
}

func init() {
	rootCmd.Flags().StringVar(&flagTopics, "topics", "business,technology", "comma-separated topics to refresh")
	rootCmd.Flags().IntVar(&flagLimit, "limit", trends.DefaultLimit, "max number of trends to print")
	rootCmd.Flags().StringVar(&flagCatalog, "catalog", "", "catalog YAML file (overrides TRENDS_CATALOG_FILE)")
	rootCmd.Flags().BoolVar(&flagSummary, "summary", false, "print the prompt context block instead of the trends list")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "collect:", err)
		os.Exit(1)
	}
}

func runCollect(cmd *cobra.Command, _ []string) error {
	log := logger.NewTo(os.Stderr, "trendpulse-collect")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flagCatalog != "" {
		cfg.CatalogFile = flagCatalog
	}

	a, err := app.Build(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	topics := models.ParseTopicsCSV(flagTopics)
	refreshed, err := a.Trends.RefreshTrends(ctx, topics)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	log.Info("refresh done", slog.String("message", refreshed.Message), slog.Int("articles", refreshed.ArticlesCount))

	var out any
	if flagSummary {
		out = a.Trends.Summary(ctx, topics, flagLimit)
	} else {
		out = a.Trends.GetTrends(ctx, flagTopics, flagLimit)
	}
	return printJSON(cmd, out)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
