package storage

import (
	"context"
	"math"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/LJTian/TrendPulse/internal/models"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
	runErrorMaxRunes = 500
)

// RefreshRunRecord 一次刷新的审计记录
type RefreshRunRecord struct {
	ID         string            `gorm:"primaryKey;size:40" json:"id"`
	Trigger    string            `gorm:"size:16;index" json:"trigger"`
	Topics     string            `gorm:"size:512" json:"topics"` // 逗号分隔
	StartedAt  time.Time         `gorm:"index" json:"startedAt"`
	DurationMS int64             `json:"durationMs"`
	Fetched    int               `json:"fetched"`
	Failed     int               `json:"failed"`
	CorpusSize int               `json:"corpusSize"`
	Outcome    string            `gorm:"size:16;index" json:"outcome"`
	Error      string            `gorm:"size:512" json:"error"`
	Stats      datatypes.JSONMap `gorm:"type:jsonb" json:"stats"`

	CreatedAt time.Time `json:"createdAt"`
}

// RecordRun 实现 refresher.RunRecorder
func (s *Store) RecordRun(ctx context.Context, run models.RefreshRun) error {
	if !s.HistoryEnabled() {
		return ErrHistoryDisabled
	}
	rec := toRecord(run)
	return s.DB.WithContext(ctx).Create(&rec).Error
}

// ListRuns 按开始时间倒序返回最近的刷新记录
func (s *Store) ListRuns(ctx context.Context, limit int) ([]models.RefreshRun, error) {
	if !s.HistoryEnabled() {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 || limit > maxRunsLimit {
		limit = defaultRunsLimit
	}
	var recs []RefreshRunRecord
	if err := s.DB.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, err
	}
	runs := make([]models.RefreshRun, 0, len(recs))
	for _, r := range recs {
		runs = append(runs, fromRecord(r))
	}
	return runs, nil
}

func toRecord(run models.RefreshRun) RefreshRunRecord {
	stats := make(datatypes.JSONMap, len(run.AdapterStats))
	for name, counts := range run.AdapterStats {
		m := make(map[string]interface{}, len(counts))
		for k, v := range counts {
			m[k] = v
		}
		stats[name] = m
	}
	return RefreshRunRecord{
		ID:         run.ID,
		Trigger:    string(run.Trigger),
		Topics:     truncateRunesDB(strings.Join(run.Topics, ","), 512),
		StartedAt:  run.StartedAt,
		DurationMS: run.Duration.Milliseconds(),
		Fetched:    run.Fetched,
		Failed:     run.Failed,
		CorpusSize: run.CorpusSize,
		Outcome:    run.Outcome,
		Error:      truncateRunesDB(toValidUTF8(run.Error), runErrorMaxRunes),
		Stats:      stats,
	}
}

// fromRecord jsonb 读回后数字为 float64
func fromRecord(r RefreshRunRecord) models.RefreshRun {
	run := models.RefreshRun{
		ID:           r.ID,
		Trigger:      models.Trigger(r.Trigger),
		StartedAt:    r.StartedAt,
		Duration:     time.Duration(r.DurationMS) * time.Millisecond,
		Fetched:      r.Fetched,
		Failed:       r.Failed,
		CorpusSize:   r.CorpusSize,
		Outcome:      r.Outcome,
		Error:        r.Error,
		AdapterStats: make(map[string]map[string]int, len(r.Stats)),
	}
	if r.Topics != "" {
		run.Topics = strings.Split(r.Topics, ",")
	}
	for name, raw := range r.Stats {
		counts, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		out := make(map[string]int, len(counts))
		for k, v := range counts {
			switch n := v.(type) {
			case float64:
				out[k] = int(math.Round(n))
			case int:
				out[k] = n
			}
		}
		run.AdapterStats[name] = out
	}
	return run
}
