package models

import "time"

// FetchStatus 一次 (数据源, 主题) 调用的结果分类
type FetchStatus string

const (
	FetchOK     FetchStatus = "ok"
	FetchEmpty  FetchStatus = "empty"
	FetchFailed FetchStatus = "failed"
)

// FetchResult 数据源调用的统一结果：失败不以 error 形式抛出，而是作为值参与合并
type FetchResult struct {
	Adapter  string
	Topic    string
	Status   FetchStatus
	Articles []Article
	Err      error
}

// Succeeded 成功但为空也算成功
func (r FetchResult) Succeeded() bool {
	return r.Status == FetchOK || r.Status == FetchEmpty
}

// NewFetchResult 根据文章数量与错误推导状态
func NewFetchResult(adapter, topic string, articles []Article, err error) FetchResult {
	res := FetchResult{Adapter: adapter, Topic: topic, Articles: articles, Err: err}
	switch {
	case len(articles) > 0:
		res.Status = FetchOK
	case err != nil:
		res.Status = FetchFailed
	default:
		res.Status = FetchEmpty
	}
	return res
}

// Trigger 刷新的触发来源
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerWarmup    Trigger = "warmup"
	TriggerOnDemand  Trigger = "on_demand"
	TriggerForced    Trigger = "forced"
)

// RefreshRun 一次聚合执行的记录
type RefreshRun struct {
	ID         string
	Trigger    Trigger
	Topics     []string
	StartedAt  time.Time
	Duration   time.Duration
	Fetched    int
	Failed     int
	CorpusSize int
	Outcome    string
	Error      string
	// 按数据源统计：adapter -> {"ok": n, "empty": n, "failed": n}
	AdapterStats map[string]map[string]int
}
