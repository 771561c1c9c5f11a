// Package metrics 提供聊天机器人服务的业务指标收集。
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics 聊天服务业务指标，所有方法并发安全。
type Metrics struct {
	// 查询指标
	queriesTotal     uint64 // 总查询次数
	queriesAnswered  uint64 // 成功回答次数
	queriesNoContext uint64 // 无检索结果次数
	queriesFallback  uint64 // 降级回复次数
	queriesRejected  uint64 // 非法请求次数

	// 检索指标
	retrievalTotal    uint64
	retrievalErrors   uint64
	retrievalDuration float64 // 秒

	// LLM 调用指标
	llmCallsTotal       uint64
	llmCallsErrors      uint64
	llmCallsDuration    float64 // 秒
	llmTokensPrompt     uint64
	llmTokensCompletion uint64

	// 索引指标
	documentsIndexed uint64
	indexErrors      uint64

	startTime  time.Time
	durationMu sync.Mutex
}

// New 创建指标实例。
func New() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// Outcome 查询结果类别。
type Outcome int

const (
	OutcomeAnswered Outcome = iota
	OutcomeNoContext
	OutcomeFallback
	OutcomeRejected
)

// RecordQuery 记录一次查询及其结果。
func (m *Metrics) RecordQuery(outcome Outcome) {
	atomic.AddUint64(&m.queriesTotal, 1)
	switch outcome {
	case OutcomeAnswered:
		atomic.AddUint64(&m.queriesAnswered, 1)
	case OutcomeNoContext:
		atomic.AddUint64(&m.queriesNoContext, 1)
	case OutcomeFallback:
		atomic.AddUint64(&m.queriesFallback, 1)
	case OutcomeRejected:
		atomic.AddUint64(&m.queriesRejected, 1)
	}
}

// RecordRetrieval 记录检索操作。
func (m *Metrics) RecordRetrieval(duration time.Duration, err error) {
	atomic.AddUint64(&m.retrievalTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.retrievalErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.retrievalDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordLLMCall 记录 LLM 调用。
func (m *Metrics) RecordLLMCall(duration time.Duration, promptTokens, completionTokens int, err error) {
	atomic.AddUint64(&m.llmCallsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.llmCallsErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.llmCallsDuration += duration.Seconds()
	m.durationMu.Unlock()

	if promptTokens > 0 {
		atomic.AddUint64(&m.llmTokensPrompt, uint64(promptTokens))
	}
	if completionTokens > 0 {
		atomic.AddUint64(&m.llmTokensCompletion, uint64(completionTokens))
	}
}

// RecordIndexing 记录索引操作。
func (m *Metrics) RecordIndexing(documents int, err error) {
	if err != nil {
		atomic.AddUint64(&m.indexErrors, 1)
		return
	}
	atomic.AddUint64(&m.documentsIndexed, uint64(documents))
}

// Stats 返回指标快照，用于日志输出。
func (m *Metrics) Stats() map[string]any {
	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()

	retrievalTotal := atomic.LoadUint64(&m.retrievalTotal)
	retrievalOK := retrievalTotal - atomic.LoadUint64(&m.retrievalErrors)
	llmTotal := atomic.LoadUint64(&m.llmCallsTotal)
	llmOK := llmTotal - atomic.LoadUint64(&m.llmCallsErrors)

	return map[string]any{
		"uptime_seconds": time.Since(m.startTime).Seconds(),
		"queries": map[string]uint64{
			"total":      atomic.LoadUint64(&m.queriesTotal),
			"answered":   atomic.LoadUint64(&m.queriesAnswered),
			"no_context": atomic.LoadUint64(&m.queriesNoContext),
			"fallback":   atomic.LoadUint64(&m.queriesFallback),
			"rejected":   atomic.LoadUint64(&m.queriesRejected),
		},
		"retrieval": map[string]any{
			"total":          retrievalTotal,
			"errors":         atomic.LoadUint64(&m.retrievalErrors),
			"avg_latency_ms": avgMillis(retrievalDuration, retrievalOK),
		},
		"llm": map[string]any{
			"total":             llmTotal,
			"errors":            atomic.LoadUint64(&m.llmCallsErrors),
			"avg_latency_ms":    avgMillis(llmDuration, llmOK),
			"prompt_tokens":     atomic.LoadUint64(&m.llmTokensPrompt),
			"completion_tokens": atomic.LoadUint64(&m.llmTokensCompletion),
		},
		"indexing": map[string]uint64{
			"documents": atomic.LoadUint64(&m.documentsIndexed),
			"errors":    atomic.LoadUint64(&m.indexErrors),
		},
	}
}

func avgMillis(totalSeconds float64, n uint64) float64 {
	if n == 0 {
		return 0
	}
	return totalSeconds * 1000 / float64(n)
}
