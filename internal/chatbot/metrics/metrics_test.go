package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_RecordQuery(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordQuery(OutcomeAnswered)
		}()
	}
	wg.Wait()
	m.RecordQuery(OutcomeNoContext)
	m.RecordQuery(OutcomeFallback)
	m.RecordQuery(OutcomeRejected)

	queries := m.Stats()["queries"].(map[string]uint64)
	assert.EqualValues(t, 53, queries["total"])
	assert.EqualValues(t, 50, queries["answered"])
	assert.EqualValues(t, 1, queries["no_context"])
	assert.EqualValues(t, 1, queries["fallback"])
	assert.EqualValues(t, 1, queries["rejected"])
}

func TestMetrics_Latency(t *testing.T) {
	m := New()
	m.RecordRetrieval(100*time.Millisecond, nil)
	m.RecordRetrieval(300*time.Millisecond, nil)
	m.RecordRetrieval(time.Second, errors.New("boom"))
	m.RecordLLMCall(time.Second, 10, 5, nil)
	m.RecordLLMCall(time.Second, 0, 0, errors.New("boom"))

	stats := m.Stats()
	retrieval := stats["retrieval"].(map[string]any)
	assert.EqualValues(t, 3, retrieval["total"])
	assert.EqualValues(t, 1, retrieval["errors"])
	assert.InDelta(t, 200.0, retrieval["avg_latency_ms"], 0.001)

	llm := stats["llm"].(map[string]any)
	assert.EqualValues(t, 2, llm["total"])
	assert.EqualValues(t, 10, llm["prompt_tokens"])
	assert.EqualValues(t, 5, llm["completion_tokens"])
	assert.InDelta(t, 1000.0, llm["avg_latency_ms"], 0.001)
}

func TestMetrics_Indexing(t *testing.T) {
	m := New()
	m.RecordIndexing(4, nil)
	m.RecordIndexing(0, errors.New("boom"))

	indexing := m.Stats()["indexing"].(map[string]uint64)
	assert.EqualValues(t, 4, indexing["documents"])
	assert.EqualValues(t, 1, indexing["errors"])
}
