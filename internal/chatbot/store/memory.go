package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryIndex 进程内向量索引，逐条计算余弦相似度。
// 用于测试与离线演示，进程退出后数据丢失。
type MemoryIndex struct {
	spec IndexSpec

	mu      sync.RWMutex
	created bool
	records map[string]Record
}

var _ VectorIndex = (*MemoryIndex)(nil)

// NewMemoryIndex 创建空的内存索引，需调用 Create 后才可写入。
func NewMemoryIndex(spec IndexSpec) *MemoryIndex {
	return &MemoryIndex{
		spec:    spec,
		records: make(map[string]Record),
	}
}

func (m *MemoryIndex) Exists(_ context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.created, nil
}

func (m *MemoryIndex) Create(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = true
	return nil
}

func (m *MemoryIndex) Upsert(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.created {
		return ErrIndexNotFound
	}
	for _, r := range records {
		if len(r.Vector) != m.spec.Dimension {
			return fmt.Errorf("record %s: %w", r.ID, ErrDimensionMismatch)
		}
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		m.records[r.ID] = Record{ID: r.ID, Vector: vec, Metadata: copyMetadata(r.Metadata)}
	}
	return nil
}

func (m *MemoryIndex) Query(_ context.Context, vector []float32, topK int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.created {
		return nil, ErrIndexNotFound
	}
	if len(vector) != m.spec.Dimension {
		return nil, ErrDimensionMismatch
	}

	matches := make([]Match, 0, len(m.records))
	for _, r := range m.records {
		matches = append(matches, Match{
			ID:       r.ID,
			Score:    cosine(vector, r.Vector),
			Metadata: copyMetadata(r.Metadata),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MemoryIndex) Stats(_ context.Context) (*IndexStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.created {
		return nil, ErrIndexNotFound
	}
	n := int64(len(m.records))
	return &IndexStats{
		TotalVectorCount: n,
		Dimension:        m.spec.Dimension,
		Namespaces:       map[string]int64{"": n},
	}, nil
}

func (m *MemoryIndex) Close(_ context.Context) error {
	return nil
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
