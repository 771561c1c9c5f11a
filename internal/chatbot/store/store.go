package store

import (
	"context"
	"errors"
	"fmt"
)

// MetadataContentKey 是记录元数据中保存原文的键。
const MetadataContentKey = "content"

// Metric 相似度度量。
type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricEuclidean Metric = "euclidean"
	MetricDot       Metric = "dotproduct"
)

var (
	// ErrDimensionMismatch 向量维度与索引维度不一致。
	ErrDimensionMismatch = errors.New("store: vector dimension does not match index")

	// ErrIndexNotFound 索引不存在。
	ErrIndexNotFound = errors.New("store: index not found")
)

// IndexSpec 描述一个向量索引。
type IndexSpec struct {
	Name      string
	Dimension int
	Metric    Metric
	Cloud     string
	Region    string
}

// DefaultIndexSpec 返回知识库索引的默认规格。
func DefaultIndexSpec() IndexSpec {
	return IndexSpec{
		Name:      "chatbot-knowledge-base",
		Dimension: 1536,
		Metric:    MetricCosine,
		Cloud:     "aws",
		Region:    "us-east-1",
	}
}

// Document 待入库的文档分段。
type Document struct {
	Content  string
	Metadata map[string]any
}

// Record 写入向量索引的一条记录，Metadata 中包含原文。
type Record struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// Match 向量索引返回的一条命中，Metadata 中包含原文。
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// SearchResult 检索结果，Metadata 不含原文。
type SearchResult struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]any
}

// Source 返回结果的 source 元数据，缺失时返回空串。
func (r SearchResult) Source() string {
	s, _ := r.LookupSource()
	return s
}

// LookupSource 返回 source 元数据及其是否存在，非字符串值按默认格式转换。
// 值为 nil 视为不存在。
func (r SearchResult) LookupSource() (string, bool) {
	v, ok := r.Metadata["source"]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// IndexStats 索引统计信息。
type IndexStats struct {
	TotalVectorCount int64            `json:"total_vector_count"`
	Dimension        int              `json:"dimension"`
	IndexFullness    float64          `json:"index_fullness"`
	Namespaces       map[string]int64 `json:"namespaces,omitempty"`
}

// VectorIndex 定义外部向量索引的最小能力集。
// 实现在构造时绑定 IndexSpec，所有方法都作用于该索引。
type VectorIndex interface {
	// Exists 查询服务端已有索引，判断目标索引是否存在。
	Exists(ctx context.Context) (bool, error)

	// Create 创建索引，已存在时不报错。
	Create(ctx context.Context) error

	// Upsert 按 ID 插入或覆盖记录。
	Upsert(ctx context.Context, records []Record) error

	// Query 返回与 vector 最相似的 topK 条记录，按相似度降序。
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)

	// Stats 返回索引统计信息。
	Stats(ctx context.Context) (*IndexStats, error)

	// Close 释放连接。
	Close(ctx context.Context) error
}

// copyMetadata 复制元数据并去掉 skip 中的键。
func copyMetadata(src map[string]any, skip ...string) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	for _, k := range skip {
		delete(dst, k)
	}
	return dst
}
