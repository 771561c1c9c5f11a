package store

import (
	"context"
	"crypto/md5" //nolint:gosec // content identity, not security
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/kb-chatbot/pkg/infra/pool"
	"github.com/kart-io/kb-chatbot/pkg/llm"
)

const defaultEmbedBatchSize = 100

// DocumentID 返回内容的 md5 十六进制摘要，作为记录的稳定 ID。
func DocumentID(content string) string {
	sum := md5.Sum([]byte(content)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// Option 配置 VectorStore。
type Option func(*VectorStore)

// WithIndexSpec 指定索引规格，默认 DefaultIndexSpec()。
func WithIndexSpec(spec IndexSpec) Option {
	return func(s *VectorStore) {
		s.spec = spec
	}
}

// WithEmbedPool 使用工作池并发执行分批嵌入。
func WithEmbedPool(p *pool.Pool) Option {
	return func(s *VectorStore) {
		s.pool = p
	}
}

// WithEmbedBatchSize 设置单次嵌入请求的文本数量。
func WithEmbedBatchSize(n int) Option {
	return func(s *VectorStore) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// VectorStore 在 Embedding 供应商与向量索引之上提供文档入库与相似度检索。
// 除构造参数外不持有可变状态，可被并发请求共享。
type VectorStore struct {
	index     VectorIndex
	embedder  llm.EmbeddingProvider
	spec      IndexSpec
	pool      *pool.Pool
	batchSize int
}

// NewVectorStore 创建 VectorStore，不访问外部服务。
func NewVectorStore(index VectorIndex, embedder llm.EmbeddingProvider, opts ...Option) *VectorStore {
	s := &VectorStore{
		index:     index,
		embedder:  embedder,
		spec:      DefaultIndexSpec(),
		batchSize: defaultEmbedBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open 创建 VectorStore 并确保索引存在，索引检查只在此执行一次。
func Open(ctx context.Context, index VectorIndex, embedder llm.EmbeddingProvider, opts ...Option) (*VectorStore, error) {
	s := NewVectorStore(index, embedder, opts...)
	if err := s.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Spec 返回索引规格。
func (s *VectorStore) Spec() IndexSpec {
	return s.spec
}

// EnsureIndex 索引不存在时创建，可重复调用。
func (s *VectorStore) EnsureIndex(ctx context.Context) error {
	exists, err := s.index.Exists(ctx)
	if err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}
	if exists {
		logger.Debugw("vector index exists", "index", s.spec.Name)
		return nil
	}

	logger.Infow("creating vector index",
		"index", s.spec.Name,
		"dimension", s.spec.Dimension,
		"metric", s.spec.Metric,
	)
	if err := s.index.Create(ctx); err != nil {
		return fmt.Errorf("create index %s: %w", s.spec.Name, err)
	}
	return nil
}

// AddDocuments 嵌入全部文档并以一次批量 upsert 写入索引，返回写入的记录数。
// 嵌入或写入失败直接返回错误，不做回滚。
func (s *VectorStore) AddDocuments(ctx context.Context, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		if strings.TrimSpace(doc.Content) == "" {
			return 0, fmt.Errorf("document %d: empty content", i)
		}
		texts[i] = doc.Content
	}

	vectors, err := s.embedAll(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed documents: %w", err)
	}

	records := make([]Record, 0, len(docs))
	position := make(map[string]int, len(docs))
	for i, doc := range docs {
		if len(vectors[i]) != s.spec.Dimension {
			return 0, fmt.Errorf("document %d: got %d, want %d: %w", i, len(vectors[i]), s.spec.Dimension, ErrDimensionMismatch)
		}

		metadata := copyMetadata(doc.Metadata)
		metadata[MetadataContentKey] = doc.Content
		rec := Record{ID: DocumentID(doc.Content), Vector: vectors[i], Metadata: metadata}

		if prev, ok := position[rec.ID]; ok {
			logger.Warnw("duplicate section content, keeping the later one",
				"id", rec.ID,
				"dropped_source", records[prev].Metadata["source"],
				"kept_source", metadata["source"],
			)
			records[prev] = rec
			continue
		}
		position[rec.ID] = len(records)
		records = append(records, rec)
	}

	if err := s.index.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("upsert %d records: %w", len(records), err)
	}

	logger.Infow("documents added", "index", s.spec.Name, "documents", len(docs), "records", len(records))
	return len(records), nil
}

// embedAll 分批嵌入，配置了工作池时各批并发执行，结果顺序与输入一致。
func (s *VectorStore) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	var tasks []func(context.Context) error
	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))
		start := start
		tasks = append(tasks, func(ctx context.Context) error {
			batch, err := s.embedder.Embed(ctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(batch) != end-start {
				return fmt.Errorf("got %d vectors for %d texts: %w", len(batch), end-start, llm.ErrEmptyResponse)
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}

	if s.pool != nil && len(tasks) > 1 {
		if err := s.pool.Run(ctx, tasks...); err != nil {
			return nil, err
		}
		return vectors, nil
	}

	for _, task := range tasks {
		if err := task(ctx); err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

// SearchSimilar 嵌入查询文本并返回最相似的 topK 条结果。
// 无命中时返回空切片而非错误。
func (s *VectorStore) SearchSimilar(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		return nil, errors.New("store: topK must be positive")
	}

	vector, err := s.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.index.Query(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		content, _ := m.Metadata[MetadataContentKey].(string)
		results = append(results, SearchResult{
			ID:       m.ID,
			Content:  content,
			Score:    m.Score,
			Metadata: copyMetadata(m.Metadata, MetadataContentKey),
		})
	}
	return results, nil
}

// GetIndexStats 返回索引统计信息。
func (s *VectorStore) GetIndexStats(ctx context.Context) (*IndexStats, error) {
	stats, err := s.index.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("describe index stats: %w", err)
	}
	return stats, nil
}

// Close 关闭底层索引连接。
func (s *VectorStore) Close(ctx context.Context) error {
	return s.index.Close(ctx)
}
