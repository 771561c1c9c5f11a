package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/kart-io/kb-chatbot/pkg/utils/json"
)

// ChromemIndex 基于 chromem-go 的嵌入式向量索引。
// Path 为空时仅驻留内存，否则持久化到该目录。
// chromem 元数据只支持字符串，这里对每个值做 JSON 编码以保留类型。
type ChromemIndex struct {
	spec IndexSpec
	db   *chromem.DB

	mu   sync.RWMutex
	coll *chromem.Collection
}

var _ VectorIndex = (*ChromemIndex)(nil)

// NewChromemIndex 打开（或新建）chromem 数据库。
func NewChromemIndex(spec IndexSpec, path string, compress bool) (*ChromemIndex, error) {
	var (
		db  *chromem.DB
		err error
	)
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, compress)
		if err != nil {
			return nil, fmt.Errorf("open chromem db %s: %w", path, err)
		}
	}

	return &ChromemIndex{
		spec: spec,
		db:   db,
		coll: db.GetCollection(spec.Name, nil),
	}, nil
}

func (c *ChromemIndex) collection() (*chromem.Collection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.coll == nil {
		return nil, ErrIndexNotFound
	}
	return c.coll, nil
}

func (c *ChromemIndex) Exists(_ context.Context) (bool, error) {
	_, err := c.collection()
	return err == nil, nil
}

func (c *ChromemIndex) Create(_ context.Context) error {
	metadata := map[string]string{
		"hnsw:space": string(c.spec.Metric),
		"dimension":  fmt.Sprint(c.spec.Dimension),
	}
	coll, err := c.db.GetOrCreateCollection(c.spec.Name, metadata, nil)
	if err != nil {
		return fmt.Errorf("create chromem collection: %w", err)
	}

	c.mu.Lock()
	c.coll = coll
	c.mu.Unlock()
	return nil
}

func (c *ChromemIndex) Upsert(ctx context.Context, records []Record) error {
	coll, err := c.collection()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	vectors := make([][]float32, len(records))
	metadatas := make([]map[string]string, len(records))
	contents := make([]string, len(records))

	for i, r := range records {
		if len(r.Vector) != c.spec.Dimension {
			return fmt.Errorf("record %s: %w", r.ID, ErrDimensionMismatch)
		}
		meta, err := encodeChromemMetadata(copyMetadata(r.Metadata, MetadataContentKey))
		if err != nil {
			return fmt.Errorf("record %s: %w", r.ID, err)
		}

		ids[i] = r.ID
		vectors[i] = r.Vector
		metadatas[i] = meta
		contents[i], _ = r.Metadata[MetadataContentKey].(string)
	}

	return coll.Add(ctx, ids, vectors, metadatas, contents)
}

func (c *ChromemIndex) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	coll, err := c.collection()
	if err != nil {
		return nil, err
	}
	if len(vector) != c.spec.Dimension {
		return nil, ErrDimensionMismatch
	}

	// chromem 要求 nResults 不超过文档数
	n := min(topK, coll.Count())
	if n == 0 {
		return []Match{}, nil
	}

	results, err := coll.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		metadata, err := decodeChromemMetadata(r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
		metadata[MetadataContentKey] = r.Content
		matches = append(matches, Match{ID: r.ID, Score: r.Similarity, Metadata: metadata})
	}
	return matches, nil
}

func (c *ChromemIndex) Stats(_ context.Context) (*IndexStats, error) {
	coll, err := c.collection()
	if err != nil {
		return nil, err
	}
	n := int64(coll.Count())
	return &IndexStats{
		TotalVectorCount: n,
		Dimension:        c.spec.Dimension,
		Namespaces:       map[string]int64{"": n},
	}, nil
}

func (c *ChromemIndex) Close(_ context.Context) error {
	return nil
}

func encodeChromemMetadata(src map[string]any) (map[string]string, error) {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode metadata %q: %w", k, err)
		}
		dst[k] = string(data)
	}
	return dst, nil
}

func decodeChromemMetadata(src map[string]string) (map[string]any, error) {
	dst := make(map[string]any, len(src)+1)
	var errs []error
	for k, v := range src {
		var val any
		if err := json.Unmarshal([]byte(v), &val); err != nil {
			errs = append(errs, fmt.Errorf("decode metadata %q: %w", k, err))
			continue
		}
		dst[k] = val
	}
	return dst, errors.Join(errs...)
}
