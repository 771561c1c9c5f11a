package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/kb-chatbot/pkg/component/milvus"
	"github.com/kart-io/kb-chatbot/pkg/utils/json"
)

const (
	milvusFieldContent  = "content"
	milvusFieldMetadata = "metadata"
	milvusContentMaxLen = 65535
)

// milvusCollections 是 MilvusIndex 依赖的 Milvus 能力，便于在测试中替换。
type milvusCollections interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, schema *milvus.CollectionSchema) error
	Upsert(ctx context.Context, collection string, columns ...column.Column) (int64, error)
	Search(ctx context.Context, collection string, vector []float32, topK int, outputFields []string) ([]milvus.SearchResult, error)
	RowCount(ctx context.Context, collection string) (int64, error)
	Close(ctx context.Context) error
}

// MilvusIndex 将知识库索引映射为一个 Milvus collection。
// Milvus 不允许集合名中出现连字符，统一替换为下划线。
type MilvusIndex struct {
	spec       IndexSpec
	collection string
	client     milvusCollections
}

var _ VectorIndex = (*MilvusIndex)(nil)

// NewMilvusIndex 基于已连接的 Milvus 客户端创建索引。
// collection 为空时由索引名推导。
func NewMilvusIndex(spec IndexSpec, client *milvus.Client, collection string) *MilvusIndex {
	return newMilvusIndex(spec, client, collection)
}

func newMilvusIndex(spec IndexSpec, client milvusCollections, collection string) *MilvusIndex {
	if collection == "" {
		collection = MilvusCollectionName(spec.Name)
	}
	return &MilvusIndex{
		spec:       spec,
		collection: collection,
		client:     client,
	}
}

// MilvusCollectionName 返回索引名对应的集合名。
func MilvusCollectionName(index string) string {
	return strings.ReplaceAll(index, "-", "_")
}

func (m *MilvusIndex) Exists(ctx context.Context) (bool, error) {
	return m.client.HasCollection(ctx, m.collection)
}

func (m *MilvusIndex) Create(ctx context.Context) error {
	return m.client.CreateCollection(ctx, &milvus.CollectionSchema{
		Name:        m.collection,
		Description: "knowledge base sections",
		Dimension:   m.spec.Dimension,
		Metric:      milvusMetric(m.spec.Metric),
		IDMaxLen:    64,
		Fields: []milvus.MetaField{
			{Name: milvusFieldContent, DataType: entity.FieldTypeVarChar, MaxLen: milvusContentMaxLen},
			{Name: milvusFieldMetadata, DataType: entity.FieldTypeJSON},
		},
	})
}

func (m *MilvusIndex) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	vectors := make([][]float32, len(records))
	contents := make([]string, len(records))
	metas := make([][]byte, len(records))

	for i, r := range records {
		if len(r.Vector) != m.spec.Dimension {
			return fmt.Errorf("record %s: %w", r.ID, ErrDimensionMismatch)
		}
		ids[i] = r.ID
		vectors[i] = r.Vector
		contents[i], _ = r.Metadata[MetadataContentKey].(string)

		data, err := json.Marshal(copyMetadata(r.Metadata, MetadataContentKey))
		if err != nil {
			return fmt.Errorf("record %s: encode metadata: %w", r.ID, err)
		}
		metas[i] = data
	}

	_, err := m.client.Upsert(ctx, m.collection,
		column.NewColumnVarChar(milvus.FieldID, ids),
		column.NewColumnFloatVector(milvus.FieldVector, m.spec.Dimension, vectors),
		column.NewColumnVarChar(milvusFieldContent, contents),
		column.NewColumnJSONBytes(milvusFieldMetadata, metas),
	)
	return err
}

func (m *MilvusIndex) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	hits, err := m.client.Search(ctx, m.collection, vector, topK, []string{milvusFieldContent, milvusFieldMetadata})
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		metadata := make(map[string]any)
		if raw, ok := hit.Fields[milvusFieldMetadata].([]byte); ok && len(raw) > 0 {
			if err := json.Unmarshal(raw, &metadata); err != nil {
				return nil, fmt.Errorf("record %s: decode metadata: %w", hit.ID, err)
			}
		}
		if content, ok := hit.Fields[milvusFieldContent].(string); ok {
			metadata[MetadataContentKey] = content
		}
		matches = append(matches, Match{ID: hit.ID, Score: hit.Score, Metadata: metadata})
	}
	return matches, nil
}

func (m *MilvusIndex) Stats(ctx context.Context) (*IndexStats, error) {
	n, err := m.client.RowCount(ctx, m.collection)
	if err != nil {
		return nil, err
	}
	return &IndexStats{
		TotalVectorCount: n,
		Dimension:        m.spec.Dimension,
		Namespaces:       map[string]int64{"": n},
	}, nil
}

func (m *MilvusIndex) Close(ctx context.Context) error {
	return m.client.Close(ctx)
}

func milvusMetric(metric Metric) entity.MetricType {
	switch metric {
	case MetricEuclidean:
		return entity.L2
	case MetricDot:
		return entity.IP
	default:
		return entity.COSINE
	}
}
