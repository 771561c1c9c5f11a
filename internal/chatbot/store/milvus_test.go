package store

import (
	"context"
	"testing"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/kb-chatbot/pkg/component/milvus"
)

type fakeMilvus struct {
	collections map[string]*milvus.CollectionSchema
	upserted    []column.Column
	hits        []milvus.SearchResult
	searchTopK  int
	outputs     []string
	rows        int64
	closed      bool
}

func (f *fakeMilvus) HasCollection(_ context.Context, name string) (bool, error) {
	_, ok := f.collections[name]
	return ok, nil
}

func (f *fakeMilvus) CreateCollection(_ context.Context, schema *milvus.CollectionSchema) error {
	if f.collections == nil {
		f.collections = make(map[string]*milvus.CollectionSchema)
	}
	f.collections[schema.Name] = schema
	return nil
}

func (f *fakeMilvus) Upsert(_ context.Context, _ string, columns ...column.Column) (int64, error) {
	f.upserted = columns
	return int64(columns[0].Len()), nil
}

func (f *fakeMilvus) Search(_ context.Context, _ string, _ []float32, topK int, outputFields []string) ([]milvus.SearchResult, error) {
	f.searchTopK = topK
	f.outputs = outputFields
	return f.hits, nil
}

func (f *fakeMilvus) RowCount(context.Context, string) (int64, error) { return f.rows, nil }

func (f *fakeMilvus) Close(context.Context) error {
	f.closed = true
	return nil
}

func TestMilvusCollectionName(t *testing.T) {
	assert.Equal(t, "chatbot_knowledge_base", MilvusCollectionName("chatbot-knowledge-base"))
}

func TestMilvusIndex_CollectionOverride(t *testing.T) {
	f := &fakeMilvus{}
	idx := newMilvusIndex(testSpec(), f, "support_faq")

	require.NoError(t, idx.Create(context.Background()))
	assert.Contains(t, f.collections, "support_faq")
	assert.NotContains(t, f.collections, "chatbot_knowledge_base")
}

func TestMilvusIndex_CreateSchema(t *testing.T) {
	f := &fakeMilvus{}
	idx := newMilvusIndex(testSpec(), f, "")
	ctx := context.Background()

	exists, err := idx.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, idx.Create(ctx))
	schema := f.collections["chatbot_knowledge_base"]
	require.NotNil(t, schema)
	assert.Equal(t, 3, schema.Dimension)
	assert.Equal(t, entity.COSINE, schema.Metric)
	require.Len(t, schema.Fields, 2)
	assert.Equal(t, entity.FieldTypeJSON, schema.Fields[1].DataType)

	exists, err = idx.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMilvusIndex_UpsertColumns(t *testing.T) {
	f := &fakeMilvus{}
	idx := newMilvusIndex(testSpec(), f, "")

	err := idx.Upsert(context.Background(), []Record{
		{ID: "a", Vector: []float32{1, 0, 0}, Metadata: map[string]any{"content": "alpha", "source": "faq.txt"}},
		{ID: "b", Vector: []float32{0, 1, 0}, Metadata: map[string]any{"content": "beta"}},
	})
	require.NoError(t, err)
	require.Len(t, f.upserted, 4)

	ids, ok := f.upserted[0].(*column.ColumnVarChar)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, ids.Data())

	contents, ok := f.upserted[2].(*column.ColumnVarChar)
	require.True(t, ok)
	assert.Equal(t, []string{"alpha", "beta"}, contents.Data())

	metas, ok := f.upserted[3].(*column.ColumnJSONBytes)
	require.True(t, ok)
	assert.JSONEq(t, `{"source":"faq.txt"}`, string(metas.Data()[0]))
	assert.JSONEq(t, `{}`, string(metas.Data()[1]))
}

func TestMilvusIndex_UpsertDimensionMismatch(t *testing.T) {
	idx := newMilvusIndex(testSpec(), &fakeMilvus{}, "")
	err := idx.Upsert(context.Background(), []Record{{ID: "a", Vector: []float32{1}}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMilvusIndex_QueryRestoresMetadata(t *testing.T) {
	f := &fakeMilvus{hits: []milvus.SearchResult{
		{ID: "a", Score: 0.8, Fields: map[string]any{"content": "alpha", "metadata": []byte(`{"source":"faq.txt","section":2}`)}},
		{ID: "b", Score: 0.4, Fields: map[string]any{"content": "beta"}},
	}}
	idx := newMilvusIndex(testSpec(), f, "")

	matches, err := idx.Query(context.Background(), []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, 3, f.searchTopK)
	assert.ElementsMatch(t, []string{"content", "metadata"}, f.outputs)
	assert.Equal(t, "alpha", matches[0].Metadata["content"])
	assert.Equal(t, "faq.txt", matches[0].Metadata["source"])
	assert.EqualValues(t, 2, matches[0].Metadata["section"])
	assert.Equal(t, map[string]any{"content": "beta"}, matches[1].Metadata)
}

func TestMilvusIndex_StatsAndClose(t *testing.T) {
	f := &fakeMilvus{rows: 12}
	idx := newMilvusIndex(testSpec(), f, "")

	stats, err := idx.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 12, stats.TotalVectorCount)

	require.NoError(t, idx.Close(context.Background()))
	assert.True(t, f.closed)
}
