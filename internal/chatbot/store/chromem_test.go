package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChromemIndex_RoundTrip(t *testing.T) {
	ctx := context.Background()
	idx, err := NewChromemIndex(testSpec(), "", false)
	require.NoError(t, err)

	exists, err := idx.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	emb := newTableEmbedder(3)
	emb.set("alpha", 1, 0, 0)
	emb.set("beta", 0, 1, 0)
	emb.set("query", 1, 0.1, 0)

	s, err := Open(ctx, idx, emb, WithIndexSpec(testSpec()))
	require.NoError(t, err)

	results, err := s.SearchSimilar(ctx, "query", 3)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = s.AddDocuments(ctx, []Document{
		{Content: "alpha", Metadata: map[string]any{"source": "faq.txt", "section": 1}},
		{Content: "beta", Metadata: map[string]any{"source": "faq.txt", "section": 2}},
	})
	require.NoError(t, err)

	results, err = s.SearchSimilar(ctx, "query", 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "alpha", results[0].Content)
	assert.Equal(t, "faq.txt", results[0].Source())
	assert.EqualValues(t, 1, results[0].Metadata["section"])

	stats, err := s.GetIndexStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalVectorCount)
}

func TestChromemIndex_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	idx, err := NewChromemIndex(testSpec(), dir, false)
	require.NoError(t, err)
	require.NoError(t, idx.Create(ctx))
	require.NoError(t, idx.Upsert(ctx, []Record{
		{ID: "a", Vector: []float32{1, 0, 0}, Metadata: map[string]any{"content": "alpha"}},
	}))

	reopened, err := NewChromemIndex(testSpec(), dir, false)
	require.NoError(t, err)
	exists, err := reopened.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	matches, err := reopened.Query(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "alpha", matches[0].Metadata[MetadataContentKey])
}

func TestChromemIndex_NotCreated(t *testing.T) {
	idx, err := NewChromemIndex(testSpec(), "", false)
	require.NoError(t, err)
	_, err = idx.Stats(context.Background())
	assert.ErrorIs(t, err, ErrIndexNotFound)
}
