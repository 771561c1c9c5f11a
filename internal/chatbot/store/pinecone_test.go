package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/kb-chatbot/pkg/utils/json"
)

// fakePinecone 模拟控制面与数据面，二者共用同一个地址。
type fakePinecone struct {
	t   *testing.T
	srv *httptest.Server

	mu          sync.Mutex
	created     bool
	readyAfter  int
	describes   int
	createCalls int
	upserts     [][]pineconeVector
	lastQuery   map[string]any
}

func newFakePinecone(t *testing.T) *fakePinecone {
	f := &fakePinecone{t: t}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePinecone) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	assert.Equal(f.t, "test-key", r.Header.Get("Api-Key"))
	assert.NotEmpty(f.t, r.Header.Get("X-Pinecone-API-Version"))

	write := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/indexes":
		indexes := []map[string]any{{"name": "other-index"}}
		if f.created {
			indexes = append(indexes, map[string]any{"name": "chatbot-knowledge-base"})
		}
		write(http.StatusOK, map[string]any{"indexes": indexes})

	case r.Method == http.MethodPost && r.URL.Path == "/indexes":
		f.createCalls++
		var body map[string]any
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(f.t, "chatbot-knowledge-base", body["name"])
		assert.EqualValues(f.t, 3, body["dimension"])
		assert.Equal(f.t, "cosine", body["metric"])
		if f.created {
			write(http.StatusConflict, map[string]any{"error": "ALREADY_EXISTS"})
			return
		}
		f.created = true
		write(http.StatusCreated, map[string]any{"name": body["name"]})

	case r.Method == http.MethodGet && r.URL.Path == "/indexes/chatbot-knowledge-base":
		if !f.created {
			write(http.StatusNotFound, map[string]any{"error": "NOT_FOUND"})
			return
		}
		f.describes++
		ready := f.describes > f.readyAfter
		write(http.StatusOK, map[string]any{
			"name":   "chatbot-knowledge-base",
			"host":   f.srv.URL,
			"status": map[string]any{"ready": ready, "state": map[bool]string{true: "Ready", false: "Initializing"}[ready]},
		})

	case r.Method == http.MethodPost && r.URL.Path == "/vectors/upsert":
		var body struct {
			Vectors []pineconeVector `json:"vectors"`
		}
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		f.upserts = append(f.upserts, body.Vectors)
		write(http.StatusOK, map[string]any{"upsertedCount": len(body.Vectors)})

	case r.Method == http.MethodPost && r.URL.Path == "/query":
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&f.lastQuery))
		write(http.StatusOK, map[string]any{
			"matches": []map[string]any{
				{"id": "a", "score": 0.91, "metadata": map[string]any{"content": "alpha", "source": "faq.txt", "section": 1}},
				{"id": "b", "score": 0.52, "metadata": map[string]any{"content": "beta"}},
			},
		})

	case r.Method == http.MethodPost && r.URL.Path == "/describe_index_stats":
		write(http.StatusOK, map[string]any{
			"namespaces":       map[string]any{"": map[string]any{"vectorCount": 7}},
			"dimension":        3,
			"indexFullness":    0.01,
			"totalVectorCount": 7,
		})

	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestPinecone(t *testing.T, f *fakePinecone) *PineconeIndex {
	t.Helper()
	idx, err := NewPineconeIndex(testSpec(), PineconeConfig{
		APIKey:        "test-key",
		ControllerURL: f.srv.URL,
		PollInterval:  5 * time.Millisecond,
	})
	require.NoError(t, err)
	return idx
}

func TestNewPineconeIndex_RequiresAPIKey(t *testing.T) {
	_, err := NewPineconeIndex(testSpec(), PineconeConfig{})
	assert.Error(t, err)
}

func TestPineconeIndex_EnsureCreatesOnce(t *testing.T) {
	f := newFakePinecone(t)
	f.readyAfter = 2
	idx := newTestPinecone(t, f)
	ctx := context.Background()

	s := NewVectorStore(idx, newTableEmbedder(3), WithIndexSpec(testSpec()))
	require.NoError(t, s.EnsureIndex(ctx))
	require.NoError(t, s.EnsureIndex(ctx))

	assert.Equal(t, 1, f.createCalls)
	assert.Equal(t, 3, f.describes)
}

func TestPineconeIndex_CreateConflictIsNotAnError(t *testing.T) {
	f := newFakePinecone(t)
	f.created = true
	idx := newTestPinecone(t, f)

	require.NoError(t, idx.Create(context.Background()))
}

func TestPineconeIndex_WaitReadyHonoursContext(t *testing.T) {
	f := newFakePinecone(t)
	f.readyAfter = 1 << 30
	idx := newTestPinecone(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := idx.Create(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPineconeIndex_UpsertChunks(t *testing.T) {
	f := newFakePinecone(t)
	idx := newTestPinecone(t, f)
	require.NoError(t, idx.Create(context.Background()))

	records := make([]Record, 250)
	for i := range records {
		records[i] = Record{ID: DocumentID(strconv.Itoa(i)), Vector: []float32{1, 0, 0}}
	}
	require.NoError(t, idx.Upsert(context.Background(), records))

	require.Len(t, f.upserts, 3)
	assert.Len(t, f.upserts[0], 100)
	assert.Len(t, f.upserts[1], 100)
	assert.Len(t, f.upserts[2], 50)
}

func TestPineconeIndex_QueryAndStats(t *testing.T) {
	f := newFakePinecone(t)
	idx := newTestPinecone(t, f)
	ctx := context.Background()
	require.NoError(t, idx.Create(ctx))

	s := NewVectorStore(idx, newTableEmbedder(3), WithIndexSpec(testSpec()))
	results, err := s.SearchSimilar(ctx, "question", 3)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "alpha", results[0].Content)
	assert.Equal(t, "faq.txt", results[0].Source())
	assert.InDelta(t, 0.91, results[0].Score, 1e-6)
	assert.Empty(t, results[1].Source())

	assert.EqualValues(t, 3, f.lastQuery["topK"])
	assert.Equal(t, true, f.lastQuery["includeMetadata"])

	stats, err := s.GetIndexStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 7, stats.TotalVectorCount)
	assert.EqualValues(t, 7, stats.Namespaces[""])
	assert.Equal(t, 3, stats.Dimension)
}

func TestPineconeIndex_DataPlaneWithoutIndex(t *testing.T) {
	f := newFakePinecone(t)
	idx := newTestPinecone(t, f)

	_, err := idx.Query(context.Background(), []float32{1, 0, 0}, 3)
	assert.ErrorIs(t, err, ErrIndexNotFound)
}
