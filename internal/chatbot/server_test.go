package chatbot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/kb-chatbot/internal/chatbot/loader"
	"github.com/kart-io/kb-chatbot/pkg/llm"
	cacheopts "github.com/kart-io/kb-chatbot/pkg/options/cache"
	chatbotopts "github.com/kart-io/kb-chatbot/pkg/options/chatbot"
	httpopts "github.com/kart-io/kb-chatbot/pkg/options/http"
	indexopts "github.com/kart-io/kb-chatbot/pkg/options/index"
	llmopts "github.com/kart-io/kb-chatbot/pkg/options/llm"
	logopts "github.com/kart-io/kb-chatbot/pkg/options/logger"
)

const faqText = `Returns accepted within 30 days.

Shipping takes 3-5 business days.
`

// keywordEmbedder maps text onto (ship, return, bias) counts.
type keywordEmbedder struct{}

func (keywordEmbedder) Name() string { return "keyword" }

func (e keywordEmbedder) EmbedSingle(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	return []float32{
		float32(strings.Count(lower, "ship")),
		float32(strings.Count(lower, "return")),
		1,
	}, nil
}

func (e keywordEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.EmbedSingle(ctx, t)
	}
	return out, nil
}

// recordingChat remembers the messages of the last call.
type recordingChat struct {
	mu       sync.Mutex
	calls    int
	messages []llm.Message
}

func (c *recordingChat) Name() string { return "recording" }

func (c *recordingChat) Chat(_ context.Context, messages []llm.Message, _ ...llm.CallOption) (*llm.GenerateResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.messages = messages
	return &llm.GenerateResponse{Content: "Shipping takes 3-5 business days."}, nil
}

var testChat = &recordingChat{}

func init() {
	llm.RegisterEmbeddingProvider("keyword", func(map[string]any) (llm.EmbeddingProvider, error) {
		return keywordEmbedder{}, nil
	})
	llm.RegisterChatProvider("recording", func(map[string]any) (llm.ChatProvider, error) {
		return testChat, nil
	})
}

func testConfig() *Config {
	index := indexopts.NewOptions()
	index.Backend = indexopts.BackendMemory
	index.Dimension = 3

	embedding := llmopts.NewEmbeddingOptions()
	embedding.Provider = "keyword"
	chat := llmopts.NewChatOptions()
	chat.Provider = "recording"

	bot := chatbotopts.NewOptions()
	bot.Name = "Ava"
	bot.Company = "Acme"
	bot.TopK = 1

	logs := logopts.NewOptions()
	logs.Level = "ERROR"

	return &Config{
		StoreConfig: StoreConfig{
			IndexOptions:     index,
			EmbeddingOptions: embedding,
			CacheOptions:     cacheopts.NewOptions(),
		},
		HTTPOptions:     httpopts.NewOptions(),
		LogOptions:      logs,
		ChatbotOptions:  bot,
		ChatOptions:     chat,
		ShutdownTimeout: time.Second,
	}
}

func TestFAQEndToEnd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "faq.txt"), []byte(faqText), 0o600))

	ctx := context.Background()
	srv, err := testConfig().NewServer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.resources.Close(ctx) })

	// Ingest.
	sections, err := loader.LoadDirectory(dir)
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, 1, sections[0].Index())
	assert.Equal(t, 2, sections[1].Index())

	n, err := srv.resources.Store.AddDocuments(ctx, loader.Documents(sections))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Retrieve.
	results, err := srv.resources.Store.SearchSimilar(ctx, "How long does shipping take?", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Shipping takes 3-5 business days.", results[0].Content)
	assert.EqualValues(t, 2, results[0].Metadata[loader.MetaSection])
	assert.Equal(t, "faq.txt", results[0].Source())

	// Answer over HTTP.
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"How long does shipping take?"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.http.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"response":"Shipping takes 3-5 business days.","sources":["faq.txt"]}`, w.Body.String())

	testChat.mu.Lock()
	defer testChat.mu.Unlock()
	require.Len(t, testChat.messages, 2)
	assert.Equal(t, llm.RoleSystem, testChat.messages[0].Role)
	assert.Contains(t, testChat.messages[0].Content, "Shipping takes 3-5 business days.")
	assert.NotContains(t, testChat.messages[0].Content, "Returns accepted within 30 days.")
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "How long does shipping take?"}, testChat.messages[1])
}

func TestStoreConfigUnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.IndexOptions.Backend = "faiss"

	_, err := cfg.StoreConfig.Open(context.Background())
	assert.ErrorContains(t, err, `unknown index backend "faiss"`)
}

func TestStoreConfigCacheFallsBackWhenRedisDown(t *testing.T) {
	cfg := testConfig()
	cfg.CacheOptions.Enabled = true
	cfg.CacheOptions.Redis.Host = "127.0.0.1"
	cfg.CacheOptions.Redis.Port = 1
	cfg.CacheOptions.Redis.DialTimeout = 100 * time.Millisecond
	cfg.CacheOptions.Redis.MaxRetries = -1

	res, err := cfg.StoreConfig.Open(context.Background())
	require.NoError(t, err)
	defer res.Close(context.Background())

	n, err := res.Store.AddDocuments(context.Background(), loader.Documents(loader.Split(faqText, "faq.txt", "faq.txt")))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
