package chatbot

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/kb-chatbot/internal/chatbot/loader"
)

func testLoaderConfig(t *testing.T, dir string) (*LoaderConfig, *bytes.Buffer) {
	t.Helper()
	cfg := testConfig()
	out := &bytes.Buffer{}
	return &LoaderConfig{
		StoreConfig: cfg.StoreConfig,
		LogOptions:  cfg.LogOptions,
		Dir:         dir,
		Out:         out,
	}, out
}

func TestLoaderRun(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "faq.txt"), []byte(faqText), 0o600))

	cfg, out := testLoaderConfig(t, dir)
	require.NoError(t, cfg.Run(context.Background()))

	assert.Contains(t, out.String(), "Found 2 document sections to process")
	assert.Contains(t, out.String(), "2 sections upserted")
	assert.Contains(t, out.String(), `"total_vector_count":2`)
	assert.Contains(t, out.String(), `"dimension":3`)
}

func TestLoaderDryRun(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "faq.txt"), []byte(faqText), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "about.txt"), []byte("About: Acme sells widgets."), 0o600))

	cfg, out := testLoaderConfig(t, dir)
	cfg.DryRun = true
	// 空运行不打开存储
	cfg.IndexOptions.Backend = "faiss"
	require.NoError(t, cfg.Run(context.Background()))

	assert.Contains(t, out.String(), "Found 3 document sections to process")
	assert.Contains(t, out.String(), "  about.txt: 1 sections\n  faq.txt: 2 sections\n")
	assert.NotContains(t, out.String(), "upserted")
}

func TestLoaderMissingDirectory(t *testing.T) {
	cfg, out := testLoaderConfig(t, filepath.Join(t.TempDir(), "missing"))

	err := cfg.Run(context.Background())
	assert.ErrorIs(t, err, loader.ErrDirectoryNotFound)
	assert.NotContains(t, out.String(), "Found")
}

func TestLoaderEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o600))

	cfg, _ := testLoaderConfig(t, dir)
	assert.ErrorIs(t, cfg.Run(context.Background()), loader.ErrNoDocuments)
}

func TestLoaderStopsWatchingOnCancel(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "faq.txt"), []byte(faqText), 0o600))

	cfg, _ := testLoaderConfig(t, dir)
	cfg.Watch = true

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cfg.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("loader did not stop after cancellation")
	}
}
