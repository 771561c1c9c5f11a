package options

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderOptionsDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PINECONE_API_KEY", "pc-test")

	o := NewLoaderOptions()
	require.NoError(t, o.Complete())
	require.NoError(t, o.Validate())

	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Equal(t, "./knowledge_base", cfg.Dir)
	assert.False(t, cfg.DryRun)
	assert.False(t, cfg.Watch)
	assert.Equal(t, 500*time.Millisecond, cfg.Debounce)
	assert.Equal(t, "sk-test", cfg.EmbeddingOptions.APIKey)
	assert.Equal(t, "pc-test", cfg.IndexOptions.Pinecone.APIKey)
	assert.Equal(t, 2, cfg.EmbeddingOptions.MaxRetries)
	assert.Equal(t, 2, cfg.IndexOptions.Pinecone.MaxRetries)
}

func TestLoaderOptionsFlags(t *testing.T) {
	o := NewLoaderOptions()
	fss := o.Flags()

	assert.Equal(t, []string{"log", "embedding", "index", "cache", "loader"}, fss.Order)
	fs := fss.FlagSets["loader"]
	require.NoError(t, fs.Parse([]string{"-d", "/srv/kb", "--dry-run"}))
	assert.Equal(t, "/srv/kb", o.Dir)
	assert.True(t, o.DryRun)
}

func TestLoaderOptionsDryRunNeedsNoCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PINECONE_API_KEY", "")

	o := NewLoaderOptions()
	require.NoError(t, o.Complete())
	require.Error(t, o.Validate())

	o.DryRun = true
	assert.NoError(t, o.Validate())
}

func TestLoaderOptionsValidateAggregates(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PINECONE_API_KEY", "pc-test")

	o := NewLoaderOptions()
	o.Dir = ""
	o.Watch = true
	o.DryRun = true
	o.Debounce = 0
	require.NoError(t, o.Complete())

	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dir is required")
	assert.Contains(t, err.Error(), "mutually exclusive")
	assert.Contains(t, err.Error(), "debounce must be positive")
}
