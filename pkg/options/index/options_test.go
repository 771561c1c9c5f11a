package index

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Flags(t *testing.T) {
	o := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"--index.backend=milvus",
		"--index.milvus.address=milvus:19530",
		"--index.pinecone.namespace=faq",
		"--index.chromem.path=/tmp/kb",
	}))
	assert.Equal(t, BackendMilvus, o.Backend)
	assert.Equal(t, "milvus:19530", o.Milvus.Address)
	assert.Equal(t, "faq", o.Pinecone.Namespace)
	assert.Equal(t, "/tmp/kb", o.Chromem.Path)
}

func TestOptions_ValidateSelectedBackendOnly(t *testing.T) {
	t.Setenv("PINECONE_API_KEY", "")

	o := NewOptions()
	require.NoError(t, o.Complete())
	assert.NotEmpty(t, o.Validate())

	o.Backend = BackendMemory
	assert.Empty(t, o.Validate())

	o.Backend = "faiss"
	assert.Len(t, o.Validate(), 1)
}

func TestOptions_PineconeKeyFromEnv(t *testing.T) {
	t.Setenv("PINECONE_API_KEY", "pc-key")

	o := NewOptions()
	require.NoError(t, o.Complete())
	assert.Equal(t, "pc-key", o.Pinecone.APIKey)
	assert.Empty(t, o.Validate())
}

func TestOptions_MilvusValidation(t *testing.T) {
	o := NewOptions()
	o.Backend = BackendMilvus
	require.NoError(t, o.Complete())
	assert.Empty(t, o.Validate())

	o.Milvus.Collection = "chatbot-kb"
	o.Milvus.APIKey = "zilliz"
	o.Milvus.Username = "root"
	errs := o.Validate()
	require.Len(t, errs, 2)
	assert.ErrorContains(t, errs[0], "must not contain '-'")
	assert.ErrorContains(t, errs[1], "mutually exclusive")
}
