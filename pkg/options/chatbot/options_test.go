package chatbot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_CompleteDefaults(t *testing.T) {
	t.Setenv("CHATBOT_NAME", "")
	t.Setenv("CHATBOT_COMPANY", "")

	o := NewOptions()
	require.NoError(t, o.Complete())
	assert.Equal(t, DefaultName, o.Name)
	assert.Equal(t, DefaultCompany, o.Company)
	assert.Empty(t, o.Validate())
}

func TestOptions_CompleteFromEnv(t *testing.T) {
	t.Setenv("CHATBOT_NAME", "Ava")
	t.Setenv("CHATBOT_COMPANY", "Acme")

	o := NewOptions()
	require.NoError(t, o.Complete())
	assert.Equal(t, "Ava", o.Name)
	assert.Equal(t, "Acme", o.Company)

	flagged := NewOptions()
	flagged.Name = "Bob"
	require.NoError(t, flagged.Complete())
	assert.Equal(t, "Bob", flagged.Name)
}

func TestOptions_Validate(t *testing.T) {
	o := NewOptions()
	o.TopK = 0
	o.Temperature = 3
	o.MaxTokens = 0
	assert.Len(t, o.Validate(), 3)
}
