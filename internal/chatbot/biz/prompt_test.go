package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/kb-chatbot/internal/chatbot/store"
	"github.com/kart-io/kb-chatbot/pkg/llm"
)

func TestBuildSystemPrompt(t *testing.T) {
	docs := []store.SearchResult{
		{Content: "Returns are accepted within 30 days."},
		{Content: "Shipping is free over $50."},
	}
	prompt := BuildSystemPrompt(Persona{Name: "Ava", Company: "Acme"}, docs, "Can I return this?")

	assert.Contains(t, prompt, "You are Ava, a helpful customer service assistant for Acme.")
	assert.Contains(t, prompt, "based ONLY on the provided context documents")
	assert.Contains(t, prompt, "redirect users to contact support")
	assert.Contains(t, prompt, "CONTEXT DOCUMENTS:\nDocument 1:\nReturns are accepted within 30 days.\n\nDocument 2:\nShipping is free over $50.")
	assert.Contains(t, prompt, "USER QUESTION: Can I return this?")
}

func TestAssembleMessages(t *testing.T) {
	history := []llm.Message{
		{Role: llm.RoleUser, Content: "h1"},
		{Role: llm.RoleAssistant, Content: "h2"},
		{Role: llm.RoleUser, Content: "h3"},
		{Role: llm.RoleAssistant, Content: "h4"},
		{Role: llm.RoleUser, Content: "h5"},
		{Role: llm.RoleAssistant, Content: "h6"},
	}

	tests := []struct {
		name    string
		history []llm.Message
		want    []string
	}{
		{name: "no history", want: []string{"sys", "q"}},
		{name: "short history", history: history[:2], want: []string{"sys", "h1", "h2", "q"}},
		{name: "keeps last four", history: history, want: []string{"sys", "h3", "h4", "h5", "h6", "q"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := AssembleMessages("sys", tt.history, "q")
			require.Len(t, msgs, len(tt.want))
			for i, m := range msgs {
				assert.Equal(t, tt.want[i], m.Content)
			}
			assert.Equal(t, llm.RoleSystem, msgs[0].Role)
			assert.Equal(t, llm.RoleUser, msgs[len(msgs)-1].Role)
		})
	}
}

func TestSources(t *testing.T) {
	docs := []store.SearchResult{
		{Metadata: map[string]any{"source": "faq.txt"}},
		{Metadata: map[string]any{}},
		{Metadata: map[string]any{"source": "faq.txt"}},
		{Metadata: map[string]any{"source": ""}},
		{Metadata: map[string]any{"source": 42}},
		{Metadata: map[string]any{"source": nil}},
	}
	assert.Equal(t, []string{"faq.txt", "Document 2", "faq.txt", "", "42", "Document 6"}, Sources(docs))
	assert.Empty(t, Sources(nil))
}

func TestPersonaReplies(t *testing.T) {
	p := Persona{Name: "Ava", Company: "Acme"}
	assert.Equal(t, "I don't have information about that in my knowledge base. Please contact Acme support for more help.", p.NoContextReply())
	assert.Equal(t, "I'm sorry, I encountered an error processing your question. Please try again or contact Acme support.", p.ApologyReply())
}
