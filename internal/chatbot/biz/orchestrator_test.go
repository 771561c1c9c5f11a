package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/kb-chatbot/internal/chatbot/metrics"
	"github.com/kart-io/kb-chatbot/internal/chatbot/store"
	"github.com/kart-io/kb-chatbot/pkg/llm"
)

type stubRetriever struct {
	results []store.SearchResult
	err     error
	calls   int
	topK    int
}

func (r *stubRetriever) SearchSimilar(_ context.Context, _ string, topK int) ([]store.SearchResult, error) {
	r.calls++
	r.topK = topK
	return r.results, r.err
}

type stubChat struct {
	content  string
	err      error
	calls    int
	messages []llm.Message
	opts     llm.CallOptions
}

func (c *stubChat) Chat(_ context.Context, messages []llm.Message, opts ...llm.CallOption) (*llm.GenerateResponse, error) {
	c.calls++
	c.messages = messages
	c.opts = llm.ApplyCallOptions(opts...)
	if c.err != nil {
		return nil, c.err
	}
	return &llm.GenerateResponse{
		Content:    c.content,
		TokenUsage: &llm.TokenUsage{PromptTokens: 12, CompletionTokens: 3},
	}, nil
}

func (c *stubChat) Name() string { return "stub" }

var persona = Persona{Name: "Ava", Company: "Acme"}

func faqResults() []store.SearchResult {
	return []store.SearchResult{
		{ID: "1", Content: "We offer free shipping on orders over $50.", Score: 0.9, Metadata: map[string]any{"source": "faq.txt", "section": 2}},
		{ID: "2", Content: "Returns within 30 days.", Score: 0.5, Metadata: map[string]any{}},
	}
}

func TestGenerateResponse_Answered(t *testing.T) {
	r := &stubRetriever{results: faqResults()}
	c := &stubChat{content: "Shipping is free over $50."}
	m := metrics.New()
	o := NewOrchestrator(r, c, persona, DefaultConfig(), m)

	history := []llm.Message{{Role: llm.RoleUser, Content: "hi"}, {Role: llm.RoleAssistant, Content: "hello"}}
	reply, err := o.GenerateResponse(context.Background(), "Do you ship for free?", history)
	require.NoError(t, err)

	assert.Equal(t, OutcomeAnswered, reply.Outcome)
	assert.Equal(t, "Shipping is free over $50.", reply.Text)
	assert.Equal(t, []string{"faq.txt", "Document 2"}, reply.Sources)

	assert.Equal(t, 1, r.calls)
	assert.Equal(t, 3, r.topK)
	assert.Equal(t, 1, c.calls)
	require.NotNil(t, c.opts.Temperature)
	assert.InDelta(t, 0.7, *c.opts.Temperature, 1e-9)
	assert.Equal(t, 500, c.opts.MaxTokens)

	require.Len(t, c.messages, 4)
	assert.Equal(t, llm.RoleSystem, c.messages[0].Role)
	assert.Contains(t, c.messages[0].Content, "Document 1:\nWe offer free shipping on orders over $50.")
	assert.Equal(t, "hi", c.messages[1].Content)
	assert.Equal(t, "hello", c.messages[2].Content)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "Do you ship for free?"}, c.messages[3])

	queries := m.Stats()["queries"].(map[string]uint64)
	assert.EqualValues(t, 1, queries["answered"])
}

func TestGenerateResponse_NoContextSkipsModel(t *testing.T) {
	r := &stubRetriever{}
	c := &stubChat{content: "unused"}
	o := NewOrchestrator(r, c, persona, DefaultConfig(), nil)

	reply, err := o.GenerateResponse(context.Background(), "What is the meaning of life?", nil)
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoContext, reply.Outcome)
	assert.Equal(t, persona.NoContextReply(), reply.Text)
	assert.NotNil(t, reply.Sources)
	assert.Empty(t, reply.Sources)
	assert.Equal(t, 0, c.calls)
}

func TestGenerateResponse_Fallback(t *testing.T) {
	tests := []struct {
		name      string
		retriever *stubRetriever
		chat      *stubChat
		chatCalls int
	}{
		{
			name:      "retrieval error",
			retriever: &stubRetriever{err: errors.New("index unavailable")},
			chat:      &stubChat{content: "unused"},
			chatCalls: 0,
		},
		{
			name:      "model error",
			retriever: &stubRetriever{results: faqResults()},
			chat:      &stubChat{err: errors.New("rate limited")},
			chatCalls: 1,
		},
		{
			name:      "empty completion",
			retriever: &stubRetriever{results: faqResults()},
			chat:      &stubChat{},
			chatCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			o := NewOrchestrator(tt.retriever, tt.chat, persona, DefaultConfig(), m)

			reply, err := o.GenerateResponse(context.Background(), "Do you ship?", nil)
			require.NoError(t, err)
			assert.Equal(t, OutcomeFallback, reply.Outcome)
			assert.Equal(t, persona.ApologyReply(), reply.Text)
			assert.Empty(t, reply.Sources)
			assert.Equal(t, tt.chatCalls, tt.chat.calls)

			queries := m.Stats()["queries"].(map[string]uint64)
			assert.EqualValues(t, 1, queries["fallback"])
		})
	}
}

func TestGenerateResponse_InvalidQuestion(t *testing.T) {
	r := &stubRetriever{results: faqResults()}
	c := &stubChat{content: "x"}
	o := NewOrchestrator(r, c, persona, DefaultConfig(), nil)

	for _, q := range []string{"", "   \n\t"} {
		_, err := o.GenerateResponse(context.Background(), q, nil)
		assert.ErrorIs(t, err, ErrInvalidQuestion)
	}
	assert.Equal(t, 0, r.calls)
	assert.Equal(t, 0, c.calls)

	var nilOrchestrator *Orchestrator
	_, err := nilOrchestrator.GenerateResponse(context.Background(), "q", nil)
	assert.ErrorIs(t, err, ErrInvalidQuestion)

	_, err = NewOrchestrator(nil, c, persona, DefaultConfig(), nil).GenerateResponse(context.Background(), "q", nil)
	assert.ErrorIs(t, err, ErrInvalidQuestion)
}

func TestGenerateResponse_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &stubRetriever{err: context.Canceled}
	o := NewOrchestrator(r, &stubChat{content: "x"}, persona, DefaultConfig(), nil)

	reply, err := o.GenerateResponse(ctx, "Do you ship?", nil)
	assert.Nil(t, reply)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "answered", OutcomeAnswered.String())
	assert.Equal(t, "no_context", OutcomeNoContext.String())
	assert.Equal(t, "fallback", OutcomeFallback.String())
}
