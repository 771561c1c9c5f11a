package biz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/kb-chatbot/internal/chatbot/metrics"
	"github.com/kart-io/kb-chatbot/internal/chatbot/store"
	"github.com/kart-io/kb-chatbot/pkg/llm"
)

// ErrInvalidQuestion 问题为空或编排器未初始化。
var ErrInvalidQuestion = errors.New("biz: invalid question")

// Outcome 回复类别。
type Outcome int

const (
	// OutcomeAnswered 模型基于检索上下文给出回答。
	OutcomeAnswered Outcome = iota
	// OutcomeNoContext 检索无结果，未调用模型。
	OutcomeNoContext
	// OutcomeFallback 检索或生成失败，返回道歉回复。
	OutcomeFallback
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAnswered:
		return "answered"
	case OutcomeNoContext:
		return "no_context"
	case OutcomeFallback:
		return "fallback"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Reply 一次问答的结果。Sources 不为 nil。
type Reply struct {
	Text    string
	Sources []string
	Outcome Outcome
}

// Retriever 相似度检索，由 store.VectorStore 实现。
type Retriever interface {
	SearchSimilar(ctx context.Context, query string, topK int) ([]store.SearchResult, error)
}

// Config 编排器参数。
type Config struct {
	TopK        int
	Temperature float64
	MaxTokens   int
}

// DefaultConfig 返回默认参数：topK=3，temperature=0.7，max_tokens=500。
func DefaultConfig() Config {
	return Config{TopK: 3, Temperature: 0.7, MaxTokens: 500}
}

// Orchestrator 检索增强生成的编排器，无可变状态，可并发使用。
type Orchestrator struct {
	retriever Retriever
	chat      llm.ChatProvider
	persona   Persona
	cfg       Config
	metrics   *metrics.Metrics
}

// NewOrchestrator 创建编排器。m 可以为 nil。
func NewOrchestrator(retriever Retriever, chat llm.ChatProvider, persona Persona, cfg Config, m *metrics.Metrics) *Orchestrator {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	return &Orchestrator{
		retriever: retriever,
		chat:      chat,
		persona:   persona,
		cfg:       cfg,
		metrics:   m,
	}
}

// Persona 返回机器人人设。
func (o *Orchestrator) Persona() Persona {
	return o.persona
}

// GenerateResponse 检索相关文档并生成回答。
//
// 检索、提示词构建与模型调用中的错误转换为 OutcomeFallback 回复；
// 空问题或编排器未初始化返回 ErrInvalidQuestion；调用方 ctx 取消时返回 ctx 错误。
func (o *Orchestrator) GenerateResponse(ctx context.Context, question string, history []llm.Message) (*Reply, error) {
	if o == nil || o.retriever == nil || o.chat == nil {
		return nil, fmt.Errorf("%w: orchestrator is not initialized", ErrInvalidQuestion)
	}
	if strings.TrimSpace(question) == "" {
		o.record(metrics.OutcomeRejected)
		return nil, fmt.Errorf("%w: question is empty", ErrInvalidQuestion)
	}

	// 1. 检索
	start := time.Now()
	docs, err := o.retriever.SearchSimilar(ctx, question, o.cfg.TopK)
	if o.metrics != nil {
		o.metrics.RecordRetrieval(time.Since(start), err)
	}
	if err != nil {
		return o.fallback(ctx, "retrieve", err)
	}
	if len(docs) == 0 {
		logger.Infow("no relevant documents", "question_len", len(question))
		o.record(metrics.OutcomeNoContext)
		return &Reply{Text: o.persona.NoContextReply(), Sources: []string{}, Outcome: OutcomeNoContext}, nil
	}

	// 2. 构建提示词并组装消息
	systemPrompt := BuildSystemPrompt(o.persona, docs, question)
	messages := AssembleMessages(systemPrompt, history, question)

	// 3. 调用模型
	start = time.Now()
	resp, err := o.chat.Chat(ctx, messages,
		llm.WithTemperature(o.cfg.Temperature),
		llm.WithMaxTokens(o.cfg.MaxTokens),
	)
	if err == nil && (resp == nil || resp.Content == "") {
		err = llm.ErrEmptyResponse
	}
	if o.metrics != nil {
		var prompt, completion int
		if resp != nil && resp.TokenUsage != nil {
			prompt, completion = resp.TokenUsage.PromptTokens, resp.TokenUsage.CompletionTokens
		}
		o.metrics.RecordLLMCall(time.Since(start), prompt, completion, err)
	}
	if err != nil {
		return o.fallback(ctx, "generate", err)
	}

	o.record(metrics.OutcomeAnswered)
	return &Reply{Text: resp.Content, Sources: Sources(docs), Outcome: OutcomeAnswered}, nil
}

// fallback 将供应商错误转换为道歉回复；调用方取消时返回取消错误。
func (o *Orchestrator) fallback(ctx context.Context, stage string, err error) (*Reply, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s: %w", stage, ctxErr)
	}

	logger.Errorw("failed to answer question", "stage", stage, "error", err.Error())
	o.record(metrics.OutcomeFallback)
	return &Reply{Text: o.persona.ApologyReply(), Sources: []string{}, Outcome: OutcomeFallback}, nil
}

func (o *Orchestrator) record(outcome metrics.Outcome) {
	if o.metrics != nil {
		o.metrics.RecordQuery(outcome)
	}
}
