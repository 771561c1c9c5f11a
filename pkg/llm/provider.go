// Package llm 提供 Embedding 与 Chat 供应商的统一抽象。
package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrEmptyResponse 表示供应商返回了无法使用的响应（无 choices、向量缺失等）。
var ErrEmptyResponse = errors.New("llm: empty response from provider")

// EmbeddingProvider 定义 Embedding 供应商接口。
type EmbeddingProvider interface {
	// Embed 为多个文本生成向量，返回顺序与输入一致。
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle 为单个文本生成向量。
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Name 返回供应商名称。
	Name() string
}

// ChatProvider 定义 Chat 供应商接口。
type ChatProvider interface {
	// Chat 以完整消息序列发起一次对话补全。
	Chat(ctx context.Context, messages []Message, opts ...CallOption) (*GenerateResponse, error)

	// Name 返回供应商名称。
	Name() string
}

// Provider 同时支持 Embedding 和 Chat 的供应商。
type Provider interface {
	EmbeddingProvider
	ChatProvider
}

// Role 定义消息角色。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 表示对话中的一条消息。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TokenUsage 记录一次调用的 token 消耗。
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerateResponse 是一次 Chat 调用的结果。
type GenerateResponse struct {
	Content      string      `json:"content"`
	FinishReason string      `json:"finish_reason,omitempty"`
	TokenUsage   *TokenUsage `json:"token_usage,omitempty"`
}

// 工厂函数类型。
type (
	ProviderFactory          func(config map[string]any) (Provider, error)
	EmbeddingProviderFactory func(config map[string]any) (EmbeddingProvider, error)
	ChatProviderFactory      func(config map[string]any) (ChatProvider, error)
)

type providerRegistry struct {
	mu                 sync.RWMutex
	providers          map[string]ProviderFactory
	embeddingProviders map[string]EmbeddingProviderFactory
	chatProviders      map[string]ChatProviderFactory
}

var registry = &providerRegistry{
	providers:          make(map[string]ProviderFactory),
	embeddingProviders: make(map[string]EmbeddingProviderFactory),
	chatProviders:      make(map[string]ChatProviderFactory),
}

// RegisterProvider 注册完整供应商工厂。
func RegisterProvider(name string, factory ProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.providers[name] = factory
}

// RegisterEmbeddingProvider 注册 Embedding 供应商工厂。
func RegisterEmbeddingProvider(name string, factory EmbeddingProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.embeddingProviders[name] = factory
}

// RegisterChatProvider 注册 Chat 供应商工厂。
func RegisterChatProvider(name string, factory ChatProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.chatProviders[name] = factory
}

// NewEmbeddingProvider 按名称创建 Embedding 供应商，专用工厂优先于完整供应商工厂。
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	registry.mu.RLock()
	factory, ok := registry.embeddingProviders[name]
	full, fullOK := registry.providers[name]
	registry.mu.RUnlock()

	switch {
	case ok:
		return factory(config)
	case fullOK:
		return full(config)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", name)
	}
}

// NewChatProvider 按名称创建 Chat 供应商，专用工厂优先于完整供应商工厂。
func NewChatProvider(name string, config map[string]any) (ChatProvider, error) {
	registry.mu.RLock()
	factory, ok := registry.chatProviders[name]
	full, fullOK := registry.providers[name]
	registry.mu.RUnlock()

	switch {
	case ok:
		return factory(config)
	case fullOK:
		return full(config)
	default:
		return nil, fmt.Errorf("unknown chat provider: %s", name)
	}
}

// ListProviders 返回已注册的供应商名称（去重、排序）。
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	seen := make(map[string]struct{})
	for name := range registry.providers {
		seen[name] = struct{}{}
	}
	for name := range registry.embeddingProviders {
		seen[name] = struct{}{}
	}
	for name := range registry.chatProviders {
		seen[name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
