// Package openai 提供 OpenAI 及兼容 API 的 Embedding / Chat 供应商实现。
//
//	import _ "github.com/kart-io/kb-chatbot/pkg/llm/openai"
//
//	embedder, err := llm.NewEmbeddingProvider("openai", map[string]any{"api_key": key})
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kart-io/kb-chatbot/pkg/llm"
	"github.com/kart-io/kb-chatbot/pkg/utils/httpclient"
)

// ProviderName 是 OpenAI 供应商的注册名。
const ProviderName = "openai"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config OpenAI 供应商配置。
type Config struct {
	BaseURL      string        `json:"base_url" mapstructure:"base_url"`
	APIKey       string        `json:"api_key" mapstructure:"api_key"`
	EmbedModel   string        `json:"embed_model" mapstructure:"embed_model"`
	ChatModel    string        `json:"chat_model" mapstructure:"chat_model"`
	Timeout      time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries   int           `json:"max_retries" mapstructure:"max_retries"`
	Organization string        `json:"organization" mapstructure:"organization"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://api.openai.com/v1",
		EmbedModel: "text-embedding-ada-002",
		ChatModel:  "gpt-4o-mini",
		Timeout:    60 * time.Second,
		MaxRetries: 0,
	}
}

// Provider OpenAI 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

var _ llm.Provider = (*Provider)(nil)

// NewProvider 从配置 map 创建供应商，供注册表使用。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["api_key"].(string); ok && v != "" {
		cfg.APIKey = v
	}
	if v, ok := configMap["embed_model"].(string); ok && v != "" {
		cfg.EmbedModel = v
	}
	if v, ok := configMap["chat_model"].(string); ok && v != "" {
		cfg.ChatModel = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := configMap["max_retries"].(int); ok && v >= 0 {
		cfg.MaxRetries = v
	}
	if v, ok := configMap["organization"].(string); ok {
		cfg.Organization = v
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api_key is required")
	}
	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建供应商。
func NewProviderWithConfig(cfg *Config) *Provider {
	return &Provider{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// Embed 为多个文本生成向量，结果按响应中的 index 归位。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req, err := httpclient.NewJSONRequest(ctx, http.MethodPost, p.config.BaseURL+"/embeddings", embeddingRequest{
		Model: p.config.EmbedModel,
		Input: texts,
	})
	if err != nil {
		return nil, err
	}
	p.setHeaders(req)

	var resp embeddingResponse
	if err := p.client.DoJSON(req, &resp); err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(embeddings) {
			embeddings[d.Index] = d.Embedding
		}
	}
	for i, e := range embeddings {
		if len(e) == 0 {
			return nil, fmt.Errorf("openai embeddings: missing vector for input %d: %w", i, llm.ErrEmptyResponse)
		}
	}
	return embeddings, nil
}

// EmbedSingle 为单个文本生成向量。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      llm.Message `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage llm.TokenUsage `json:"usage"`
}

// Chat 调用 /chat/completions。
func (p *Provider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (*llm.GenerateResponse, error) {
	callOpts := llm.ApplyCallOptions(opts...)

	req, err := httpclient.NewJSONRequest(ctx, http.MethodPost, p.config.BaseURL+"/chat/completions", chatRequest{
		Model:       p.config.ChatModel,
		Messages:    messages,
		MaxTokens:   callOpts.MaxTokens,
		Temperature: callOpts.Temperature,
	})
	if err != nil {
		return nil, err
	}
	p.setHeaders(req)

	var resp chatResponse
	if err := p.client.DoJSON(req, &resp); err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat: %w", llm.ErrEmptyResponse)
	}

	usage := resp.Usage
	return &llm.GenerateResponse{
		Content:      resp.Choices[0].Message.Content,
		FinishReason: resp.Choices[0].FinishReason,
		TokenUsage:   &usage,
	}, nil
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	if p.config.Organization != "" {
		req.Header.Set("OpenAI-Organization", p.config.Organization)
	}
}
