// Package ollama 提供本地 Ollama 服务的 Embedding / Chat 供应商实现。
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kart-io/kb-chatbot/pkg/llm"
	"github.com/kart-io/kb-chatbot/pkg/utils/httpclient"
)

// ProviderName 是 Ollama 供应商的注册名。
const ProviderName = "ollama"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config Ollama 供应商配置。
type Config struct {
	BaseURL    string        `json:"base_url" mapstructure:"base_url"`
	EmbedModel string        `json:"embed_model" mapstructure:"embed_model"`
	ChatModel  string        `json:"chat_model" mapstructure:"chat_model"`
	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries int           `json:"max_retries" mapstructure:"max_retries"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:11434",
		EmbedModel: "nomic-embed-text",
		ChatModel:  "llama3.1",
		Timeout:    120 * time.Second,
		MaxRetries: 2,
	}
}

// Provider Ollama 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

var _ llm.Provider = (*Provider)(nil)

// NewProvider 从配置 map 创建 Ollama 供应商。
// OpenAI 风格的 base_url（以 /v1 结尾）会被还原为 Ollama 原生地址。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = strings.TrimSuffix(strings.TrimSuffix(v, "/"), "/v1")
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

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 Ollama 供应商。
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

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed 调用 /api/embed 为多个文本生成向量。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req, err := httpclient.NewJSONRequest(ctx, http.MethodPost, p.config.BaseURL+"/api/embed", embedRequest{
		Model: p.config.EmbedModel,
		Input: texts,
	})
	if err != nil {
		return nil, err
	}

	var resp embedResponse
	if err := p.client.DoJSON(req, &resp); err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d inputs: %w", len(resp.Embeddings), len(texts), llm.ErrEmptyResponse)
	}
	return resp.Embeddings, nil
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
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

// chatOptions 对应 Ollama 的 modelfile 参数。
type chatOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         llm.Message `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

// Chat 调用 /api/chat（非流式）。
func (p *Provider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (*llm.GenerateResponse, error) {
	callOpts := llm.ApplyCallOptions(opts...)

	body := chatRequest{
		Model:    p.config.ChatModel,
		Messages: messages,
	}
	if callOpts.Temperature != nil || callOpts.MaxTokens > 0 {
		body.Options = &chatOptions{Temperature: callOpts.Temperature, NumPredict: callOpts.MaxTokens}
	}

	req, err := httpclient.NewJSONRequest(ctx, http.MethodPost, p.config.BaseURL+"/api/chat", body)
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := p.client.DoJSON(req, &resp); err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}
	if !resp.Done || resp.Message.Content == "" {
		return nil, fmt.Errorf("ollama chat: %w", llm.ErrEmptyResponse)
	}

	return &llm.GenerateResponse{
		Content:      resp.Message.Content,
		FinishReason: resp.DoneReason,
		TokenUsage: &llm.TokenUsage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}, nil
}

// Ping 检查 Ollama 服务是否可用。
func (p *Provider) Ping(ctx context.Context) error {
	req, err := httpclient.NewJSONRequest(ctx, http.MethodGet, p.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	if err := p.client.DoJSON(req, nil); err != nil {
		return fmt.Errorf("ollama ping: %w", err)
	}
	return nil
}
