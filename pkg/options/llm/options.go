// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/kb-chatbot/pkg/options"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions 定义 LLM 供应商配置。
type ProviderOptions struct {
	// Provider 供应商名称。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥，为空时读取 OPENAI_API_KEY。
	APIKey string `json:"-" mapstructure:"api-key"`

	// Model 使用的模型名称。
	Model string `json:"model" mapstructure:"model"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 5xx 或网络错误的重试次数，0 表示不重试。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// Organization 组织 ID（OpenAI 可选）。
	Organization string `json:"organization" mapstructure:"organization"`

	// group 是 flag 前缀，如 embedding、chat。
	group string
}

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOllamaBaseURL = "http://localhost:11434"
)

func newProviderOptions(group string) *ProviderOptions {
	return &ProviderOptions{
		Provider: "openai",
		BaseURL:  defaultOpenAIBaseURL,
		Timeout:  60 * time.Second,
		group:    group,
	}
}

// NewEmbeddingOptions 创建默认 Embedding 供应商配置。
// 查询向量处于聊天路径上，默认不重试，批量导入可单独开启。
func NewEmbeddingOptions() *ProviderOptions {
	opts := newProviderOptions("embedding")
	opts.Model = "text-embedding-ada-002"
	opts.MaxRetries = 0
	return opts
}

// NewChatOptions 创建默认 Chat 供应商配置，聊天调用不重试。
func NewChatOptions() *ProviderOptions {
	opts := newProviderOptions("chat")
	opts.Model = "gpt-4o-mini"
	opts.MaxRetries = 0
	return opts
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":     o.BaseURL,
		"api_key":      o.APIKey,
		"embed_model":  o.Model,
		"chat_model":   o.Model,
		"timeout":      o.Timeout,
		"max_retries":  o.MaxRetries,
		"organization": o.Organization,
	}
}

// AddFlags adds flags for LLM provider options to the specified FlagSet.
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(append(prefixes, o.group)...)
	fs.StringVar(&o.Provider, p+"provider", o.Provider, "Provider name.")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "Provider API base URL.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "Provider API key (defaults to OPENAI_API_KEY).")
	fs.StringVar(&o.Model, p+"model", o.Model, "Model name.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Request timeout.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Retries on network errors and 5xx responses.")
	fs.StringVar(&o.Organization, p+"organization", o.Organization, "Organization ID (optional).")
}

// Complete fills the API key from OPENAI_API_KEY when it is not set.
// An ollama provider left on the OpenAI base URL is pointed at the local daemon.
func (o *ProviderOptions) Complete() error {
	switch o.Provider {
	case "openai":
		if o.APIKey == "" {
			o.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "ollama":
		if o.BaseURL == defaultOpenAIBaseURL {
			o.BaseURL = defaultOllamaBaseURL
		}
	}
	return nil
}

// Validate validates the LLM provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("%s.provider is required", o.group))
	}
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("%s.base-url is required", o.group))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("%s.model is required", o.group))
	}
	if o.Provider == "openai" && o.APIKey == "" {
		errs = append(errs, fmt.Errorf("%s.api-key is required for openai provider (set OPENAI_API_KEY)", o.group))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s.timeout must be positive", o.group))
	}
	if o.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%s.max-retries must not be negative", o.group))
	}
	return errs
}
