// Package options contains flags and options for initializing the chatbot server.
package options

import (
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/kb-chatbot/internal/chatbot"
	cliflag "github.com/kart-io/kb-chatbot/pkg/app/cliflag"
	cacheopts "github.com/kart-io/kb-chatbot/pkg/options/cache"
	chatbotopts "github.com/kart-io/kb-chatbot/pkg/options/chatbot"
	httpopts "github.com/kart-io/kb-chatbot/pkg/options/http"
	indexopts "github.com/kart-io/kb-chatbot/pkg/options/index"
	llmopts "github.com/kart-io/kb-chatbot/pkg/options/llm"
	logopts "github.com/kart-io/kb-chatbot/pkg/options/logger"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server and middleware configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// ChatbotOptions contains the persona and generation parameters.
	ChatbotOptions *chatbotopts.Options `json:"chatbot" mapstructure:"chatbot"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// IndexOptions selects and configures the vector index backend.
	IndexOptions *indexopts.Options `json:"index" mapstructure:"index"`

	// CacheOptions contains embedding cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:      httpopts.NewOptions(),
		LogOptions:       logopts.NewOptions(),
		ChatbotOptions:   chatbotopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		IndexOptions:     indexopts.NewOptions(),
		CacheOptions:     cacheopts.NewOptions(),
		ShutdownTimeout:  30 * time.Second,
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.ChatbotOptions.AddFlags(fss.FlagSet("chatbot"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"))
	o.ChatOptions.AddFlags(fss.FlagSet("chat"))
	o.IndexOptions.AddFlags(fss.FlagSet("index"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))

	fs := fss.FlagSet("misc")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")

	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.HTTPOptions.Complete(); err != nil {
		return err
	}
	if err := o.ChatbotOptions.Complete(); err != nil {
		return fmt.Errorf("chatbot: %w", err)
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := o.IndexOptions.Complete(); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.ChatbotOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.IndexOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)
	if o.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown-timeout must be positive"))
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds a chatbot.Config based on ServerOptions.
func (o *ServerOptions) Config() (*chatbot.Config, error) {
	return &chatbot.Config{
		StoreConfig: chatbot.StoreConfig{
			IndexOptions:     o.IndexOptions,
			EmbeddingOptions: o.EmbeddingOptions,
			CacheOptions:     o.CacheOptions,
		},
		HTTPOptions:     o.HTTPOptions,
		LogOptions:      o.LogOptions,
		ChatbotOptions:  o.ChatbotOptions,
		ChatOptions:     o.ChatOptions,
		ShutdownTimeout: o.ShutdownTimeout,
	}, nil
}
