// Package chatbot provides persona and answer generation options.
package chatbot

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/kart-io/kb-chatbot/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Default persona values.
const (
	DefaultName    = "Assistant"
	DefaultCompany = "Your Company"
)

// Options contains chatbot persona and generation parameters.
type Options struct {
	// Name is the persona name, defaults to CHATBOT_NAME.
	Name string `json:"name" mapstructure:"name"`

	// Company is the company the bot speaks for, defaults to CHATBOT_COMPANY.
	Company string `json:"company" mapstructure:"company"`

	// TopK is the number of sections retrieved per question.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// Temperature is the sampling temperature of the chat model.
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// MaxTokens caps the length of a reply.
	MaxTokens int `json:"max-tokens" mapstructure:"max-tokens"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		TopK:        3,
		Temperature: 0.7,
		MaxTokens:   500,
	}
}

// AddFlags adds flags for chatbot options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "chatbot."
	fs.StringVar(&o.Name, p+"name", o.Name, "Chatbot persona name (defaults to CHATBOT_NAME, then \"Assistant\").")
	fs.StringVar(&o.Company, p+"company", o.Company, "Company name (defaults to CHATBOT_COMPANY, then \"Your Company\").")
	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Number of knowledge base sections retrieved per question.")
	fs.Float64Var(&o.Temperature, p+"temperature", o.Temperature, "Chat model temperature.")
	fs.IntVar(&o.MaxTokens, p+"max-tokens", o.MaxTokens, "Maximum number of tokens in a reply.")
}

// Complete fills the persona from the environment, then from defaults.
func (o *Options) Complete() error {
	if o.Name == "" {
		o.Name = envOr("CHATBOT_NAME", DefaultName)
	}
	if o.Company == "" {
		o.Company = envOr("CHATBOT_COMPANY", DefaultCompany)
	}
	return nil
}

// Validate validates the chatbot options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("chatbot.top-k must be positive"))
	}
	if o.Temperature < 0 || o.Temperature > 2 {
		errs = append(errs, fmt.Errorf("chatbot.temperature must be between 0 and 2"))
	}
	if o.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("chatbot.max-tokens must be positive"))
	}
	return errs
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
