// Package pinecone provides Pinecone connection options.
package pinecone

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/kb-chatbot/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains Pinecone connection configuration.
type Options struct {
	// APIKey defaults to PINECONE_API_KEY.
	APIKey string `json:"-" mapstructure:"api-key"`

	// ControllerURL is the control plane base URL.
	ControllerURL string `json:"controller-url" mapstructure:"controller-url"`

	// APIVersion is sent as X-Pinecone-API-Version.
	APIVersion string `json:"api-version" mapstructure:"api-version"`

	// Namespace scopes upserts and queries, empty means the default namespace.
	Namespace string `json:"namespace" mapstructure:"namespace"`

	Timeout      time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries   int           `json:"max-retries" mapstructure:"max-retries"`
	PollInterval time.Duration `json:"poll-interval" mapstructure:"poll-interval"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ControllerURL: "https://api.pinecone.io",
		APIVersion:    "2024-07",
		Timeout:       30 * time.Second,
		MaxRetries:    0,
		PollInterval:  time.Second,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "pinecone."
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "Pinecone API key (defaults to PINECONE_API_KEY).")
	fs.StringVar(&o.ControllerURL, p+"controller-url", o.ControllerURL, "Pinecone control plane URL.")
	fs.StringVar(&o.APIVersion, p+"api-version", o.APIVersion, "Pinecone API version header.")
	fs.StringVar(&o.Namespace, p+"namespace", o.Namespace, "Pinecone namespace.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Pinecone request timeout.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Retries on network errors and 5xx responses.")
	fs.DurationVar(&o.PollInterval, p+"poll-interval", o.PollInterval, "Interval between index readiness checks.")
}

// Complete fills the API key from PINECONE_API_KEY when it is not set.
func (o *Options) Complete() error {
	if o.APIKey == "" {
		o.APIKey = os.Getenv("PINECONE_API_KEY")
	}
	return nil
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.APIKey == "" {
		errs = append(errs, fmt.Errorf("pinecone api key is required (set PINECONE_API_KEY)"))
	}
	if o.ControllerURL == "" {
		errs = append(errs, fmt.Errorf("pinecone controller url is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("pinecone timeout must be positive"))
	}
	return errs
}
