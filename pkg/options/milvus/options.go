// Package milvusopts provides options for the Milvus index backend.
package milvusopts

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/kb-chatbot/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains Milvus connection and collection settings.
type Options struct {
	// Address is the Milvus server address (host:port or https URL for Zilliz Cloud).
	Address string `json:"address" mapstructure:"address"`

	// Database is the database name to use.
	Database string `json:"database" mapstructure:"database"`

	Username string `json:"username" mapstructure:"username"`
	Password string `json:"-" mapstructure:"password"`

	// APIKey authenticates against Zilliz Cloud instead of username/password.
	APIKey string `json:"-" mapstructure:"api-key"`

	// TLS enables TLS on the connection.
	TLS bool `json:"tls" mapstructure:"tls"`

	// Collection overrides the collection derived from the index name.
	Collection string `json:"collection" mapstructure:"collection"`

	// Timeout bounds connection setup.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Address:  "localhost:19530",
		Database: "default",
		Timeout:  30 * time.Second,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(append(prefixes, "milvus")...)
	fs.StringVar(&o.Address, p+"address", o.Address, "Milvus server address.")
	fs.StringVar(&o.Database, p+"database", o.Database, "Milvus database name.")
	fs.StringVar(&o.Username, p+"username", o.Username, "Milvus username.")
	fs.StringVar(&o.Password, p+"password", o.Password, "Milvus password.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "Zilliz Cloud API key, used instead of username and password.")
	fs.BoolVar(&o.TLS, p+"tls", o.TLS, "Connect with TLS.")
	fs.StringVar(&o.Collection, p+"collection", o.Collection, "Collection name (default: index name with '-' replaced by '_').")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Connection timeout.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Address == "" {
		errs = append(errs, fmt.Errorf("index.milvus.address is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("index.milvus.timeout must be positive"))
	}
	if strings.Contains(o.Collection, "-") {
		errs = append(errs, fmt.Errorf("index.milvus.collection %q must not contain '-'", o.Collection))
	}
	if o.APIKey != "" && o.Username != "" {
		errs = append(errs, fmt.Errorf("index.milvus.api-key and index.milvus.username are mutually exclusive"))
	}
	return errs
}
