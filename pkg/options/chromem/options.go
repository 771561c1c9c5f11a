// Package chromem provides options for the embedded chromem-go vector database.
package chromem

import (
	"github.com/spf13/pflag"

	"github.com/kart-io/kb-chatbot/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains chromem-go configuration.
type Options struct {
	// Path is the persistence directory, empty keeps the database in memory.
	Path string `json:"path" mapstructure:"path"`

	// Compress gzips persisted documents.
	Compress bool `json:"compress" mapstructure:"compress"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{Path: "./data/chromem"}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "chromem."
	fs.StringVar(&o.Path, p+"path", o.Path, "chromem persistence directory (empty for in-memory).")
	fs.BoolVar(&o.Compress, p+"compress", o.Compress, "Compress persisted chromem documents.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	return nil
}
