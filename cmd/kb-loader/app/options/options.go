// Package options contains flags and options for the knowledge base loader.
package options

import (
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/kb-chatbot/internal/chatbot"
	cliflag "github.com/kart-io/kb-chatbot/pkg/app/cliflag"
	cacheopts "github.com/kart-io/kb-chatbot/pkg/options/cache"
	indexopts "github.com/kart-io/kb-chatbot/pkg/options/index"
	llmopts "github.com/kart-io/kb-chatbot/pkg/options/llm"
	logopts "github.com/kart-io/kb-chatbot/pkg/options/logger"
)

// LoaderOptions contains the configuration options for the loader.
type LoaderOptions struct {
	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// IndexOptions selects and configures the vector index backend.
	IndexOptions *indexopts.Options `json:"index" mapstructure:"index"`

	// CacheOptions contains embedding cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// Dir is the knowledge base directory.
	Dir string `json:"dir" mapstructure:"dir"`

	// DryRun only splits the files and reports the sections.
	DryRun bool `json:"dry-run" mapstructure:"dry-run"`

	// Watch keeps re-ingesting files after the initial load.
	Watch bool `json:"watch" mapstructure:"watch"`

	// Debounce coalesces bursts of change events for one file.
	Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
}

// bulkRetries is the default retry budget for ingestion calls. Nothing waits
// on the loader interactively, so transient 5xx responses are worth retrying.
const bulkRetries = 2

// NewLoaderOptions creates a LoaderOptions instance with default values.
func NewLoaderOptions() *LoaderOptions {
	o := &LoaderOptions{
		LogOptions:       logopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		IndexOptions:     indexopts.NewOptions(),
		CacheOptions:     cacheopts.NewOptions(),
		Dir:              "./knowledge_base",
		Debounce:         500 * time.Millisecond,
	}
	o.EmbeddingOptions.MaxRetries = bulkRetries
	o.IndexOptions.Pinecone.MaxRetries = bulkRetries
	return o
}

// Flags returns flags for the loader by section name.
func (o *LoaderOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"))
	o.IndexOptions.AddFlags(fss.FlagSet("index"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))

	fs := fss.FlagSet("loader")
	fs.StringVarP(&o.Dir, "dir", "d", o.Dir, "Knowledge base directory containing .txt files.")
	fs.BoolVar(&o.DryRun, "dry-run", o.DryRun, "Split the files and report the sections without embedding or indexing.")
	fs.BoolVarP(&o.Watch, "watch", "w", o.Watch, "Keep watching the directory and re-ingest files as they change.")
	fs.DurationVar(&o.Debounce, "debounce", o.Debounce, "Quiet period before a changed file is re-ingested.")

	return fss
}

// Complete completes all the required options.
func (o *LoaderOptions) Complete() error {
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.IndexOptions.Complete(); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Validate checks whether the options in LoaderOptions are valid.
// A dry run never reaches the embedding provider or the index, so their
// credentials are not required.
func (o *LoaderOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.LogOptions.Validate()...)
	if !o.DryRun {
		errs = append(errs, o.EmbeddingOptions.Validate()...)
		errs = append(errs, o.IndexOptions.Validate()...)
		errs = append(errs, o.CacheOptions.Validate()...)
	}
	if o.Dir == "" {
		errs = append(errs, fmt.Errorf("dir is required"))
	}
	if o.Watch && o.DryRun {
		errs = append(errs, fmt.Errorf("watch and dry-run are mutually exclusive"))
	}
	if o.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("debounce must be positive"))
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds a chatbot.LoaderConfig based on LoaderOptions.
func (o *LoaderOptions) Config() (*chatbot.LoaderConfig, error) {
	return &chatbot.LoaderConfig{
		StoreConfig: chatbot.StoreConfig{
			IndexOptions:     o.IndexOptions,
			EmbeddingOptions: o.EmbeddingOptions,
			CacheOptions:     o.CacheOptions,
		},
		LogOptions: o.LogOptions,
		Dir:        o.Dir,
		DryRun:     o.DryRun,
		Watch:      o.Watch,
		Debounce:   o.Debounce,
	}, nil
}
