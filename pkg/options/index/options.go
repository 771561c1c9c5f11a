// Package index provides vector index selection and backend options.
package index

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/kb-chatbot/pkg/options"
	chromemopts "github.com/kart-io/kb-chatbot/pkg/options/chromem"
	milvusopts "github.com/kart-io/kb-chatbot/pkg/options/milvus"
	pineconeopts "github.com/kart-io/kb-chatbot/pkg/options/pinecone"
)

var _ options.IOptions = (*Options)(nil)

// Supported backends.
const (
	BackendPinecone = "pinecone"
	BackendMilvus   = "milvus"
	BackendChromem  = "chromem"
	BackendMemory   = "memory"
)

// Options selects the vector index backend and describes the index.
type Options struct {
	Backend   string `json:"backend" mapstructure:"backend"`
	Name      string `json:"name" mapstructure:"name"`
	Dimension int    `json:"dimension" mapstructure:"dimension"`
	Metric    string `json:"metric" mapstructure:"metric"`
	Cloud     string `json:"cloud" mapstructure:"cloud"`
	Region    string `json:"region" mapstructure:"region"`

	Pinecone *pineconeopts.Options `json:"pinecone" mapstructure:"pinecone"`
	Milvus   *milvusopts.Options   `json:"milvus" mapstructure:"milvus"`
	Chromem  *chromemopts.Options  `json:"chromem" mapstructure:"chromem"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Backend:   BackendPinecone,
		Name:      "chatbot-knowledge-base",
		Dimension: 1536,
		Metric:    "cosine",
		Cloud:     "aws",
		Region:    "us-east-1",
		Pinecone:  pineconeopts.NewOptions(),
		Milvus:    milvusopts.NewOptions(),
		Chromem:   chromemopts.NewOptions(),
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "index."
	fs.StringVar(&o.Backend, p+"backend", o.Backend, "Vector index backend (pinecone|milvus|chromem|memory).")
	fs.StringVar(&o.Name, p+"name", o.Name, "Vector index name.")
	fs.IntVar(&o.Dimension, p+"dimension", o.Dimension, "Embedding dimension of the index.")
	fs.StringVar(&o.Metric, p+"metric", o.Metric, "Similarity metric (cosine|euclidean|dotproduct).")
	fs.StringVar(&o.Cloud, p+"cloud", o.Cloud, "Serverless cloud used when creating the index.")
	fs.StringVar(&o.Region, p+"region", o.Region, "Serverless region used when creating the index.")

	sub := append(prefixes, "index")
	o.Pinecone.AddFlags(fs, sub...)
	o.Milvus.AddFlags(fs, sub...)
	o.Chromem.AddFlags(fs, sub...)
}

// Complete completes backend options.
func (o *Options) Complete() error {
	return o.Pinecone.Complete()
}

// Validate validates the options of the selected backend only.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Name == "" {
		errs = append(errs, fmt.Errorf("index.name is required"))
	}
	if o.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("index.dimension must be positive"))
	}
	switch o.Metric {
	case "cosine", "euclidean", "dotproduct":
	default:
		errs = append(errs, fmt.Errorf("index.metric %q is not supported", o.Metric))
	}

	switch o.Backend {
	case BackendPinecone:
		errs = append(errs, o.Pinecone.Validate()...)
	case BackendMilvus:
		errs = append(errs, o.Milvus.Validate()...)
	case BackendChromem:
		errs = append(errs, o.Chromem.Validate()...)
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("index.backend %q is not supported", o.Backend))
	}
	return errs
}
