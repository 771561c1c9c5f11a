package middleware

import (
	"github.com/spf13/pflag"

	"github.com/kart-io/kb-chatbot/pkg/options"
)

// LoggerOptions defines access logger middleware options.
type LoggerOptions struct {
	// SkipPaths are not logged.
	SkipPaths []string `json:"skip-paths" mapstructure:"skip-paths"`
}

// NewLoggerOptions creates default access logger options.
func NewLoggerOptions() *LoggerOptions {
	return &LoggerOptions{SkipPaths: []string{"/health"}}
}

// AddFlags adds flags for access logger options to the specified FlagSet.
func (o *LoggerOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringSliceVar(&o.SkipPaths, options.Join(prefixes...)+"middleware.logger.skip-paths", o.SkipPaths, "Paths to skip logging.")
}
