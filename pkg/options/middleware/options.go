// Package middleware provides middleware configuration options.
package middleware

import (
	"github.com/spf13/pflag"

	"github.com/kart-io/kb-chatbot/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options groups the configuration of the HTTP middleware chain.
// The chain order is fixed: recovery, request-id, logger, cors.
type Options struct {
	Recovery  *RecoveryOptions  `json:"recovery" mapstructure:"recovery"`
	RequestID *RequestIDOptions `json:"request-id" mapstructure:"request-id"`
	Logger    *LoggerOptions    `json:"logger" mapstructure:"logger"`
	CORS      *CORSOptions      `json:"cors" mapstructure:"cors"`
}

// NewOptions 创建默认中间件选项。
func NewOptions() *Options {
	return &Options{
		Recovery:  NewRecoveryOptions(),
		RequestID: NewRequestIDOptions(),
		Logger:    NewLoggerOptions(),
		CORS:      NewCORSOptions(),
	}
}

// AddFlags adds flags for every middleware.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	o.Recovery.AddFlags(fs, prefixes...)
	o.RequestID.AddFlags(fs, prefixes...)
	o.Logger.AddFlags(fs, prefixes...)
	o.CORS.AddFlags(fs, prefixes...)
}

// Validate validates every middleware.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	errs = append(errs, o.RequestID.Validate()...)
	errs = append(errs, o.CORS.Validate()...)
	return errs
}
