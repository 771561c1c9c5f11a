package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	mwopts "github.com/kart-io/kb-chatbot/pkg/options/middleware"
)

// ContextKeyRequestID is the gin context key holding the request ID.
const ContextKeyRequestID = "request_id"

type requestIDKey struct{}

// RequestID returns a request ID middleware with default options.
func RequestID() gin.HandlerFunc {
	return RequestIDWithOptions(*mwopts.NewRequestIDOptions(), nil)
}

// RequestIDWithOptions returns a middleware that propagates or assigns a
// request ID. An incoming header value is kept, otherwise generator (a ULID
// by default) supplies one. The ID is echoed in the response header and
// stored on both the gin context and the request context.
func RequestIDWithOptions(opts mwopts.RequestIDOptions, generator func() string) gin.HandlerFunc {
	if opts.Header == "" {
		opts.Header = mwopts.NewRequestIDOptions().Header
	}
	if generator == nil {
		generator = NewRequestID
	}

	return func(c *gin.Context) {
		id := c.GetHeader(opts.Header)
		if id == "" {
			id = generator()
		}

		c.Header(opts.Header, id)
		c.Set(ContextKeyRequestID, id)
		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), id))

		c.Next()
	}
}

// NewRequestID returns a new ULID string.
func NewRequestID() string {
	return ulid.Make().String()
}

// WithRequestID stores the request ID in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// GetRequestID returns the request ID of the current request, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}
