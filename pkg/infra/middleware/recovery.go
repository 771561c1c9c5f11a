// Package middleware provides the gin middleware chain of the HTTP server:
// recovery, request ID, access logging and CORS.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/kb-chatbot/pkg/errors"
	mwopts "github.com/kart-io/kb-chatbot/pkg/options/middleware"
	"github.com/kart-io/kb-chatbot/pkg/utils/response"
)

// Recovery returns a middleware that recovers from panics with default options.
func Recovery() gin.HandlerFunc {
	return RecoveryWithOptions(*mwopts.NewRecoveryOptions())
}

// RecoveryWithOptions returns a middleware that converts panics into a 500
// response. The panic value never reaches the client.
func RecoveryWithOptions(opts mwopts.RecoveryOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			fields := []any{
				"panic", fmt.Sprint(r),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"request_id", GetRequestID(c),
			}
			if opts.EnableStackTrace {
				fields = append(fields, "stack", string(debug.Stack()))
			}
			logger.Errorw("Recovered from panic", fields...)

			response.Abort(c, errors.ErrPanic)
		}()
		c.Next()
	}
}
