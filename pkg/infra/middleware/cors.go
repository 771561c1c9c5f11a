package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	mwopts "github.com/kart-io/kb-chatbot/pkg/options/middleware"
)

// CORS returns a CORS middleware with default options.
func CORS() gin.HandlerFunc {
	return CORSWithOptions(*mwopts.NewCORSOptions())
}

// CORSWithOptions returns a middleware that adds CORS headers and answers
// preflight requests with 204. Requests from origins outside AllowOrigins
// pass through without CORS headers.
func CORSWithOptions(opts mwopts.CORSOptions) gin.HandlerFunc {
	defaults := mwopts.NewCORSOptions()
	if len(opts.AllowOrigins) == 0 {
		opts.AllowOrigins = defaults.AllowOrigins
	}
	if len(opts.AllowMethods) == 0 {
		opts.AllowMethods = defaults.AllowMethods
	}
	if len(opts.AllowHeaders) == 0 {
		opts.AllowHeaders = defaults.AllowHeaders
	}
	if opts.MaxAge == 0 {
		opts.MaxAge = defaults.MaxAge
	}

	wildcard := slices.Contains(opts.AllowOrigins, "*")
	allowMethods := strings.Join(opts.AllowMethods, ", ")
	allowHeaders := strings.Join(opts.AllowHeaders, ", ")
	exposeHeaders := strings.Join(opts.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(opts.MaxAge)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		allowed := ""
		switch {
		case wildcard:
			allowed = "*"
		case slices.Contains(opts.AllowOrigins, origin):
			allowed = origin
			c.Header("Vary", "Origin")
		default:
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Origin", allowed)
		if opts.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		if exposeHeaders != "" {
			c.Header("Access-Control-Expose-Headers", exposeHeaders)
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", allowMethods)
			c.Header("Access-Control-Allow-Headers", allowHeaders)
			c.Header("Access-Control-Max-Age", maxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
