// Package response writes JSON responses for gin handlers.
//
// Error bodies carry a single "detail" field:
//
//	{"detail": "message must not be empty"}
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/kb-chatbot/pkg/errors"
)

// ErrorBody is the JSON body of a failed request.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// OK writes data with status 200.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Fail writes err with the HTTP status of its Errno.
// Errors without an Errno in their chain are answered as internal errors.
func Fail(c *gin.Context, err error) {
	e := errors.FromError(err)
	c.JSON(e.HTTPStatus(), ErrorBody{Detail: e.Message(c.GetHeader("Accept-Language"))})
}

// Abort writes err like Fail and stops the handler chain.
func Abort(c *gin.Context, err error) {
	Fail(c, err)
	c.Abort()
}
