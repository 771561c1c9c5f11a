package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeCode(t *testing.T) {
	assert.Equal(t, 2001001, MakeCode(ServiceChatbot, CategoryRequest, 1))
	assert.Equal(t, 7000, MakeCode(ServiceCommon, CategoryInternal, 0))
}

func TestErrno_WithCause(t *testing.T) {
	cause := stderrors.New("boom")
	err := ErrChatFailed.WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrChatFailed)
	assert.Nil(t, ErrChatFailed.Unwrap())
	assert.Contains(t, err.Error(), "boom")
}

func TestErrno_WithMessage(t *testing.T) {
	err := ErrValidationFailed.WithMessagef("field %s is required", "message")
	assert.Equal(t, "field message is required", err.MessageEN)
	assert.Equal(t, "Validation failed", ErrValidationFailed.MessageEN)
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus())
	assert.Equal(t, "field message is required", err.Message("zh"))
	assert.Equal(t, "验证失败", ErrValidationFailed.Message("zh"))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	wrapped := fmt.Errorf("handler: %w", ErrEmptyMessage)
	assert.Equal(t, ErrEmptyMessage.Code, FromError(wrapped).Code)

	plain := FromError(stderrors.New("plain"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.HTTPStatus())
	assert.Equal(t, -1, GetCode(stderrors.New("plain")))
}

func TestRegister_Duplicate(t *testing.T) {
	e, ok := Lookup(ErrInternal.Code)
	require.True(t, ok)
	assert.Same(t, ErrInternal, e)

	assert.Panics(t, func() {
		Register(&Errno{Code: ErrInternal.Code, MessageEN: "dup"})
	})
}
