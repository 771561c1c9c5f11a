package errors

import "net/http"

// OK represents a successful operation.
var OK = Register(&Errno{
	Code:      0,
	HTTP:      http.StatusOK,
	MessageEN: "Success",
	MessageZH: "成功",
})

var (
	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 0),
		HTTP:      http.StatusBadRequest,
		MessageEN: "Bad request",
		MessageZH: "请求错误",
	})

	// ErrValidationFailed indicates a well-formed request with invalid content.
	ErrValidationFailed = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 4),
		HTTP:      http.StatusUnprocessableEntity,
		MessageEN: "Validation failed",
		MessageZH: "验证失败",
	})

	// ErrNotFound indicates a missing route or resource.
	ErrNotFound = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryNotFound, 0),
		HTTP:      http.StatusNotFound,
		MessageEN: "Not found",
		MessageZH: "资源不存在",
	})

	// ErrInternal indicates an unexpected server error.
	ErrInternal = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 0),
		HTTP:      http.StatusInternalServerError,
		MessageEN: "Internal server error",
		MessageZH: "服务器内部错误",
	})

	// ErrPanic indicates a recovered panic.
	ErrPanic = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 1),
		HTTP:      http.StatusInternalServerError,
		MessageEN: "Internal server error",
		MessageZH: "服务器内部错误",
	})

	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryTimeout, 0),
		HTTP:      http.StatusGatewayTimeout,
		MessageEN: "Request timeout",
		MessageZH: "请求超时",
	})
)

var (
	// ErrChatFailed indicates the chat request could not be answered.
	ErrChatFailed = Register(&Errno{
		Code:      MakeCode(ServiceChatbot, CategoryInternal, 1),
		HTTP:      http.StatusInternalServerError,
		MessageEN: "Failed to process chat request",
		MessageZH: "处理聊天请求失败",
	})

	// ErrEmptyMessage indicates a chat request without a message.
	ErrEmptyMessage = Register(&Errno{
		Code:      MakeCode(ServiceChatbot, CategoryRequest, 1),
		HTTP:      http.StatusUnprocessableEntity,
		MessageEN: "message must not be empty",
		MessageZH: "消息不能为空",
	})
)
