package errors

// Service codes (AA).
const (
	ServiceCommon  = 0
	ServiceChatbot = 20
)

// Category codes (BB).
const (
	CategoryRequest  = 1
	CategoryNotFound = 4
	CategoryInternal = 7
	CategoryTimeout  = 11
)

// MakeCode builds an AABBCCC error code.
func MakeCode(service, category, sequence int) int {
	return service*100000 + category*1000 + sequence
}
