package wire

import "strings"

// Anthropic error kinds.
const (
	ErrInvalidRequest = "invalid_request_error"
	ErrAuthentication = "authentication_error"
	ErrPermission     = "permission_error"
	ErrNotFound       = "not_found_error"
	ErrRateLimit      = "rate_limit_error"
	ErrAPI            = "api_error"
	ErrOverloaded     = "overloaded_error"
)

// ErrorResponse is the Anthropic error envelope, used both as an HTTP body
// and as the payload of an in-stream error event.
type ErrorResponse struct {
	Type  string      `json:"type"`
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the kind and human-readable message of an error.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewErrorResponse builds an error envelope of the given kind.
func NewErrorResponse(kind, message string) ErrorResponse {
	return ErrorResponse{
		Type:  "error",
		Error: ErrorDetail{Type: kind, Message: message},
	}
}

// ErrorKindForStatus maps an upstream HTTP status to an Anthropic error
// kind. A 5xx whose message mentions overload becomes overloaded_error.
func ErrorKindForStatus(status int, message string) string {
	switch status {
	case 400:
		return ErrInvalidRequest
	case 401:
		return ErrAuthentication
	case 403:
		return ErrPermission
	case 404:
		return ErrNotFound
	case 429:
		return ErrRateLimit
	}
	if status >= 500 {
		if strings.Contains(strings.ToLower(message), "overloaded") {
			return ErrOverloaded
		}
		return ErrAPI
	}
	return ErrInvalidRequest
}
