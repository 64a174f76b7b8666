package types

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error types carried in CustomError.Type and echoed in error responses.
const (
	TypeValidation     = "validation"
	TypePermission     = "permission"
	TypeAuthentication = "authentication"
	TypeNotFound       = "not_found"
	TypeConflict       = "conflict"
	TypeRateLimit      = "rate_limit"
)

// CustomError is a business failure that maps onto an HTTP status.
type CustomError struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Type    string            `json:"type"`
	Fields  map[string]string `json:"errors,omitempty"`
}

func (e *CustomError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%d: %s (%s) [type: %s]", e.Code, e.Message, strings.Join(parts, "; "), e.Type)
}

// Is matches another CustomError of the same Type, so callers can test
// errors.Is(err, &CustomError{Type: TypeConflict}).
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// ValidationError reports malformed input.
func ValidationError(format string, args ...any) *CustomError {
	return &CustomError{Code: http.StatusBadRequest, Message: fmt.Sprintf(format, args...), Type: TypeValidation}
}

// FieldError is a ValidationError attributed to a single payload field.
func FieldError(field, message string) *CustomError {
	return &CustomError{
		Code:    http.StatusBadRequest,
		Message: "Invalid " + field,
		Type:    TypeValidation,
		Fields:  map[string]string{field: message},
	}
}

// FieldsError is a ValidationError carrying several field messages.
func FieldsError(fields map[string]string) *CustomError {
	return &CustomError{Code: http.StatusBadRequest, Message: "Validation failed", Type: TypeValidation, Fields: fields}
}

// PermissionError reports a failed role or ownership gate.
func PermissionError(format string, args ...any) *CustomError {
	return &CustomError{Code: http.StatusForbidden, Message: fmt.Sprintf(format, args...), Type: TypePermission}
}

// AuthenticationError reports missing or invalid credentials.
func AuthenticationError(format string, args ...any) *CustomError {
	return &CustomError{Code: http.StatusUnauthorized, Message: fmt.Sprintf(format, args...), Type: TypeAuthentication}
}

// NotFoundError reports a missing record or file.
func NotFoundError(format string, args ...any) *CustomError {
	return &CustomError{Code: http.StatusNotFound, Message: fmt.Sprintf(format, args...), Type: TypeNotFound}
}

// ConflictError reports a uniqueness violation.
func ConflictError(format string, args ...any) *CustomError {
	return &CustomError{Code: http.StatusConflict, Message: fmt.Sprintf(format, args...), Type: TypeConflict}
}

// RateLimitError reports a throttled request.
func RateLimitError(format string, args ...any) *CustomError {
	return &CustomError{Code: http.StatusTooManyRequests, Message: fmt.Sprintf(format, args...), Type: TypeRateLimit}
}

// AsCustomError unwraps err to a *CustomError if there is one in the chain.
func AsCustomError(err error) (*CustomError, bool) {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsType reports whether err is a CustomError of the given type.
func IsType(err error, typ string) bool {
	ce, ok := AsCustomError(err)
	return ok && ce.Type == typ
}
