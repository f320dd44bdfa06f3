package tools

import (
	"fmt"
	"net/http"
)

// Tool-level error codes.
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeValidationError = "VALIDATION_ERROR"
	CodeUnknownTool     = "UNKNOWN_TOOL"
	CodeInternalError   = "INTERNAL_ERROR"
)

// Error is a tool-level failure returned in the response envelope.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatus maps the error to a response status. Only storage failures
// are server errors; everything else is the caller's to fix.
func (e *Error) HTTPStatus() int {
	if e.Code == CodeInternalError {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func validationError(errs []FieldError) *Error {
	return &Error{
		Code:    CodeValidationError,
		Message: "input does not match the tool's input schema",
		Details: errs,
	}
}

func unknownTool(name string) *Error {
	return &Error{Code: CodeUnknownTool, Message: fmt.Sprintf("unknown tool %q", name)}
}

func internalError() *Error {
	return &Error{Code: CodeInternalError, Message: "internal error"}
}
