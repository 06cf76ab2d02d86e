package httpapi

import (
	"errors"
	"fmt"

	"github.com/contractoros/quote-engine/internal/normalize"
	"github.com/contractoros/quote-engine/internal/pipeline"
	"github.com/contractoros/quote-engine/internal/quote"
)

const (
	CodeValidation    = "validation"
	CodeAIUnavailable = "ai_unavailable"
	CodeNotFound      = "not_found"
	CodeInternal      = "internal"
)

// Error is the wire-level error envelope. Status is derived from Code
// unless set explicitly.
type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func statusForCode(code string) int {
	switch code {
	case CodeValidation:
		return 400
	case CodeNotFound:
		return 404
	case CodeAIUnavailable:
		return 503
	default:
		return 500
	}
}

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message, Status: statusForCode(code)}
}

func newValidationError(message string) *Error {
	return newError(CodeValidation, message)
}

// toAPIError maps domain failures onto the wire envelope. Unknown errors
// become opaque internals so handler bugs never leak details.
func toAPIError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var unavailable *normalize.AIUnavailableError
	if errors.As(err, &unavailable) {
		return newError(CodeAIUnavailable, unavailable.Error())
	}
	var invalid *quote.ValidationError
	if errors.As(err, &invalid) {
		return newValidationError(invalid.Error())
	}
	if errors.Is(err, pipeline.ErrEmptyInput) || errors.Is(err, normalize.ErrImageUnsupported) {
		return newValidationError(err.Error())
	}
	return newError(CodeInternal, "internal error")
}
