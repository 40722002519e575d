// Package errors provides the structured error type used across askdocs.
//
// Errors carry a code of the form ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Extraction errors (malformed file, unreachable URL)
//   - 3XX: Provider errors (embedding or generation API)
//   - 4XX: Validation errors
//   - 5XX: Store errors
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an error for callers that need to react to its origin.
type Kind string

const (
	KindConfig     Kind = "CONFIG"
	KindExtraction Kind = "EXTRACTION"
	KindProvider   Kind = "PROVIDER"
	KindValidation Kind = "VALIDATION"
	KindStore      Kind = "STORE"
	KindInternal   Kind = "INTERNAL"
)

// Error codes.
const (
	ErrCodeConfigInvalid = "ERR_101_CONFIG_INVALID"
	ErrCodeAPIKeyMissing = "ERR_102_API_KEY_MISSING"

	ErrCodeUnsupportedFormat = "ERR_201_UNSUPPORTED_FORMAT"
	ErrCodeParseFailed       = "ERR_202_PARSE_FAILED"
	ErrCodeFetchFailed       = "ERR_203_FETCH_FAILED"

	ErrCodeEmbeddingFailed  = "ERR_301_EMBEDDING_FAILED"
	ErrCodeGenerationFailed = "ERR_302_GENERATION_FAILED"

	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeNotFound          = "ERR_403_NOT_FOUND"

	ErrCodeStoreFailed = "ERR_501_STORE_FAILED"
	ErrCodeStoreLocked = "ERR_502_STORE_LOCKED"
)

// Error is the structured error type for askdocs.
type Error struct {
	Code    string
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so errors.Is works against sentinel values.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates an Error; the kind is derived from the code.
func New(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Kind:    kindFromCode(code),
		Message: message,
		Cause:   cause,
	}
}

// ConfigError creates a configuration error.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ExtractionError creates an error for a source whose text could not be extracted.
func ExtractionError(code, message string, cause error) *Error {
	return New(code, message, cause)
}

// ProviderError creates an error for a failed embedding or generation call.
func ProviderError(code, message string, cause error) *Error {
	return New(code, message, cause)
}

// ValidationError creates an input validation error.
func ValidationError(message string, cause error) *Error {
	return New(ErrCodeInvalidInput, message, cause)
}

// StoreError creates a vector store error.
func StoreError(message string, cause error) *Error {
	return New(ErrCodeStoreFailed, message, cause)
}

// KindOf returns the kind of the first Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err's chain contains an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// GetCode extracts the error code, or "" when err carries none.
func GetCode(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

func kindFromCode(code string) Kind {
	if len(code) < 5 {
		return KindInternal
	}
	switch code[4] {
	case '1':
		return KindConfig
	case '2':
		return KindExtraction
	case '3':
		return KindProvider
	case '4':
		return KindValidation
	case '5':
		return KindStore
	default:
		return KindInternal
	}
}
