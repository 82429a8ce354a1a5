// Package errors defines the error taxonomy for the chat engine.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an error for propagation decisions.
type Kind string

const (
	// KindValidation marks bad input shape, rejected before any side effect.
	KindValidation Kind = "validation"
	// KindUnsupportedModel marks an unrecognized model identifier, rejected before any provider call.
	KindUnsupportedModel Kind = "unsupported_model"
	// KindProvider marks a network/quota/model failure during streaming.
	KindProvider Kind = "provider"
	// KindPersistence marks a storage write failure after a successful stream.
	KindPersistence Kind = "persistence"
)

// ChatError carries a machine readable code alongside a user-facing message.
type ChatError struct {
	Kind    Kind           `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ChatError) Unwrap() error {
	return e.Cause
}

// WithCause adds an underlying cause to the error.
func (e *ChatError) WithCause(cause error) *ChatError {
	e.Cause = cause
	return e
}

// WithDetails adds additional details to the error.
func (e *ChatError) WithDetails(details map[string]any) *ChatError {
	e.Details = details
	return e
}

// Common error codes.
const (
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeInvalidRole      = "INVALID_ROLE"
	ErrCodeModelRequired    = "MODEL_REQUIRED"
	ErrCodeModelUnsupported = "MODEL_UNSUPPORTED"
	ErrCodeProviderFailure  = "PROVIDER_FAILURE"
	ErrCodeQuotaExceeded    = "QUOTA_EXCEEDED"
	ErrCodeStorageFailure   = "STORAGE_FAILURE"
)

// NewValidation creates a validation error.
func NewValidation(code, message string) *ChatError {
	return &ChatError{Kind: KindValidation, Code: code, Message: message}
}

// NewUnsupportedModel creates an unsupported-model error for the given identifier.
func NewUnsupportedModel(modelID string) *ChatError {
	return &ChatError{
		Kind:    KindUnsupportedModel,
		Code:    ErrCodeModelUnsupported,
		Message: fmt.Sprintf("unsupported model: %s", modelID),
	}
}

// NewProvider creates a provider error.
func NewProvider(message string, cause error) *ChatError {
	return &ChatError{Kind: KindProvider, Code: ErrCodeProviderFailure, Message: message, Cause: cause}
}

// NewPersistence creates a persistence error.
func NewPersistence(message string, cause error) *ChatError {
	return &ChatError{Kind: KindPersistence, Code: ErrCodeStorageFailure, Message: message, Cause: cause}
}

// KindOf returns the Kind of err when it is (or wraps) a ChatError.
func KindOf(err error) (Kind, bool) {
	var chatErr *ChatError
	if stderrors.As(err, &chatErr) {
		return chatErr.Kind, true
	}
	return "", false
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindValidation
}

// IsUnsupportedModel reports whether err is an unsupported-model error.
func IsUnsupportedModel(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindUnsupportedModel
}

// IsProvider reports whether err is a provider error.
func IsProvider(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindProvider
}

// IsPersistence reports whether err is a persistence error.
func IsPersistence(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindPersistence
}
