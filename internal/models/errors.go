package models

import (
	"errors"
	"fmt"
)

// ErrClaimConflict is returned by the claim update when another processor
// already claimed the post (zero rows affected). Callers skip the post;
// it is not a delivery failure.
var ErrClaimConflict = errors.New("post already claimed by another processor")

// ValidationError is a caller-visible scheduling input error. It is raised
// before any row is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// DeliveryError is a failed external platform call. The processor persists
// it on the post row and never propagates it past the poll loop.
type DeliveryError struct {
	Platform  string
	Reason    string
	Retryable bool // timeouts and transport errors, as opposed to a definitive rejection
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed: %s", e.Platform, e.Reason)
}
