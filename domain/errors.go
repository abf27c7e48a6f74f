package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrWriteFailure wraps a rejected backend insert or update. Nothing was committed.
	ErrWriteFailure = errors.New("order write failed")
	// ErrRenderFailure wraps an invoice rendering failure that happened after the order was written.
	ErrRenderFailure = errors.New("invoice render failed")
	// ErrCollaboratorUnavailable marks an optional collaborator that is absent or not answering.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	// ErrIllegalTransition is returned when the checkout phase machine rejects a move.
	ErrIllegalTransition = errors.New("illegal transition of checkout phase")
	// ErrNotEditable is returned when an order past the editable statuses is opened for editing.
	ErrNotEditable = errors.New("order is no longer editable")
)

// ValidationError names the missing or invalid form field so the UI can prompt for it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
