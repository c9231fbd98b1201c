package usecase

import (
	"errors"
	"fmt"

	"eventhub/pkg/utils"
)

// Sentinel errors returned (wrapped) by services. Handlers map them to
// status codes with errors.Is; anything else is an internal failure.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// MsgInvalidCode is the only message a failed code check ever produces.
const MsgInvalidCode = "invalid or expired code"

var (
	ErrInvalidCode        = fmt.Errorf("%s: %w", MsgInvalidCode, ErrUnauthorized)
	ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", ErrUnauthorized)
)

// ValidationError carries per-field messages and matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", utils.FormatValidationErrors(e.Fields))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// validate runs struct validation and wraps failures in a ValidationError.
func validate(req any) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func invalidCode() error {
	return ErrInvalidCode
}
