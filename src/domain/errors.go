package domain

import (
	"errors"
	"fmt"
)

var (
	ErrBranchNotFound = errors.New("branch not found")

	ErrBranchAlreadyExists = errors.New("branch already exists")

	ErrInvalidInput = errors.New("invalid input")

	ErrInvalidParent = fmt.Errorf("%w: parent branch could not be resolved", ErrInvalidInput)

	ErrHierarchyCycle = fmt.Errorf("%w: parent change would create a cycle", ErrInvalidInput)

	ErrClosureTooLarge = errors.New("subtree exceeds the configured closure size")

	ErrUnavailableServer = errors.New("Oops, something unexpected happened. Please try again later.")
)

// ValidationError carrega o campo inválido; errors.Is(err, ErrInvalidInput) é verdadeiro.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidInput.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
