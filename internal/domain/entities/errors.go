package entities

import (
	"errors"
	"fmt"
	"strings"

	"todoagent/pkg/validation"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrStorageUnavailable matches every *StorageError.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError reports rejected field values on create or update.
type ValidationError struct {
	Violations []validation.Violation
}

func (e *ValidationError) Error() string {
	messages := make([]string, len(e.Violations))

	for i, v := range e.Violations {
		messages[i] = v.Message
	}

	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(messages, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StorageError reports a backing store that cannot be read, written or
// parsed.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s: %v", ErrStorageUnavailable, e.Op, e.Err)
	}

	return fmt.Sprintf("%s: %s %s: %v", ErrStorageUnavailable, e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}
