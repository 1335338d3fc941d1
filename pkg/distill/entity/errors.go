package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrEntityNotFound indicates an entity was not found
	ErrEntityNotFound = errors.New("entity not found")

	// ErrInvalidDocument indicates an entity document failed validation
	ErrInvalidDocument = errors.New("invalid entity document")
)

// RepositoryError represents an error related to entity repository operations
type RepositoryError struct {
	EntityType string
	ID         string
	Op         string
	Err        error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("entity operation %s failed for %s/%s: %v", e.Op, e.EntityType, e.ID, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}
