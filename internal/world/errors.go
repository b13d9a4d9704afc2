package world

import (
	"errors"
	"fmt"

	"github.com/san-kum/rigidsim/internal/body"
)

var (
	// ErrNotFound indicates an id that was never issued or was removed.
	ErrNotFound = errors.New("world: not found")

	// ErrInvalidJoint indicates a joint connecting a body to itself or two
	// static bodies.
	ErrInvalidJoint = errors.New("world: invalid joint")

	// ErrInvalidConfig indicates a configuration that failed validation.
	ErrInvalidConfig = errors.New("world: invalid config")
)

// ConstructionError reports a shape or body that could not be built.
type ConstructionError struct {
	Op  string
	Err error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("world: %s: %v", e.Op, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// LookupError reports an unknown body or joint id.
type LookupError struct {
	Kind string
	ID   uint64
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("world: %s %d not found", e.Kind, e.ID)
}

func (e *LookupError) Unwrap() error {
	return ErrNotFound
}

func bodyNotFound(id body.ID) error {
	return &LookupError{Kind: "body", ID: uint64(id)}
}
