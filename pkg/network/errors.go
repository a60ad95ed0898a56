package network

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrDuplicateName      = errors.New("name already in use")
	ErrInvalidLength      = errors.New("invalid branch length")
	ErrChainageOutOfRange = errors.New("chainage out of range")
	ErrFeatureAttached    = errors.New("feature already attached to a branch")
	ErrNodeNotInNetwork   = errors.New("node not in network")
	ErrNilArgument        = errors.New("nil argument")
	ErrFeatureNotOnBranch = errors.New("feature not attached to this branch")
	ErrCompositeMember    = errors.New("structure belongs to a composite")
)

// NetworkError provides structured error information for network edits.
type NetworkError struct {
	Op     string // Operation that failed (e.g., "AddBranch", "AddFeature")
	Entity string // Entity type (e.g., "node", "branch", "feature")
	Name   string // Entity name (if applicable)
	Cause  error  // Underlying error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %s %q: %v", e.Op, e.Entity, e.Name, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error's cause.
func (e *NetworkError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

func newError(op, entity, name string, cause error) error {
	return &NetworkError{Op: op, Entity: entity, Name: name, Cause: cause}
}
