package lattice

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrNodeNotFound     = errors.New("node not found")
	ErrPatchNotFound    = errors.New("patch not found")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrDuplicateNodes   = errors.New("patch nodes must be distinct")
	ErrInvalidKind      = errors.New("invalid node kind")
)

// LatticeError provides structured error information for lattice operations.
type LatticeError struct {
	Op      string // Operation that failed (e.g., "CreateNode", "CreateMirrorPatch")
	Entity  string // Entity type ("node", "patch")
	ID      string // Entity ID (if applicable)
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *LatticeError) Error() string {
	if e.ID != "" {
		if e.Context != "" {
			return fmt.Sprintf("%s %s %s (%s): %v", e.Op, e.Entity, e.ID, e.Context, e.Cause)
		}
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.ID, e.Cause)
	}
	if e.Context != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *LatticeError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *LatticeError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building LatticeErrors.
type ErrorBuilder struct {
	err LatticeError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: LatticeError{Op: op}}
}

// Node sets the entity to "node" with the given ID.
func (b *ErrorBuilder) Node(id string) *ErrorBuilder {
	b.err.Entity = "node"
	b.err.ID = id
	return b
}

// Patch sets the entity to "patch" with the given ID.
func (b *ErrorBuilder) Patch(id string) *ErrorBuilder {
	b.err.Entity = "patch"
	b.err.ID = id
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed LatticeError.
func (b *ErrorBuilder) Build() *LatticeError {
	return &b.err
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// Convenience functions for common error patterns

// NodeNotFoundError creates a node not found error.
func NodeNotFoundError(op, nodeID string) error {
	return NewError(op).Node(nodeID).Cause(ErrNodeNotFound).Err()
}

// PatchNotFoundError creates a patch not found error.
func PatchNotFoundError(op, patchID string) error {
	return NewError(op).Patch(patchID).Cause(ErrPatchNotFound).Err()
}

// CapacityError creates a capacity exceeded error.
func CapacityError(op, entity string, limit int) error {
	return &LatticeError{
		Op:      op,
		Entity:  entity,
		Context: fmt.Sprintf("limit %d", limit),
		Cause:   ErrCapacityExceeded,
	}
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound) || errors.Is(err, ErrPatchNotFound)
}

// IsCapacity returns true if the error is a capacity error.
func IsCapacity(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}
