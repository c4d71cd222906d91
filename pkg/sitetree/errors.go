package sitetree

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrInvalidArgument indicates malformed or missing caller input
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnauthenticated indicates no valid principal was supplied
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden indicates the principal is authenticated but not allowed
	ErrForbidden = errors.New("insufficient permissions")

	// ErrUnsupportedOperation indicates a tree mutation was invoked on a leaf
	ErrUnsupportedOperation = errors.New("operation not supported by this component")

	// ErrIndexOutOfRange indicates a child lookup with an invalid position
	ErrIndexOutOfRange = errors.New("child index out of range")

	// ErrSiteNotFound indicates a site was not found
	ErrSiteNotFound = errors.New("site not found")

	// ErrNodeNotFound indicates a node was not found within a site
	ErrNodeNotFound = errors.New("node not found")

	// ErrSessionExpired indicates a session exceeded the idle timeout
	ErrSessionExpired = fmt.Errorf("%w: session expired", ErrForbidden)
)

// NodeError represents an error raised by a tree operation on a node.
type NodeError struct {
	Node string
	Op   string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node operation %s failed on %q: %v", e.Op, e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// ValidationError represents a failed gate check. Check names the check that
// rejected the input; the wrapped error carries the failure category.
type ValidationError struct {
	Check string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation check %s failed: %v", e.Check, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
