package flatcms

import (
	"errors"
	"fmt"
	"strings"
)

// Error types
var (
	// ErrItemNotFound indicates a content item was not found.
	ErrItemNotFound = errors.New("content item not found")

	// ErrItemExists indicates a create collided with an existing item id.
	ErrItemExists = errors.New("content item already exists")

	// ErrVersionNotFound indicates a version snapshot was not found.
	ErrVersionNotFound = errors.New("version not found")

	// ErrInvalidStatus indicates an unknown content status value.
	ErrInvalidStatus = errors.New("invalid content status")

	// ErrInvalidContentType indicates an unusable content type name.
	ErrInvalidContentType = errors.New("invalid content type")

	// ErrInvalidID indicates an unusable content item id.
	ErrInvalidID = errors.New("invalid content item id")

	// ErrUniquenessViolation indicates one or more unique fields collided
	// with an existing item of the same type.
	ErrUniquenessViolation = errors.New("unique field violation")
)

// ItemError wraps a failure of a content operation with its subject.
type ItemError struct {
	ContentType string
	ID          string
	Op          string
	Err         error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("content operation %s failed for %s/%s: %v", e.Op, e.ContentType, e.ID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// StoreError wraps a filesystem-level failure with the path and operation.
type StoreError struct {
	Path string
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// UniquenessError carries the full violation report for a rejected create
// or update. It unwraps to ErrUniquenessViolation.
type UniquenessError struct {
	ContentType string
	Report      *UniquenessReport
}

func (e *UniquenessError) Error() string {
	fields := make([]string, len(e.Report.Violations))
	for i, v := range e.Report.Violations {
		fields[i] = v.Field
	}
	return fmt.Sprintf("unique field violation on %s: %s", e.ContentType, strings.Join(fields, ", "))
}

func (e *UniquenessError) Unwrap() error {
	return ErrUniquenessViolation
}
