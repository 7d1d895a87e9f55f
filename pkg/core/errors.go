package core

import (
	"errors"
	"fmt"
)

// ErrClosedAdapter is returned by every operation on a disposed adapter.
// Calling a disposed adapter is a programming error and is always surfaced.
var ErrClosedAdapter = errors.New("adapter is closed")

// ExecutionError reports a statement that failed at the backend. Index is
// the zero-based position of the failing statement within the rendered
// template; prior statements in the same call have been rolled back when
// the backend supports transactions. This layer never retries.
type ExecutionError struct {
	Index int    // zero-based index of the failing statement
	SQL   string // the statement that failed
	Err   error  // backend cause
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("statement %d failed: %v", e.Index, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// SchemaError reports a DDL failure during schema initialization. It is
// fatal to that call.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema initialization failed: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}
