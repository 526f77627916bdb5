package cassandra

import (
	"fmt"
)

// ConnectionFailedError is returned when no server in the pool could be
// reached within the placement attempt budget.
type ConnectionFailedError struct {
	Attempts int
	LastErr  error
}

func (e *ConnectionFailedError) Error() string {
	if e.LastErr == nil {
		return fmt.Sprintf("no servers available after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("no servers available after %d attempts, last error: %s", e.Attempts, e.LastErr)
}

func (e *ConnectionFailedError) Unwrap() error { return e.LastErr }

// ConnectionClosedError is returned when a connection is used after Close.
// This is a lifecycle bug in the caller, not a transient condition.
type ConnectionClosedError struct {
	Node string
}

func (e *ConnectionClosedError) Error() string {
	return fmt.Sprintf("connection to %s is closed", e.Node)
}

// KeyspaceSelectionError is returned when set_keyspace failed on all of its
// attempts on one connection.
type KeyspaceSelectionError struct {
	Keyspace string
	Attempts int
	LastErr  error
}

func (e *KeyspaceSelectionError) Error() string {
	return fmt.Sprintf("selecting keyspace %q failed after %d attempts: %s", e.Keyspace, e.Attempts, e.LastErr)
}

func (e *KeyspaceSelectionError) Unwrap() error { return e.LastErr }

// InvalidRequestError marks a request that is malformed or violates a
// client-side precondition. It is never retried; retrying cannot fix it.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string { return e.Reason }

func invalidRequestf(format string, args ...interface{}) *InvalidRequestError {
	return &InvalidRequestError{Reason: fmt.Sprintf(format, args...)}
}

// MaxRetriesExceededError wraps the last failure observed once the dispatch
// retry budget is exhausted.
type MaxRetriesExceededError struct {
	Op      Op
	Retries int
	LastErr error
}

func (e *MaxRetriesExceededError) Error() string {
	return fmt.Sprintf("%s failed after %d retries: %s", e.Op, e.Retries, e.LastErr)
}

func (e *MaxRetriesExceededError) Unwrap() error { return e.LastErr }
