package reports

import "fmt"

// ValidationError reports malformed or missing input. Nothing is
// written to the store when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a reference to a document id that does not
// exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ConflictError reports a state transition the lifecycle does not
// allow, such as claiming a report that is no longer queued.
type ConflictError struct {
	ID     string
	Status Status
	Reason string
}

func (e *ConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("report %s: %s", e.ID, e.Reason)
	}
	return fmt.Sprintf("report %s is %s", e.ID, e.Status)
}

// StoreError wraps a transient store failure. The operation left no
// partial state behind; callers may retry.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: store failure: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
