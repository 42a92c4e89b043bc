package repositories

import "fmt"

// ErrorKind categorises a repository failure.
type ErrorKind int

const (
	// KindUnavailable covers connectivity and unclassified storage failures.
	KindUnavailable ErrorKind = iota
	// KindNotFound indicates the requested row does not exist.
	KindNotFound
	// KindConflict indicates a uniqueness or concurrent-modification violation.
	KindConflict
)

// Error is the concrete RepositoryError implementation shared by store backends.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("repository: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("repository: %s", e.Op)
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether the error represents a missing row.
func (e *Error) IsNotFound() bool { return e.Kind == KindNotFound }

// IsConflict reports whether the error represents a uniqueness conflict.
func (e *Error) IsConflict() bool { return e.Kind == KindConflict }

// IsUnavailable reports whether the error represents a storage failure.
func (e *Error) IsUnavailable() bool { return e.Kind == KindUnavailable }

// NewNotFound builds a not-found repository error.
func NewNotFound(op string, err error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Err: err}
}

// NewConflict builds a conflict repository error.
func NewConflict(op string, err error) *Error {
	return &Error{Kind: KindConflict, Op: op, Err: err}
}

// NewUnavailable builds an unavailable repository error.
func NewUnavailable(op string, err error) *Error {
	return &Error{Kind: KindUnavailable, Op: op, Err: err}
}
