package soci

import (
	"errors"
	"fmt"

	"github.com/soci-go/soci/backend"
)

// Category is the backend-neutral failure classification every backend must
// map its native errors onto. It is the Go rendering of soci_error's
// exception hierarchy (soci_error / connection_cancelled / sql_error), but
// expressed as a closed taxonomy instead of a type hierarchy so that core
// code can switch on it without importing any backend package.
type Category string

const (
	Unknown                 Category = "unknown"
	ConnectionError         Category = "connection_error"
	InvalidStatement        Category = "invalid_statement"
	NoPrivilege             Category = "no_privilege"
	NoData                  Category = "no_data"
	ConstraintViolation     Category = "constraint_violation"
	UnknownTransactionState Category = "unknown_transaction_state"
	SystemError             Category = "system_error"
)

// Error is the error type every soci operation returns. It carries the
// backend-neutral Category plus whatever the backend can tell us about the
// native failure, mirroring soci_error/sql_error's native_code()/sql_state()
// pair without requiring a type assertion per backend.
type Error struct {
	Category   Category
	Message    string
	Backend    string // backend name, e.g. "postgresql", "mysql"
	Native     string // backend's native error code, e.g. pg SQLSTATE or MySQL errno
	SQLState   string
	Query      string // offending statement, if known (sanitized by caller)
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("soci: %s: %s: %v", e.Category, e.Message, e.Cause)
	}
	return fmt.Sprintf("soci: %s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, soci.New(soci.ConnectionError, "")) match any
// *Error of the same category by comparing categories,
// matching DatabaseError's own category-based Is in kdbx.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Category == "" {
		return false
	}
	return e.Category == t.Category
}

// New builds a soci.Error with no backend-native detail attached; backends
// should prefer NewBackendError so Native/SQLState/Backend are populated.
func New(category Category, message string) *Error {
	return &Error{Category: category, Message: message}
}

// Wrap attaches a Category to an arbitrary cause, for core code translating
// a generic error (e.g. context.DeadlineExceeded) into the taxonomy.
func Wrap(category Category, message string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Category: category, Message: message, Cause: cause}
}

// NewBackendError is the constructor backend implementations call after
// classifying a native driver error; Backend/Native/SQLState are preserved
// so callers who need driver-specific detail can still get at it.
func NewBackendError(category Category, backend, native, sqlState, message string, cause error) *Error {
	return &Error{
		Category: category,
		Message:  message,
		Backend:  backend,
		Native:   native,
		SQLState: sqlState,
		Cause:    cause,
	}
}

// CategoryOf extracts the Category from err, returning Unknown if err is
// not (or does not wrap) a *soci.Error.
func CategoryOf(err error) Category {
	var se *Error
	if errors.As(err, &se) {
		return se.Category
	}
	return Unknown
}

// Is reports whether err's category matches category, looking through
// wrapped errors the same way errors.Is does.
func Is(err error, category Category) bool {
	return CategoryOf(err) == category
}

// IsNoData is shorthand for Is(err, NoData), the category Fetch and
// statement execution return instead of a boolean "more rows?" signal
// when the caller asks for it as an error rather than a (bool, error) pair.
func IsNoData(err error) bool { return Is(err, NoData) }

// IsConstraintViolation mirrors kdbx's IsConstraintViolation helper at the
// category level, since backends fold unique/fk/check/not-null violations
// into the single ConstraintViolation category (finer detail lives in
// Native/SQLState for callers who need it).
func IsConstraintViolation(err error) bool { return Is(err, ConstraintViolation) }

// IsConnectionError reports whether err is a connectivity failure, the
// category the retry veneer in socitx treats as transient-retryable
// alongside UnknownTransactionState.
func IsConnectionError(err error) bool { return Is(err, ConnectionError) }

// wrapBackendErr normalizes a raw backend-layer error into the core
// taxonomy: a *soci.Error passes through unchanged, backend.ErrUnsupported
// becomes an InvalidStatement ("this backend doesn't support that
// capability"), and anything else lands in SystemError since it crossed
// the backend boundary without being classified.
func wrapBackendErr(err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, backend.ErrUnsupported) {
		return Wrap(InvalidStatement, "backend does not support this capability", err)
	}
	return Wrap(SystemError, "backend operation failed", err)
}

// Retryable reports whether the retry veneer should attempt err again.
// Grounded on kdbx/error.go's IsRetryable, adapted to the core taxonomy:
// connection errors, unknown-transaction-state and system errors (backend
// failures that crossed the boundary unclassified) are worth a retry;
// everything else (bad SQL, constraint violations, missing privilege) is
// not, since retrying would just repeat the same failure.
func Retryable(err error) bool {
	switch CategoryOf(err) {
	case ConnectionError, UnknownTransactionState, SystemError:
		return true
	default:
		return false
	}
}
