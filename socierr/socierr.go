// Package socierr adapts soci's error Category taxonomy onto a stable Code
// scheme that HTTP/gRPC/CLI handlers can key off of, so a handler that
// already does socierr.GetCode(err).HTTPStatusCode() keeps working for an
// error a *soci.Session returned.
package socierr

import (
	"github.com/soci-go/soci"
)

// FromCategory maps a soci.Category onto the nearest Code.
func FromCategory(cat soci.Category) Code {
	switch cat {
	case soci.ConnectionError:
		return CodeUnavailable
	case soci.InvalidStatement:
		return CodeInvalidArgument
	case soci.NoPrivilege:
		return CodePermission
	case soci.NoData:
		return CodeNotFound
	case soci.ConstraintViolation:
		return CodeConflict
	case soci.UnknownTransactionState:
		return CodeInvalidState
	case soci.SystemError:
		return CodeDatabase
	default:
		return CodeUnknown
	}
}

// Wrap converts err (typically a *soci.Error) into an *Error tagged with
// the corresponding Code, preserving err as the Cause.
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return WrapCode(err, FromCategory(soci.CategoryOf(err)), message)
}
