package socierr

import (
	"errors"
	"fmt"
	"runtime"
)

// Error is a Code-tagged error carrying an optional cause, stack trace, and
// structured details — what FromCategory/Wrap produce from a *soci.Error.
type Error struct {
	Code       Code
	Message    string
	Cause      error
	StackTrace []StackFrame
	Details    map[string]any
}

// StackFrame is a single frame in an Error's captured stack trace.
type StackFrame struct {
	File     string
	Line     int
	Function string
}

// String renders the frame as "function at file:line".
func (sf StackFrame) String() string {
	return fmt.Sprintf("%s at %s:%d", sf.Function, sf.File, sf.Line)
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a key/value detail and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		StackTrace: captureStackTrace(),
		Details:    make(map[string]any),
	}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		StackTrace: captureStackTrace(),
		Details:    make(map[string]any),
	}
}

// WrapCode wraps err with an explicit code and message. If err is already
// an *Error, its stack trace and details carry over unchanged instead of
// being replaced. Wrap (socierr.go) is the usual entry point for a
// *soci.Error, deriving the code from its Category via FromCategory; use
// WrapCode directly when the caller already knows the target Code.
func WrapCode(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}

	var original *Error
	if errors.As(err, &original) {
		details := make(map[string]any, len(original.Details))
		for k, v := range original.Details {
			details[k] = v
		}
		return &Error{
			Code:       code,
			Message:    message,
			Cause:      err,
			StackTrace: original.StackTrace,
			Details:    details,
		}
	}

	return &Error{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStackTrace(),
		Details:    make(map[string]any),
	}
}

// Wrapf wraps err with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return WrapCode(err, code, fmt.Sprintf(format, args...))
}

// Cause unwraps err down to its innermost cause.
func Cause(err error) error {
	for err != nil {
		cause := errors.Unwrap(err)
		if cause == nil {
			return err
		}
		err = cause
	}
	return err
}

// Is reports whether err matches target, per errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain matching target, per errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// HasCode reports whether err is an *Error carrying code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the Code from err, defaulting to CodeInternal for a
// plain error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// GetDetails extracts the structured details from err, if any.
func GetDetails(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

func captureStackTrace() []StackFrame {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(3, pcs[:])

	frames := make([]StackFrame, 0, n)
	for i := 0; i < n; i++ {
		fn := runtime.FuncForPC(pcs[i])
		if fn == nil {
			continue
		}
		file, line := fn.FileLine(pcs[i])
		frames = append(frames, StackFrame{File: file, Line: line, Function: fn.Name()})
	}
	return frames
}
