package socierr

// Code is a stable, loggable error classification independent of the
// underlying soci.Category a *soci.Error carries.
type Code string

// Common error codes.
const (
	CodeInternal        Code = "INTERNAL_ERROR"
	CodeUnknown         Code = "UNKNOWN_ERROR"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeAlreadyExists   Code = "ALREADY_EXISTS"
	CodePermission      Code = "PERMISSION_DENIED"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeTimeout         Code = "TIMEOUT"
	CodeCancelled       Code = "CANCELLED"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeUnimplemented   Code = "UNIMPLEMENTED"
	CodeConflict        Code = "CONFLICT"
	CodeInvalidState    Code = "INVALID_STATE"

	// Infrastructure errors; of these, FromCategory maps only onto
	// CodeDatabase (for SystemError).
	CodeDatabase      Code = "DATABASE_ERROR"
	CodeNetwork       Code = "NETWORK_ERROR"
	CodeThirdParty    Code = "THIRD_PARTY_ERROR"
	CodeCache         Code = "CACHE_ERROR"
	CodeQueue         Code = "QUEUE_ERROR"
	CodeFileSystem    Code = "FILESYSTEM_ERROR"
	CodeSerialization Code = "SERIALIZATION_ERROR"
)

// String returns the string representation of the code.
func (c Code) String() string {
	return string(c)
}

// HTTPStatusCode returns the HTTP status code for the error code.
func (c Code) HTTPStatusCode() int {
	switch c {
	case CodeInvalidArgument:
		return 400
	case CodeUnauthenticated:
		return 401
	case CodePermission:
		return 403
	case CodeNotFound:
		return 404
	case CodeAlreadyExists, CodeConflict:
		return 409
	case CodeTimeout:
		return 408
	case CodeCancelled:
		return 499
	case CodeUnimplemented:
		return 501
	case CodeUnavailable, CodeNetwork:
		return 503
	case CodeInvalidState:
		return 422
	case CodeInternal, CodeUnknown, CodeDatabase, CodeThirdParty,
		CodeCache, CodeQueue, CodeFileSystem, CodeSerialization:
		return 500
	default:
		return 500
	}
}

// IsClientError reports whether the code maps to a 4xx HTTP status.
func (c Code) IsClientError() bool {
	status := c.HTTPStatusCode()
	return status >= 400 && status < 500
}

// IsServerError reports whether the code maps to a 5xx HTTP status.
func (c Code) IsServerError() bool {
	status := c.HTTPStatusCode()
	return status >= 500 && status < 600
}

// GRPCCode returns the gRPC status code for the error code.
func (c Code) GRPCCode() int {
	switch c {
	case CodeInvalidArgument:
		return 3 // InvalidArgument
	case CodeUnauthenticated:
		return 16 // Unauthenticated
	case CodePermission:
		return 7 // PermissionDenied
	case CodeNotFound:
		return 5 // NotFound
	case CodeAlreadyExists, CodeConflict:
		return 6 // AlreadyExists
	case CodeTimeout:
		return 4 // DeadlineExceeded
	case CodeCancelled:
		return 1 // Cancelled
	case CodeUnimplemented:
		return 12 // Unimplemented
	case CodeUnavailable, CodeNetwork:
		return 14 // Unavailable
	case CodeInvalidState:
		return 9 // FailedPrecondition
	case CodeInternal, CodeDatabase, CodeThirdParty,
		CodeCache, CodeQueue, CodeFileSystem, CodeSerialization:
		return 13 // Internal
	case CodeUnknown:
		return 2 // Unknown
	default:
		return 2 // Unknown
	}
}
