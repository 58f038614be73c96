package socierr

import (
	"encoding/json"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// HTTPError is the wire shape of an error response for HTTP APIs.
type HTTPError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	StackTrace []string       `json:"stack_trace,omitempty"`
}

// ToHTTPError converts err into an HTTPError, optionally including its
// stack trace.
func ToHTTPError(err error, includeStackTrace bool) HTTPError {
	if err == nil {
		return HTTPError{Code: CodeInternal.String(), Message: "unknown error"}
	}

	var e *Error
	if As(err, &e) {
		httpErr := HTTPError{
			Code:    e.Code.String(),
			Message: e.Message,
			Details: e.Details,
		}
		if includeStackTrace && len(e.StackTrace) > 0 {
			traces := make([]string, 0, len(e.StackTrace))
			for _, frame := range e.StackTrace {
				traces = append(traces, frame.String())
			}
			httpErr.StackTrace = traces
		}
		return httpErr
	}

	return HTTPError{Code: CodeInternal.String(), Message: err.Error()}
}

// ToJSON marshals the HTTPError.
func (e HTTPError) ToJSON() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// HTTPStatusCode returns the HTTP status code for err.
func HTTPStatusCode(err error) int {
	if err == nil {
		return 200
	}
	var e *Error
	if As(err, &e) {
		return e.Code.HTTPStatusCode()
	}
	return 500
}

// HTTPResponse is a complete HTTP error response.
type HTTPResponse struct {
	StatusCode int       `json:"-"`
	Error      HTTPError `json:"error"`
}

// ToHTTPResponse converts err into a full HTTPResponse.
func ToHTTPResponse(err error, includeStackTrace bool) HTTPResponse {
	return HTTPResponse{
		StatusCode: HTTPStatusCode(err),
		Error:      ToHTTPError(err, includeStackTrace),
	}
}

// WriteJSON marshals the HTTPResponse.
func (r HTTPResponse) WriteJSON() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToGRPCError converts err into a gRPC status error, the Go analogue of the
// one other transport binding this package offers besides HTTP.
func ToGRPCError(err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if As(err, &e) {
		return status.New(codes.Code(e.Code.GRPCCode()), e.Message).Err()
	}
	return status.Error(codes.Internal, err.Error())
}
