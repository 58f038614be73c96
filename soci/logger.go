package soci

// Logger receives query text and bound parameter values as a statement
// executes, the Go rendering of SOCI's logger_impl/logger protocol
// (<soci/logger.h>): StartQuery corresponds to start_query, AddQueryParameter
// to add_query_parameter, and ClearQueryParameters to clear_query_parameters.
// Clone returns an independent logger instance, mirroring logger_impl::clone;
// a Session shares its own Logger with every Statement it prepares and does
// not call Clone itself.
type Logger interface {
	StartQuery(query string)
	AddQueryParameter(value string)
	ClearQueryParameters()
	Clone() Logger
}

// NopLogger discards everything; it is the default a Session uses when no
// Logger is configured via WithLogger.
type NopLogger struct{}

func (NopLogger) StartQuery(string)        {}
func (NopLogger) AddQueryParameter(string) {}
func (NopLogger) ClearQueryParameters()    {}
func (NopLogger) Clone() Logger            { return NopLogger{} }
