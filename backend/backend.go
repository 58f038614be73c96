package backend

import (
	"context"
	"reflect"
)

// IntoSpec describes one destination binding the engine asks a backend to
// create a reader for: Ptr is an addressable reflect.Value obtained from a
// pointer the caller passed to Into, DataType is the resolved stock
// exchange type, and Vector is true when Ptr points to a slice bound for
// bulk fetch.
type IntoSpec struct {
	Ptr      reflect.Value
	DataType DataType
	Vector   bool
}

// UseSpec describes one parameter binding the engine asks a backend to
// create a writer for. Name is non-empty for named parameters (":name"
// style queries); Pos is the 1-based positional index otherwise.
type UseSpec struct {
	Ptr      reflect.Value
	Name     string
	Pos      int
	DataType DataType
	Vector   bool
}

// ExecResult is what Statement.Execute reports back to the statement
// engine: whether the backend actually produced a result set (gotData,
// the Go rendering of session::got_data_) and, for DML, how many rows
// were affected.
type ExecResult struct {
	GotData      bool
	RowsAffected int64
	NumColumns   int
}

// FetchResult is what Statement.Fetch reports for one round of a vector
// (bulk) fetch: how many rows actually came back, which may be less than
// requested on the final round.
type FetchResult struct {
	RowsFetched int
	GotData     bool
}

// Session is the capability contract a driver must satisfy to back a
// soci.Session: connection lifecycle, transaction control, and the
// factory methods for statements, BLOBs and row IDs. It is the Go
// rendering of session_backend from <soci/session.h>.
type Session interface {
	// Begin/Commit/Rollback drive the backend's native transaction. The
	// core statement engine never calls these directly outside of
	// soci.Session.Begin/Commit/Rollback (transactions are not implicit).
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	// IsConnected reports liveness without a round trip where possible,
	// mirroring session_backend::is_connected's noexcept contract: it
	// must not itself return an error.
	IsConnected(ctx context.Context) bool

	// Reconnect re-establishes the connection using the parameters the
	// backend was constructed with.
	Reconnect(ctx context.Context) error

	// Close releases the backend's native connection. Called at most
	// once; a Session that is already closed must return nil.
	Close(ctx context.Context) error

	// BackendName identifies the backend for logging, error Category
	// tagging, and the CheckTableExists-style driver-aware SQL callers
	// sometimes need to build.
	BackendName() string

	// Placeholder renders the native parameter marker for the given
	// 1-based ordinal (e.g. "$1" for PostgreSQL, "?" for MySQL). The
	// engine uses it to rewrite SOCI's ":name" query syntax once, at
	// Prepare time, via soci.RewritePlaceholders.
	Placeholder(ordinal int) string

	// MakeStatement allocates a new Statement bound to this session.
	MakeStatement() Statement

	// MakeBlob allocates a BLOB handle for streamed large-object access.
	// Backends without BLOB support return ErrUnsupported.
	MakeBlob(ctx context.Context) (Blob, error)

	// MakeRowID allocates a RowID handle. Backends without row-id support
	// (anything but PostgreSQL's oid-based variant) return ErrUnsupported.
	MakeRowID(ctx context.Context) (RowID, error)

	// GetNextSequenceValue returns the next value of a named sequence.
	// ok is false for backends without sequence support (e.g. MySQL,
	// which uses auto-increment columns instead).
	GetNextSequenceValue(ctx context.Context, sequence string) (value int64, ok bool, err error)

	// GetLastInsertID returns the last auto-generated id for table. ok is
	// false for backends that require RETURNING instead (PostgreSQL).
	GetLastInsertID(ctx context.Context, table string) (id int64, ok bool, err error)

	// TableNames lists the tables visible to the current connection.
	TableNames(ctx context.Context) ([]string, error)
}

// Statement is the capability contract for one prepared statement: the Go
// rendering of statement_backend, reduced to the operations the engine in
// statement.go actually drives (prepare, bind, execute, fetch, describe).
type Statement interface {
	// Prepare compiles query against the backend. The engine has already
	// rewritten SOCI's ":name"/"?" markers into the backend's native
	// syntax (pgx: $1, $2; MySQL: ?) through Session.Placeholder.
	Prepare(ctx context.Context, query string) error

	// NewInto creates the backend-specific reader for one destination
	// binding, the Go rendering of make_into_type_backend. The engine
	// retains the returned IntoTypeBackend and drives its PreFetch/
	// PostFetch itself (see statement.go), mirroring statement_impl's own
	// intos_ vector.
	NewInto(pos int, spec IntoSpec) (IntoTypeBackend, error)

	// NewUse creates the backend-specific writer for one parameter
	// binding, the Go rendering of make_use_type_backend.
	NewUse(pos int, spec UseSpec) (UseTypeBackend, error)

	// Execute runs the prepared statement. rowsRequested is the larger of
	// the vector-into size and the vector-use size, each counted as 1 when
	// no binding of that kind is a vector.
	Execute(ctx context.Context, rowsRequested int) (ExecResult, error)

	// Fetch pulls the next round of up to rowsRequested rows into the
	// bound into-backends. Only called when Execute reported GotData.
	Fetch(ctx context.Context, rowsRequested int) (FetchResult, error)

	// ColumnCount returns the number of columns in the result set, valid
	// only after Execute has reported GotData.
	ColumnCount() int

	// DescribeColumn reports the name/type of the 1-based column pos. The
	// engine only calls this after a successful describe-phase Execute.
	DescribeColumn(pos int) (ColumnProperties, error)

	// RewriteForProcedureCall rewrites query for a stored-procedure call
	// if the backend requires special syntax (e.g. "{call proc(?)}");
	// backends without special handling return query unchanged.
	RewriteForProcedureCall(query string) string

	// AffectedRows returns rows affected by the last Execute, for DML
	// statements that don't return a result set.
	AffectedRows() (int64, error)

	// Clean releases backend resources tied to this statement (prepared
	// statement handles, cursors). Safe to call multiple times.
	Clean() error
}

// IntoTypeBackend is the contract for reading one bound destination value
// out of the current row, the Go rendering of standard_into_type_backend.
type IntoTypeBackend interface {
	// PreFetch/PostFetch bracket a Fetch round, mirroring
	// into_type_backend::pre_fetch/post_fetch: PostFetch is where the
	// backend actually writes the Go-side destination and reports the
	// Indicator (Null/Truncated/Ok) for this row.
	PreFetch() error
	PostFetch(gotData bool, calledFromFetch bool) (Indicator, error)

	// CleanUp releases backend resources for this binding (e.g. OID-typed
	// buffers); called once per statement reset.
	CleanUp() error
}

// UseTypeBackend is the contract for one bound parameter value, the Go
// rendering of standard_use_type_backend.
type UseTypeBackend interface {
	// PreUse is called immediately before Execute and is where the
	// backend actually reads the current Go-side value and converts it
	// to wire format.
	PreUse() error

	// PostUse is called after Execute for parameters that can report
	// output values (e.g. RETURNING-bound uses); gotData reports whether
	// Execute produced a result set, mirroring use_type_backend::post_use's
	// bool parameter.
	PostUse(gotData bool) error

	CleanUp() error
}

// VectorIntoTypeBackend and VectorUseTypeBackend are the bulk-bind variants
// for a bound Go slice (KindVector), mirroring vector_into_type_backend and
// vector_use_type_backend: the into variant adds Size/Resize, the use
// variant adds Size. The engine in statement.go does not call them; it
// sizes vector intos itself through ResizeSlice.
type VectorIntoTypeBackend interface {
	IntoTypeBackend
	Size() int
	Resize(n int)
}

type VectorUseTypeBackend interface {
	UseTypeBackend
	Size() int
}

// Blob is a streamed large-object handle, the Go rendering of blob_backend.
// It is intentionally not comparable with == in any meaningful way and is
// not safe to copy after first use; treat it as move-only by convention.
type Blob interface {
	Len(ctx context.Context) (int, error)
	ReadFromStart(ctx context.Context, buf []byte, offset int) (int, error)
	WriteFromStart(ctx context.Context, buf []byte, offset int) (int, error)
	Append(ctx context.Context, buf []byte) (int, error)
	Trim(ctx context.Context, newLen int) error
	Close(ctx context.Context) error
}

// RowID is an opaque backend row identifier (PostgreSQL oid), the Go
// rendering of rowid_backend.
type RowID interface {
	String() string
}

// Factory constructs a Session from a connection string, the Go rendering
// of backend_factory::make_session. Every backend package registers one
// Factory under its name via soci.Register / soci.RegisterFactory.
type Factory interface {
	Open(ctx context.Context, connString string) (Session, error)
}
