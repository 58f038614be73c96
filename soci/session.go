package soci

import (
	"context"
	"sync"

	"github.com/soci-go/soci/backend"
)

// Session is a single database connection (or pooled handle, depending on
// the backend), the Go rendering of the session class from <soci/session.h>.
// Unlike the original's copy-by-reference-counting session, a *Session is
// used the way a *sql.DB or *pgxpool.Pool is: shared, long-lived, closed
// once at shutdown.
type Session struct {
	backend backend.Session
	logger  Logger
	name    string

	inTx      bool
	closeOnce sync.Once
}

// SessionOption configures Open.
type SessionOption func(*Session)

// WithLogger attaches a Logger that receives every query this Session
// prepares, the Go analogue of session::set_logger.
func WithLogger(l Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open looks up the backend registered under backendName (see Register) and
// asks its Factory to establish a connection using connString, the Go
// rendering of session::open(backend_factory const&, string const&). The
// connection string uses SOCI's "key=value key2='quoted value'" grammar
// (see ParseConnectionString); each backend interprets its own keys.
func Open(ctx context.Context, backendName, connString string, opts ...SessionOption) (*Session, error) {
	f, err := lookupFactory(backendName)
	if err != nil {
		return nil, err
	}

	be, err := f.Open(ctx, connString)
	if err != nil {
		return nil, wrapBackendErr(err)
	}

	s := &Session{backend: be, logger: NopLogger{}, name: backendName}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Begin starts a transaction on the underlying connection. SOCI sessions
// have no implicit transaction: a Statement executes autocommit unless the
// caller wraps it in Begin/Commit/Rollback (or uses socitx's retry veneer).
func (s *Session) Begin(ctx context.Context) error {
	if err := s.backend.Begin(ctx); err != nil {
		return wrapBackendErr(err)
	}
	s.inTx = true
	return nil
}

// Commit commits the current transaction.
func (s *Session) Commit(ctx context.Context) error {
	if err := s.backend.Commit(ctx); err != nil {
		return wrapBackendErr(err)
	}
	s.inTx = false
	return nil
}

// Rollback rolls back the current transaction.
func (s *Session) Rollback(ctx context.Context) error {
	if err := s.backend.Rollback(ctx); err != nil {
		return wrapBackendErr(err)
	}
	s.inTx = false
	return nil
}

// InTransaction reports whether Begin has been called with no matching
// Commit/Rollback yet.
func (s *Session) InTransaction() bool { return s.inTx }

// IsConnected reports connection liveness without necessarily making a
// round trip, the Go rendering of session::is_connected.
func (s *Session) IsConnected(ctx context.Context) bool { return s.backend.IsConnected(ctx) }

// Reconnect re-establishes the connection using the parameters it was
// opened with, the Go rendering of session::reconnect.
func (s *Session) Reconnect(ctx context.Context) error {
	if err := s.backend.Reconnect(ctx); err != nil {
		return wrapBackendErr(err)
	}
	return nil
}

// Close releases the underlying connection. Safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		err = wrapBackendErr(s.backend.Close(ctx))
	})
	return err
}

// BackendName returns the name the backend session itself reports (e.g.
// "postgresql"), not the name this Session was opened under.
func (s *Session) BackendName() string { return s.backend.BackendName() }

// SetLogger replaces the Session's Logger, the Go rendering of
// session::set_logger.
func (s *Session) SetLogger(l Logger) {
	if l != nil {
		s.logger = l
	}
}

// MakeBlob allocates a streamed large-object handle. Backends without BLOB
// support return an InvalidStatement error wrapping backend.ErrUnsupported.
func (s *Session) MakeBlob(ctx context.Context) (*Blob, error) {
	b, err := s.backend.MakeBlob(ctx)
	if err != nil {
		return nil, wrapBackendErr(err)
	}
	return newBlob(b), nil
}

// MakeRowID allocates a row identifier handle (PostgreSQL oid).
func (s *Session) MakeRowID(ctx context.Context) (*RowID, error) {
	r, err := s.backend.MakeRowID(ctx)
	if err != nil {
		return nil, wrapBackendErr(err)
	}
	return newRowID(r), nil
}

// GetNextSequenceValue returns the next value of sequence. ok is false for
// backends without sequence support.
func (s *Session) GetNextSequenceValue(ctx context.Context, sequence string) (int64, bool, error) {
	v, ok, err := s.backend.GetNextSequenceValue(ctx, sequence)
	if err != nil {
		return 0, false, wrapBackendErr(err)
	}
	return v, ok, nil
}

// GetLastInsertID returns the last auto-generated id inserted into table.
// ok is false for backends that require RETURNING instead.
func (s *Session) GetLastInsertID(ctx context.Context, table string) (int64, bool, error) {
	v, ok, err := s.backend.GetLastInsertID(ctx, table)
	if err != nil {
		return 0, false, wrapBackendErr(err)
	}
	return v, ok, nil
}

// TableNames lists the tables visible to the current connection.
func (s *Session) TableNames(ctx context.Context) ([]string, error) {
	names, err := s.backend.TableNames(ctx)
	if err != nil {
		return nil, wrapBackendErr(err)
	}
	return names, nil
}

// Once executes query with the given bindings in one shot: prepare, bind,
// execute, close. It is the Go analogue of session::once used for simple
// fire-and-forget DDL/DML with no result set.
func (s *Session) Once(ctx context.Context, query string, bindings ...any) error {
	stmt, err := s.Prepare(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	stmt.Bind(bindings...)
	return stmt.Execute(ctx)
}
