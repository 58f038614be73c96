// Package socimysql is the MySQL backend: a backend.Factory over
// database/sql plus the go-sql-driver/mysql driver, the Go rendering of
// src/backends/mysql/ adapted the way kdbx.MySQLDB already wraps
// database/sql for this module's other packages.
package socimysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/soci-go/soci"
	"github.com/soci-go/soci/backend"
)

func init() {
	// Static registration, the Go analogue of the static
	// backend_factory_mysql instance src/backends/mysql/factory.cpp
	// constructs at load time.
	soci.Register("mysql", factory{})
}

type factory struct{}

func (factory) Open(ctx context.Context, connString string) (backend.Session, error) {
	dsn, err := translateConnString(connString)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("socimysql: failed to open connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("socimysql: failed to ping database: %w", err)
	}

	return &Session{db: db}, nil
}

// translateConnString accepts SOCI's "key=value" connection grammar and
// renders MySQL's "user:pass@tcp(host:port)/dbname" DSN, the same
// buildMySQLDSN translation kdbx.NewMySQL performs from its own Config.
func translateConnString(s string) (string, error) {
	params, err := soci.ParseConnectionString(s)
	if err != nil {
		// Already a driver-native DSN; pass through unchanged.
		return s, nil
	}

	user := params["user"]
	pass := params["password"]
	host := params["host"]
	if host == "" {
		host = "127.0.0.1"
	}
	port := params["port"]
	if port == "" {
		port = "3306"
	}
	dbname := params["dbname"]

	cred := user
	if pass != "" {
		cred = fmt.Sprintf("%s:%s", user, pass)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?parseTime=true", cred, host, port, dbname), nil
}

// querier is the subset of *sql.DB and *sql.Tx Statement needs; Session
// swaps which one is active depending on whether a transaction is open.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Session wraps a *sql.DB, the Go rendering of mysql_session_backend.
type Session struct {
	db *sql.DB
	tx *sql.Tx
	q  querier
}

func (s *Session) Begin(ctx context.Context) error {
	if s.tx != nil {
		return fmt.Errorf("socimysql: transaction already in progress")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	s.tx = tx
	s.q = tx
	return nil
}

func (s *Session) Commit(ctx context.Context) error {
	if s.tx == nil {
		return fmt.Errorf("socimysql: no transaction in progress")
	}
	err := s.tx.Commit()
	s.tx = nil
	s.q = nil
	return err
}

func (s *Session) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return fmt.Errorf("socimysql: no transaction in progress")
	}
	err := s.tx.Rollback()
	s.tx = nil
	s.q = nil
	return err
}

func (s *Session) activeQuerier() querier {
	if s.q != nil {
		return s.q
	}
	return s.db
}

func (s *Session) IsConnected(ctx context.Context) bool { return s.db.PingContext(ctx) == nil }

func (s *Session) Reconnect(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Session) Close(ctx context.Context) error { return s.db.Close() }

func (s *Session) BackendName() string { return "mysql" }

// Placeholder renders MySQL's native "?" positional marker, identical at
// every ordinal since MySQL placeholders aren't numbered.
func (s *Session) Placeholder(ordinal int) string { return "?" }

func (s *Session) MakeStatement() backend.Statement {
	return &Statement{sess: s, usesByPos: map[int]backend.UseSpec{}, intoByPos: map[int]backend.IntoSpec{}}
}

func (s *Session) MakeBlob(ctx context.Context) (backend.Blob, error) {
	return nil, backend.ErrUnsupported
}

func (s *Session) MakeRowID(ctx context.Context) (backend.RowID, error) {
	return nil, backend.ErrUnsupported
}

func (s *Session) GetNextSequenceValue(ctx context.Context, sequence string) (int64, bool, error) {
	// MySQL has no sequence objects; callers rely on AUTO_INCREMENT and
	// GetLastInsertID instead.
	return 0, false, nil
}

func (s *Session) GetLastInsertID(ctx context.Context, table string) (int64, bool, error) {
	var id int64
	// SELECT LAST_INSERT_ID() is connection-scoped, so this must run on the
	// same underlying connection as the preceding INSERT; database/sql pools
	// connections per call, so a caller that needs this guarantee should use
	// session.Once within an explicit transaction (Begin/Commit) instead.
	rows, err := s.activeQuerier().QueryContext(ctx, "SELECT LAST_INSERT_ID()")
	if err != nil {
		return 0, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return 0, false, rows.Err()
	}
	if err := rows.Scan(&id); err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *Session) TableNames(ctx context.Context) ([]string, error) {
	rows, err := s.activeQuerier().QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
