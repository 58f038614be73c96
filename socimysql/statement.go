package socimysql

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/soci-go/soci"
	"github.com/soci-go/soci/backend"
)

// Statement is the Go rendering of mysql_statement_backend, built on
// database/sql's generic driver.Value scanning (scanning every column into
// an `any` destination) the same way pgx.Rows.Values() hands back natively
// decoded values for socipg; the engine's bound IntoSpec.DataType then
// drives the coercion into SOCI's fixed exchange type set.
type Statement struct {
	sess  *Session
	query string

	usesByPos map[int]backend.UseSpec
	intoByPos map[int]backend.IntoSpec

	colNames []string
	colTypes []*sql.ColumnType
	rows     *sql.Rows
	buf      [][]any
	rowsAff  int64
}

func (st *Statement) Prepare(ctx context.Context, query string) error {
	st.query = query
	return nil
}

// RewriteForProcedureCall wraps query in MySQL's "{call proc(...)}" ODBC
// escape syntax when it looks like a bare procedure name; a query that
// already contains whitespace (a full statement) passes through unchanged.
func (st *Statement) RewriteForProcedureCall(query string) string {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" || strings.ContainsAny(trimmed, " \t\n(") {
		return query
	}
	return fmt.Sprintf("{call %s()}", trimmed)
}

func (st *Statement) NewUse(pos int, spec backend.UseSpec) (backend.UseTypeBackend, error) {
	st.usesByPos[pos] = spec
	return &useBinding{}, nil
}

func (st *Statement) NewInto(pos int, spec backend.IntoSpec) (backend.IntoTypeBackend, error) {
	st.intoByPos[pos] = spec
	return &intoBinding{stmt: st, pos: pos}, nil
}

func (st *Statement) args() []any {
	n := 0
	for pos := range st.usesByPos {
		if pos > n {
			n = pos
		}
	}
	out := make([]any, n)
	for pos, spec := range st.usesByPos {
		if spec.Ptr.IsValid() {
			out[pos-1] = spec.Ptr.Interface()
		}
	}
	return out
}

func (st *Statement) Execute(ctx context.Context, rowsRequested int) (backend.ExecResult, error) {
	if looksLikeSelect(st.query) {
		rows, err := st.sess.activeQuerier().QueryContext(ctx, st.query, st.args()...)
		if err != nil {
			return backend.ExecResult{}, fmt.Errorf("socimysql: query failed: %w", err)
		}
		cols, err := rows.Columns()
		if err != nil {
			rows.Close()
			return backend.ExecResult{}, err
		}
		types, err := rows.ColumnTypes()
		if err != nil {
			rows.Close()
			return backend.ExecResult{}, err
		}
		st.colNames = cols
		st.colTypes = types
		st.rows = rows
		return backend.ExecResult{GotData: true, NumColumns: len(cols)}, nil
	}

	res, err := st.sess.activeQuerier().ExecContext(ctx, st.query, st.args()...)
	if err != nil {
		return backend.ExecResult{}, fmt.Errorf("socimysql: exec failed: %w", err)
	}
	aff, _ := res.RowsAffected()
	st.rowsAff = aff
	return backend.ExecResult{GotData: false, RowsAffected: aff}, nil
}

func looksLikeSelect(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	return strings.HasPrefix(q, "SELECT") || strings.HasPrefix(q, "SHOW") || strings.HasPrefix(q, "WITH")
}

func (st *Statement) Fetch(ctx context.Context, rowsRequested int) (backend.FetchResult, error) {
	if st.rows == nil {
		return backend.FetchResult{}, nil
	}
	st.buf = st.buf[:0]
	for len(st.buf) < rowsRequested {
		if !st.rows.Next() {
			break
		}
		dest := make([]any, len(st.colNames))
		ptrs := make([]any, len(st.colNames))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := st.rows.Scan(ptrs...); err != nil {
			return backend.FetchResult{}, fmt.Errorf("socimysql: scan failed: %w", err)
		}
		st.buf = append(st.buf, dest)
	}
	if len(st.buf) == 0 {
		st.rows.Close()
		return backend.FetchResult{GotData: false}, st.rows.Err()
	}
	return backend.FetchResult{RowsFetched: len(st.buf), GotData: true}, nil
}

func (st *Statement) ColumnCount() int { return len(st.colNames) }

func (st *Statement) DescribeColumn(pos int) (backend.ColumnProperties, error) {
	if pos < 1 || pos > len(st.colNames) {
		return backend.ColumnProperties{}, fmt.Errorf("socimysql: column index %d out of range", pos)
	}
	return backend.ColumnProperties{
		Name:     st.colNames[pos-1],
		DataType: dataTypeForColumn(st.colTypes[pos-1]),
	}, nil
}

func (st *Statement) AffectedRows() (int64, error) { return st.rowsAff, nil }

func (st *Statement) Clean() error {
	if st.rows != nil {
		st.rows.Close()
		st.rows = nil
	}
	return nil
}

type useBinding struct{}

func (*useBinding) PreUse() error      { return nil }
func (*useBinding) PostUse(bool) error { return nil }
func (*useBinding) CleanUp() error     { return nil }

type intoBinding struct {
	stmt   *Statement
	pos    int
	cursor int
}

func (b *intoBinding) PreFetch() error {
	b.cursor = 0
	return nil
}

func (b *intoBinding) PostFetch(gotData bool, calledFromFetch bool) (backend.Indicator, error) {
	if b.cursor >= len(b.stmt.buf) {
		return backend.Null, fmt.Errorf("socimysql: no buffered row for column %d", b.pos)
	}
	row := b.stmt.buf[b.cursor]
	b.cursor++

	if b.pos-1 >= len(row) {
		return backend.Null, fmt.Errorf("socimysql: column index %d out of range", b.pos)
	}
	raw := row[b.pos-1]

	spec := b.stmt.intoByPos[b.pos]
	if raw == nil {
		return backend.Null, nil
	}

	v, err := coerceToDataType(raw, spec.DataType)
	if err != nil {
		return backend.Null, err
	}

	if spec.Vector {
		idx := b.cursor - 1
		backend.SetSliceElem(spec.Ptr, idx, reflect.ValueOf(v))
	} else if spec.Ptr.IsValid() {
		spec.Ptr.Set(reflect.ValueOf(v))
	}
	return backend.Ok, nil
}

func (b *intoBinding) CleanUp() error { return nil }

// coerceToDataType converts the driver.Value the go-sql-driver/mysql driver
// handed back (typically []byte, int64, float64 or time.Time with
// parseTime=true) into the stock Go type dt expects.
func coerceToDataType(raw any, dt backend.DataType) (any, error) {
	switch dt {
	case backend.DataString:
		switch v := raw.(type) {
		case []byte:
			return string(v), nil
		case string:
			return v, nil
		default:
			return fmt.Sprintf("%v", v), nil
		}
	case backend.DataInt32:
		n, err := asInt64(raw)
		if err != nil {
			return nil, err
		}
		return int32(n), nil
	case backend.DataInt64:
		return asInt64(raw)
	case backend.DataUint64:
		n, err := asInt64(raw)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, soci.New(soci.InvalidStatement, fmt.Sprintf("socimysql: column value %d overflows uint64 destination", n))
		}
		return uint64(n), nil
	case backend.DataDouble:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case []byte:
			var f float64
			if _, err := fmt.Sscanf(string(v), "%g", &f); err != nil {
				return nil, fmt.Errorf("socimysql: cannot convert %q to double", v)
			}
			return f, nil
		default:
			return nil, fmt.Errorf("socimysql: cannot convert %T to double", raw)
		}
	case backend.DataDate:
		if v, ok := raw.(time.Time); ok {
			return v, nil
		}
		return nil, fmt.Errorf("socimysql: cannot convert %T to date (enable parseTime in the DSN)", raw)
	case backend.DataBlob:
		if v, ok := raw.([]byte); ok {
			return v, nil
		}
		return nil, fmt.Errorf("socimysql: cannot convert %T to blob", raw)
	default:
		return raw, nil
	}
}

func asInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case []byte:
		var n int64
		if _, err := fmt.Sscanf(string(v), "%d", &n); err != nil {
			return 0, fmt.Errorf("socimysql: cannot convert %q to integer", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("socimysql: cannot convert %T to integer", raw)
	}
}

func dataTypeForColumn(t *sql.ColumnType) backend.DataType {
	switch strings.ToUpper(t.DatabaseTypeName()) {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT":
		return backend.DataInt32
	case "BIGINT":
		return backend.DataInt64
	case "FLOAT", "DOUBLE", "DECIMAL":
		return backend.DataDouble
	case "DATE", "DATETIME", "TIMESTAMP":
		return backend.DataDate
	case "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB", "BINARY", "VARBINARY":
		return backend.DataBlob
	default:
		return backend.DataString
	}
}
