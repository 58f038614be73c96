package socipg

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/soci-go/soci"
	"github.com/soci-go/soci/backend"
)

// Statement is the Go rendering of postgresql_statement_backend, built
// directly on pgx.Rows.Values() instead of a fixed Scan destination list:
// every column comes back already decoded to its natural Go type, and the
// engine's bound IntoSpec.DataType tells us how to coerce that into the
// exchange shape SOCI callers expect.
type Statement struct {
	sess  *Session
	query string

	usesByPos map[int]backend.UseSpec
	intoByPos map[int]backend.IntoSpec

	fields  []pgconn.FieldDescription
	rows    pgx.Rows
	buf     [][]any
	rowsAff int64
}

func (st *Statement) Prepare(ctx context.Context, query string) error {
	st.query = query
	return nil
}

func (st *Statement) RewriteForProcedureCall(query string) string { return query }

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
		out[pos-1] = pgValue(spec)
	}
	return out
}

// pgValue extracts the native Go value pgx should bind for one use, special-
// casing a NULL-indicated scalar the same way use.go stages it (a zero
// staging value plus an external indicator pointer).
func pgValue(spec backend.UseSpec) any {
	if !spec.Ptr.IsValid() {
		return nil
	}
	return spec.Ptr.Interface()
}

func (st *Statement) Execute(ctx context.Context, rowsRequested int) (backend.ExecResult, error) {
	rows, err := st.sess.q.Query(ctx, st.query, st.args()...)
	if err != nil {
		return backend.ExecResult{}, fmt.Errorf("socipg: query failed: %w", err)
	}

	fields := rows.FieldDescriptions()
	if len(fields) == 0 {
		rows.Close()
		tag := rows.CommandTag()
		st.rowsAff = tag.RowsAffected()
		return backend.ExecResult{GotData: false, RowsAffected: st.rowsAff, NumColumns: 0}, rows.Err()
	}

	st.fields = fields
	st.rows = rows
	return backend.ExecResult{GotData: true, NumColumns: len(fields)}, nil
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
		vals, err := st.rows.Values()
		if err != nil {
			return backend.FetchResult{}, fmt.Errorf("socipg: scan failed: %w", err)
		}
		st.buf = append(st.buf, vals)
	}
	if len(st.buf) == 0 {
		st.rows.Close()
		return backend.FetchResult{GotData: false}, st.rows.Err()
	}
	return backend.FetchResult{RowsFetched: len(st.buf), GotData: true}, nil
}

func (st *Statement) ColumnCount() int { return len(st.fields) }

func (st *Statement) DescribeColumn(pos int) (backend.ColumnProperties, error) {
	if pos < 1 || pos > len(st.fields) {
		return backend.ColumnProperties{}, fmt.Errorf("socipg: column index %d out of range", pos)
	}
	f := st.fields[pos-1]
	return backend.ColumnProperties{Name: string(f.Name), DataType: dataTypeForOID(f.DataTypeOID)}, nil
}

func (st *Statement) AffectedRows() (int64, error) { return st.rowsAff, nil }

func (st *Statement) Clean() error {
	if st.rows != nil {
		st.rows.Close()
		st.rows = nil
	}
	return nil
}

// useBinding is a no-op UseTypeBackend: the actual value is pulled straight
// out of Statement.usesByPos when Execute builds the args slice, since pgx
// binds parameters positionally at Query time rather than through a
// separate bind step.
type useBinding struct{}

func (*useBinding) PreUse() error      { return nil }
func (*useBinding) PostUse(bool) error { return nil }
func (*useBinding) CleanUp() error     { return nil }

// intoBinding reads fetched values back out of Statement.buf, the
// describe-then-fetch dance driven by the core engine in statement.go.
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
		return backend.Null, fmt.Errorf("socipg: no buffered row for column %d", b.pos)
	}
	row := b.stmt.buf[b.cursor]
	b.cursor++

	if b.pos-1 >= len(row) {
		return backend.Null, fmt.Errorf("socipg: column index %d out of range", b.pos)
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

// coerceToDataType converts a pgx-decoded value into the stock Go type dt
// expects, the bridge between pgx's native type mapping and SOCI's fixed
// db_string/db_int32/db_int64/db_uint64/db_double/db_date/db_blob set.
func coerceToDataType(raw any, dt backend.DataType) (any, error) {
	switch dt {
	case backend.DataString:
		switch v := raw.(type) {
		case string:
			return v, nil
		case [16]byte:
			return fmt.Sprintf("%x", v), nil
		default:
			return fmt.Sprintf("%v", v), nil
		}
	case backend.DataInt32:
		return toInt64(raw, int32(0))
	case backend.DataInt64:
		return toInt64(raw, int64(0))
	case backend.DataUint64:
		n, err := toInt64(raw, int64(0))
		if err != nil {
			return nil, err
		}
		signed := n.(int64)
		if signed < 0 {
			return nil, soci.New(soci.InvalidStatement, fmt.Sprintf("socipg: column value %d overflows uint64 destination", signed))
		}
		return uint64(signed), nil
	case backend.DataDouble:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		default:
			return nil, fmt.Errorf("socipg: cannot convert %T to double", raw)
		}
	case backend.DataDate:
		if v, ok := raw.(time.Time); ok {
			return v, nil
		}
		return nil, fmt.Errorf("socipg: cannot convert %T to date", raw)
	case backend.DataBlob:
		if v, ok := raw.([]byte); ok {
			return v, nil
		}
		return nil, fmt.Errorf("socipg: cannot convert %T to blob", raw)
	default:
		return raw, nil
	}
}

func toInt64(raw any, want any) (any, error) {
	switch v := raw.(type) {
	case int16:
		return widen(int64(v), want), nil
	case int32:
		return widen(int64(v), want), nil
	case int64:
		return widen(v, want), nil
	default:
		return nil, fmt.Errorf("socipg: cannot convert %T to integer", raw)
	}
}

func widen(v int64, want any) any {
	switch want.(type) {
	case int32:
		return int32(v)
	default:
		return v
	}
}
