package soci

import (
	"context"
	"reflect"

	"github.com/soci-go/soci/backend"
)

// fakeSessionBackend is a minimal in-memory backend.Session/backend.Statement
// pair used only by this package's own tests to exercise the engine in
// statement.go without a real driver, the same role a hand-rolled fake
// connection plays in kdbx's own tests for code that otherwise needs a live
// database.
type fakeSessionBackend struct {
	columns  []backend.ColumnProperties
	rows     [][]any
	affected int64

	lastUseValues map[int]any
}

func newFakeUsersBackend() *fakeSessionBackend {
	return &fakeSessionBackend{
		columns: []backend.ColumnProperties{
			{Name: "id", DataType: DataInt64},
			{Name: "name", DataType: DataString},
		},
		rows: [][]any{
			{int64(1), "alice"},
			{int64(2), "bob"},
			{int64(3), "carol"},
		},
		affected:      1,
		lastUseValues: map[int]any{},
	}
}

func (s *fakeSessionBackend) Begin(ctx context.Context) error      { return nil }
func (s *fakeSessionBackend) Commit(ctx context.Context) error     { return nil }
func (s *fakeSessionBackend) Rollback(ctx context.Context) error   { return nil }
func (s *fakeSessionBackend) IsConnected(ctx context.Context) bool { return true }
func (s *fakeSessionBackend) Reconnect(ctx context.Context) error  { return nil }
func (s *fakeSessionBackend) Close(ctx context.Context) error      { return nil }
func (s *fakeSessionBackend) BackendName() string                 { return "fake" }
func (s *fakeSessionBackend) Placeholder(ordinal int) string       { return "?" }

func (s *fakeSessionBackend) MakeStatement() backend.Statement {
	return &fakeStatement{
		sess:      s,
		usesByPos: map[int]backend.UseSpec{},
		intoByPos: map[int]backend.IntoSpec{},
	}
}

func (s *fakeSessionBackend) MakeBlob(ctx context.Context) (backend.Blob, error) {
	return nil, backend.ErrUnsupported
}
func (s *fakeSessionBackend) MakeRowID(ctx context.Context) (backend.RowID, error) {
	return nil, backend.ErrUnsupported
}
func (s *fakeSessionBackend) GetNextSequenceValue(ctx context.Context, sequence string) (int64, bool, error) {
	return 0, false, nil
}
func (s *fakeSessionBackend) GetLastInsertID(ctx context.Context, table string) (int64, bool, error) {
	return 0, false, nil
}
func (s *fakeSessionBackend) TableNames(ctx context.Context) ([]string, error) { return nil, nil }

type fakeFactoryBackend struct{ be *fakeSessionBackend }

func (f fakeFactoryBackend) Open(ctx context.Context, connString string) (backend.Session, error) {
	return f.be, nil
}

// fakeStatement drives the same buffered-row-cursor pattern socipg and
// socimysql use: Fetch pulls rowsRequested rows into buf in one shot, and
// each intoBinding pops the next buffered row via a shared cursor.
type fakeStatement struct {
	sess *fakeSessionBackend

	query     string
	usesByPos map[int]backend.UseSpec
	intoByPos map[int]backend.IntoSpec

	fetchIdx int
	buf      [][]any
	cursor   int
}

func (st *fakeStatement) Prepare(ctx context.Context, query string) error {
	st.query = query
	return nil
}

func (st *fakeStatement) RewriteForProcedureCall(query string) string { return query }

func (st *fakeStatement) NewUse(pos int, spec backend.UseSpec) (backend.UseTypeBackend, error) {
	st.usesByPos[pos] = spec
	return &fakeUseBinding{stmt: st, pos: pos}, nil
}

func (st *fakeStatement) NewInto(pos int, spec backend.IntoSpec) (backend.IntoTypeBackend, error) {
	st.intoByPos[pos] = spec
	return &fakeIntoBinding{stmt: st, pos: pos}, nil
}

func (st *fakeStatement) isSelect() bool {
	return len(st.query) >= 6 && st.query[:6] == "SELECT"
}

func (st *fakeStatement) Execute(ctx context.Context, rowsRequested int) (backend.ExecResult, error) {
	if !st.isSelect() {
		return backend.ExecResult{GotData: false, RowsAffected: st.sess.affected}, nil
	}
	return backend.ExecResult{GotData: true, NumColumns: len(st.sess.columns)}, nil
}

func (st *fakeStatement) Fetch(ctx context.Context, rowsRequested int) (backend.FetchResult, error) {
	remaining := len(st.sess.rows) - st.fetchIdx
	if remaining <= 0 {
		return backend.FetchResult{}, nil
	}
	n := rowsRequested
	if n > remaining {
		n = remaining
	}
	st.buf = st.sess.rows[st.fetchIdx : st.fetchIdx+n]
	st.fetchIdx += n
	st.cursor = 0
	return backend.FetchResult{RowsFetched: n, GotData: true}, nil
}

func (st *fakeStatement) ColumnCount() int { return len(st.sess.columns) }

func (st *fakeStatement) DescribeColumn(pos int) (backend.ColumnProperties, error) {
	return st.sess.columns[pos-1], nil
}

func (st *fakeStatement) AffectedRows() (int64, error) { return st.sess.affected, nil }

func (st *fakeStatement) Clean() error { return nil }

type fakeUseBinding struct {
	stmt *fakeStatement
	pos  int
}

func (b *fakeUseBinding) PreUse() error {
	spec := b.stmt.usesByPos[b.pos]
	b.stmt.sess.lastUseValues[b.pos] = spec.Ptr.Interface()
	return nil
}
func (b *fakeUseBinding) PostUse(gotData bool) error { return nil }
func (b *fakeUseBinding) CleanUp() error              { return nil }

type fakeIntoBinding struct {
	stmt   *fakeStatement
	pos    int
	vecIdx int
}

func (b *fakeIntoBinding) PreFetch() error {
	b.vecIdx = 0
	return nil
}

// PostFetch pops the next buffered row for this column. A vector into is
// driven once per row of the round by the engine's vector loop, so it
// indexes buf directly by vecIdx instead of sharing the scalar cursor
// (which advances once per row, on the last bound column).
func (b *fakeIntoBinding) PostFetch(gotData bool, calledFromFetch bool) (backend.Indicator, error) {
	spec := b.stmt.intoByPos[b.pos]

	if spec.Vector {
		row := b.stmt.buf[b.vecIdx]
		raw := row[b.pos-1]
		idx := b.vecIdx
		b.vecIdx++
		if raw == nil {
			return backend.Null, nil
		}
		spec.Ptr.Index(idx).Set(reflect.ValueOf(raw))
		return backend.Ok, nil
	}

	row := b.stmt.buf[b.stmt.cursor]
	raw := row[b.pos-1]
	if b.pos == len(row) {
		b.stmt.cursor++
	}
	if raw == nil {
		return backend.Null, nil
	}
	spec.Ptr.Set(reflect.ValueOf(raw))
	return backend.Ok, nil
}

func (b *fakeIntoBinding) CleanUp() error { return nil }
