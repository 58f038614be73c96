package soci

import (
	"context"
	"testing"
)

func openFakeSession(t *testing.T) (*Session, *fakeSessionBackend) {
	t.Helper()
	be := newFakeUsersBackend()
	name := "fake-statement-test-backend"
	Register(name, fakeFactoryBackend{be: be})
	s, err := Open(context.Background(), name, "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return s, be
}

func TestStatementScalarFetchLoop(t *testing.T) {
	ctx := context.Background()
	s, _ := openFakeSession(t)

	st, err := s.Prepare(ctx, "SELECT id, name FROM users")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	defer st.Close()

	var id int64
	var name string
	st.Bind(Into(&id), Into(&name))

	if err := st.Execute(ctx); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !st.GotData() {
		t.Fatal("expected GotData true for a SELECT")
	}

	// Execute auto-consumes the first row (non-Row scalar intos, no Row
	// bound), so it must already match the first seeded row.
	if id != 1 || name != "alice" {
		t.Fatalf("expected first row (1, alice) after Execute, got (%d, %s)", id, name)
	}

	var got [][2]any
	got = append(got, [2]any{id, name})
	for {
		ok, err := st.Fetch(ctx)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if !ok {
			break
		}
		got = append(got, [2]any{id, name})
	}

	want := [][2]any{{int64(1), "alice"}, {int64(2), "bob"}, {int64(3), "carol"}}
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestStatementUseBindingCapturesValue(t *testing.T) {
	ctx := context.Background()
	s, be := openFakeSession(t)

	st, err := s.Prepare(ctx, "SELECT id FROM users WHERE id = ?")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	defer st.Close()

	var id int64
	st.Bind(Use(int64(2)), Into(&id))

	if err := st.Execute(ctx); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if v, ok := be.lastUseValues[1].(int64); !ok || v != 2 {
		t.Errorf("expected the backend to observe use value int64(2) at ordinal 1, got %v", be.lastUseValues[1])
	}
}

func TestStatementAffectedRowsForDML(t *testing.T) {
	ctx := context.Background()
	s, be := openFakeSession(t)
	be.affected = 7

	st, err := s.Prepare(ctx, "UPDATE users SET name = ?")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	defer st.Close()

	st.Bind(Use("bob2"))
	if err := st.Execute(ctx); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if st.GotData() {
		t.Fatal("expected GotData false for an UPDATE")
	}

	n, err := st.AffectedRows()
	if err != nil {
		t.Fatalf("AffectedRows() error = %v", err)
	}
	if n != 7 {
		t.Errorf("expected 7 affected rows, got %d", n)
	}
}

func TestStatementCloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := openFakeSession(t)

	st, err := s.Prepare(ctx, "SELECT id FROM users")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestStatementExecuteAfterCloseFails(t *testing.T) {
	ctx := context.Background()
	s, _ := openFakeSession(t)

	st, err := s.Prepare(ctx, "SELECT id FROM users")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := st.Execute(ctx); err == nil {
		t.Error("expected Execute on a closed statement to fail")
	} else if CategoryOf(err) != InvalidStatement {
		t.Errorf("expected InvalidStatement, got %v", CategoryOf(err))
	}
}

// TestStatementBindingModeExclusivity covers E2E scenario #5: a statement
// that binds named uses and then a positional use must fail with
// InvalidStatement before ever reaching the backend.
func TestStatementBindingModeExclusivity(t *testing.T) {
	ctx := context.Background()
	s, _ := openFakeSession(t)

	st, err := s.Prepare(ctx, "SELECT id FROM users WHERE name = :a AND id = :b")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	defer st.Close()

	st.Bind(UseName("a", "hi"), UseName("b", int64(7)), Use(9))

	if err := st.Execute(ctx); err == nil {
		t.Fatal("expected Execute to fail when a statement mixes named and positional uses")
	} else if CategoryOf(err) != InvalidStatement {
		t.Errorf("expected InvalidStatement, got %v", CategoryOf(err))
	}
}

// TestStatementVectorIntoSizeZeroRejected covers
// vectors_of_size_0_not_allowed: a vector into of length 0 must fail
// Execute with InvalidStatement rather than silently requesting 0 rows.
func TestStatementVectorIntoSizeZeroRejected(t *testing.T) {
	ctx := context.Background()
	s, _ := openFakeSession(t)

	st, err := s.Prepare(ctx, "SELECT id FROM users")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	defer st.Close()

	ids := []int64{}
	st.Bind(Into(&ids))

	if err := st.Execute(ctx); err == nil {
		t.Fatal("expected Execute to fail for a vector into of size 0")
	} else if CategoryOf(err) != InvalidStatement {
		t.Errorf("expected InvalidStatement, got %v", CategoryOf(err))
	}
}

// TestStatementBulkUseAndBulkIntoRejected covers the §4.5 Execute step 3
// rule: a bulk (vector) use combined with a bulk (vector) into in the same
// statement is rejected before the backend is touched.
func TestStatementBulkUseAndBulkIntoRejected(t *testing.T) {
	ctx := context.Background()
	s, _ := openFakeSession(t)

	st, err := s.Prepare(ctx, "SELECT id FROM users WHERE name = ?")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	defer st.Close()

	names := []string{"alice", "bob"}
	ids := make([]int64, 2)
	st.Bind(Use(names), Into(&ids))

	if err := st.Execute(ctx); err == nil {
		t.Fatal("expected Execute to fail when combining a bulk use with a bulk into")
	} else if CategoryOf(err) != InvalidStatement {
		t.Errorf("expected InvalidStatement, got %v", CategoryOf(err))
	}
}

// TestStatementVectorFetchMonotonicity covers I4: growing a bound vector
// into's slice between Fetch calls must be rejected with InvalidStatement
// instead of silently requesting a larger round than Execute sized.
func TestStatementVectorFetchMonotonicity(t *testing.T) {
	ctx := context.Background()
	s, _ := openFakeSession(t)

	st, err := s.Prepare(ctx, "SELECT id FROM users")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	defer st.Close()

	ids := make([]int64, 2)
	st.Bind(Into(&ids))

	if err := st.Execute(ctx); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("expected first round [1 2], got %v", ids)
	}

	ids = append(ids, 0)
	if _, err := st.Fetch(ctx); err == nil {
		t.Fatal("expected Fetch to fail when the bound vector into grows between rounds")
	} else if CategoryOf(err) != InvalidStatement {
		t.Errorf("expected InvalidStatement, got %v", CategoryOf(err))
	}
}

func TestStatementRowDrivenFetch(t *testing.T) {
	ctx := context.Background()
	s, _ := openFakeSession(t)

	st, err := s.Prepare(ctx, "SELECT id, name FROM users")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	defer st.Close()

	row := NewRow()
	st.Bind(Into(row))

	if err := st.Execute(ctx); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var rows [][2]any
	for {
		ok, err := st.Fetch(ctx)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if !ok {
			break
		}
		id, err := GetByName[int64](row, "id")
		if err != nil {
			t.Fatalf("GetByName(id) error = %v", err)
		}
		name, err := GetByName[string](row, "name")
		if err != nil {
			t.Fatalf("GetByName(name) error = %v", err)
		}
		rows = append(rows, [2]any{id, name})
	}

	want := [][2]any{{int64(1), "alice"}, {int64(2), "bob"}, {int64(3), "carol"}}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d: got %v, want %v", i, rows[i], want[i])
		}
	}
}
