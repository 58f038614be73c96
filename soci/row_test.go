package soci

import (
	"testing"

	"github.com/soci-go/soci/backend"
)

func newTestRow() *Row {
	r := NewRow()
	r.addColumn(backend.ColumnProperties{Name: "id", DataType: DataInt64})
	r.addColumn(backend.ColumnProperties{Name: "name", DataType: DataString})
	r.set(0, int64(42), Ok)
	r.set(1, "alice", Ok)
	return r
}

func TestRowGetByPosition(t *testing.T) {
	r := newTestRow()
	id, err := Get[int64](r, 0)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if id != 42 {
		t.Errorf("expected 42, got %d", id)
	}
}

func TestRowGetByName(t *testing.T) {
	r := newTestRow()
	name, err := GetByName[string](r, "name")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if name != "alice" {
		t.Errorf("expected alice, got %q", name)
	}
}

func TestRowGetByNameUnknownColumn(t *testing.T) {
	r := newTestRow()
	if _, err := GetByName[string](r, "nope"); err == nil {
		t.Error("expected an error for an unknown column name")
	} else if CategoryOf(err) != InvalidStatement {
		t.Errorf("expected InvalidStatement, got %s", CategoryOf(err))
	}
}

func TestRowGetOutOfRange(t *testing.T) {
	r := newTestRow()
	if _, err := Get[int64](r, 5); err == nil {
		t.Error("expected an error for an out-of-range column index")
	}
}

func TestRowGetNullWithoutConversion(t *testing.T) {
	r := NewRow()
	r.addColumn(backend.ColumnProperties{Name: "n", DataType: DataInt64})
	r.set(0, nil, Null)
	if _, err := Get[int64](r, 0); !IsNoData(err) {
		t.Errorf("expected NoData for a NULL column, got %v", err)
	}
}

func TestRowGetCoercesNumericType(t *testing.T) {
	r := NewRow()
	r.addColumn(backend.ColumnProperties{Name: "n", DataType: DataInt64})
	r.set(0, int64(7), Ok)
	v, err := Get[int32](r, 0)
	if err != nil {
		t.Fatalf("Get[int32]() error = %v", err)
	}
	if v != 7 {
		t.Errorf("expected 7, got %d", v)
	}
}

func TestRowGetRejectsOverflowingUint64(t *testing.T) {
	r := NewRow()
	r.addColumn(backend.ColumnProperties{Name: "n", DataType: DataUint64})
	r.set(0, uint64(1)<<63, Ok)
	if _, err := Get[int64](r, 0); err == nil {
		t.Error("expected an error when a uint64 column overflows an int64 destination")
	}
}

func TestRowUppercaseColumnNames(t *testing.T) {
	r := NewRow()
	r.UppercaseColumnNames(true)
	r.addColumn(backend.ColumnProperties{Name: "name", DataType: DataString})
	r.set(0, "bob", Ok)
	v, err := GetByName[string](r, "NAME")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if v != "bob" {
		t.Errorf("expected bob, got %q", v)
	}
}
