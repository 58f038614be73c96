package soci

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// RowSet is the idiomatic-Go row-set iterator: Open a query, then call
// Next in a loop the way database/sql's *Rows is used, instead of SOCI's
// C++ rowset iterator/operator++. T may be a stock basic type, a type
// with a registered ConversionTraits, or a struct whose exportable fields
// are matched to columns by name (a `soci:"column_name"` tag overrides
// the default, matched case-insensitively) — the Go analogue of the
// Boost.Fusion struct-sequence binding bind-values.h gates behind
// SOCI_HAVE_BOOST.
type RowSet[T any] struct {
	stmt    *Statement
	row     *Row
	dest    *T
	isRow   bool
	err     error
	current T
	pending bool // first row already fetched by Execute, not yet returned
}

// Open prepares query, binds uses (positional Use()/named UseName()
// bindings) and the destination for T, and runs the first Execute. Call
// Next to advance to each row.
func Open[T any](ctx context.Context, s *Session, query string, uses ...*UseBinding) (*RowSet[T], error) {
	stmt, err := s.Prepare(ctx, query)
	if err != nil {
		return nil, err
	}

	rs := &RowSet[T]{stmt: stmt}

	var zero T
	t := reflect.TypeOf(zero)
	if t != nil && t.Kind() == reflect.Struct && FamilyOf(t) == FamilyUserDefined {
		rs.isRow = true
		row := NewRow()
		rs.row = row
		stmt.Bind(Into(row))
	} else {
		rs.dest = new(T)
		stmt.Bind(Into(rs.dest))
	}

	for _, u := range uses {
		stmt.Bind(u)
	}

	if err := stmt.Execute(ctx); err != nil {
		stmt.Close()
		return nil, err
	}
	rs.pending = !rs.isRow && stmt.GotData()

	return rs, nil
}

// Next advances to the next row, returning false at the end of the
// result set or on error (check Err after Next returns false).
func (rs *RowSet[T]) Next(ctx context.Context) bool {
	if rs.pending {
		rs.pending = false
		rs.current = *rs.dest
		return true
	}
	ok, err := rs.stmt.Fetch(ctx)
	if err != nil {
		rs.err = err
		return false
	}
	if !ok {
		return false
	}

	if rs.isRow {
		v, err := rowToStruct[T](rs.row)
		if err != nil {
			rs.err = err
			return false
		}
		rs.current = v
	} else {
		rs.current = *rs.dest
	}
	return true
}

// Value returns the row last produced by Next.
func (rs *RowSet[T]) Value() T { return rs.current }

// Err returns the first error encountered, if Next returned false early.
func (rs *RowSet[T]) Err() error { return rs.err }

// Close releases the underlying statement.
func (rs *RowSet[T]) Close() error { return rs.stmt.Close() }

func rowToStruct[T any](r *Row) (T, error) {
	var out T
	v := reflect.ValueOf(&out).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue // unexported
		}
		colName := field.Tag.Get("soci")
		if colName == "" {
			colName = field.Name
		}

		pos := findColumn(r, colName)
		if pos < 0 {
			continue // no matching column; leave the zero value
		}

		fv := v.Field(i)
		val, err := getInto(r, pos, fv.Type())
		if err != nil {
			return out, err
		}
		if val != nil {
			fv.Set(reflect.ValueOf(val))
		}
	}

	return out, nil
}

func findColumn(r *Row, name string) int {
	for i := 0; i < r.Size(); i++ {
		if strings.EqualFold(r.props[i].Name, name) {
			return i
		}
	}
	return -1
}

// getInto reads column pos as fieldType via convertColumn, using reflect
// since struct-field binding can't call the generic Get[T] function
// directly (T isn't known until runtime here).
func getInto(r *Row, pos int, fieldType reflect.Type) (any, error) {
	base := r.values[pos]
	ind := r.indicator[pos]

	if e, ok := lookupConversion(fieldType); ok {
		v, ind2, err := e.fromBaseAny(base, ind)
		_ = ind2
		return v, err
	}
	if ind == Null {
		return nil, nil
	}
	if reflect.TypeOf(base) == fieldType {
		return base, nil
	}
	out, err := coerceAny(base, fieldType)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// fromBaseAny and coerceAny are reflect-typed (not generic) counterparts
// of fromBaseValue/coerce, needed because rowToStruct only has a runtime
// reflect.Type, not a compile-time T, for each struct field.
func (e conversionEntry) fromBaseAny(base any, ind Indicator) (any, Indicator, error) {
	v, err := e.fromBase(base, ind)
	return v, ind, err
}

func coerceAny(base any, t reflect.Type) (any, error) {
	bv := reflect.ValueOf(base)
	if !bv.IsValid() {
		return nil, nil
	}
	switch bv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
	default:
		return nil, New(InvalidStatement, fmt.Sprintf("row: cannot convert %s into %s", bv.Kind(), t))
	}
	if t.Kind() == reflect.String && bv.Kind() != reflect.String {
		return nil, New(InvalidStatement, fmt.Sprintf("row: cannot convert %s into string", bv.Kind()))
	}
	if t.Kind() != reflect.String && bv.Kind() == reflect.String {
		return nil, New(InvalidStatement, "row: cannot convert string into numeric type")
	}
	return bv.Convert(t).Interface(), nil
}
