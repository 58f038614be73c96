package soci

import (
	"fmt"
	"math"
	"reflect"

	"github.com/soci-go/soci/backend"
)

// ColumnProperties describes one column of a Row, the Go analogue of
// soci::column_properties.
type ColumnProperties = backend.ColumnProperties

// Row is the dynamic, column-by-column result carrier used when the
// caller doesn't bind a concrete Go type (query shape unknown ahead of
// time), the Go port of soci::row. Unlike the C++ version, which streams
// columns via operator>>, Row exposes an explicit cursor (Next/Skip/ResetCursor)
// plus random-access Get for callers who know the column position.
type Row struct {
	uppercase bool
	props     []ColumnProperties
	values    []any
	indicator []Indicator
	byName    map[string]int
	cursor    int
}

// NewRow constructs an empty Row; statement.go appends columns to it as
// describe/fetch progress. Application code never needs to call this
// directly outside of tests.
func NewRow() *Row {
	return &Row{byName: make(map[string]int)}
}

// UppercaseColumnNames controls whether ByName lookups upper-case the
// column name before comparing, matching row::uppercase_column_names.
func (r *Row) UppercaseColumnNames(enabled bool) {
	r.uppercase = enabled
}

// addColumn registers a described column; called once per column during
// the describe phase.
func (r *Row) addColumn(props ColumnProperties) {
	r.props = append(r.props, props)
	name := props.Name
	if r.uppercase {
		name = toUpper(name)
	}
	r.byName[name] = len(r.props) - 1
}

// set stores the fetched value and indicator for column pos (0-based),
// called once per column per fetched row by the statement engine.
func (r *Row) set(pos int, value any, ind Indicator) {
	for len(r.values) <= pos {
		r.values = append(r.values, nil)
		r.indicator = append(r.indicator, Ok)
	}
	r.values[pos] = value
	r.indicator[pos] = ind
}

// reset clears fetched values (but not column descriptions) ahead of the
// next fetched row, matching row::clean_up without discarding metadata.
func (r *Row) reset() {
	r.values = r.values[:0]
	r.indicator = r.indicator[:0]
	r.cursor = 0
}

// Size returns the number of described columns.
func (r *Row) Size() int { return len(r.props) }

// Properties returns column pos's (0-based) description.
func (r *Row) Properties(pos int) (ColumnProperties, error) {
	if pos < 0 || pos >= len(r.props) {
		return ColumnProperties{}, New(InvalidStatement, fmt.Sprintf("row: column index %d out of range [0,%d)", pos, len(r.props)))
	}
	return r.props[pos], nil
}

// PropertiesByName returns the description of the column named name.
func (r *Row) PropertiesByName(name string) (ColumnProperties, error) {
	pos, err := r.find(name)
	if err != nil {
		return ColumnProperties{}, err
	}
	return r.props[pos], nil
}

// IndicatorAt reports whether column pos's value is present, NULL, or
// truncated.
func (r *Row) IndicatorAt(pos int) (Indicator, error) {
	if pos < 0 || pos >= len(r.indicator) {
		return Ok, New(InvalidStatement, fmt.Sprintf("row: column index %d out of range", pos))
	}
	return r.indicator[pos], nil
}

func (r *Row) find(name string) (int, error) {
	key := name
	if r.uppercase {
		key = toUpper(name)
	}
	pos, ok := r.byName[key]
	if !ok {
		return 0, New(InvalidStatement, fmt.Sprintf("row: no column named %q", name))
	}
	return pos, nil
}

// Next advances the read cursor and reports whether a column remains,
// the Go analogue of streaming through a row via repeated operator>>.
func (r *Row) Next() bool {
	if r.cursor >= len(r.props) {
		return false
	}
	r.cursor++
	return true
}

// Skip advances the cursor by n columns without reading them.
func (r *Row) Skip(n int) { r.cursor += n }

// ResetCursor rewinds the read cursor to the first column.
func (r *Row) ResetCursor() { r.cursor = 0 }

// Get reads column pos (0-based) as T, applying a registered
// ConversionTraits for T if one exists, or a stock numeric/string
// coercion otherwise. A NULL column with no conversion returns a NoData
// error; callers that want null-tolerant reads should register a
// ConversionTraits whose from_base accepts ind == Null.
func Get[T any](r *Row, pos int) (T, error) {
	var zero T
	if pos < 0 || pos >= len(r.values) {
		return zero, New(InvalidStatement, fmt.Sprintf("row: column index %d out of range [0,%d)", pos, len(r.values)))
	}
	return convertColumn[T](r.values[pos], r.indicator[pos])
}

// GetByName reads the column named name as T.
func GetByName[T any](r *Row, name string) (T, error) {
	var zero T
	pos, err := r.find(name)
	if err != nil {
		return zero, err
	}
	return Get[T](r, pos)
}

// convertColumn applies from_base semantics: registered conversion first,
// then direct match, then numeric/string coercion.
func convertColumn[T any](base any, ind Indicator) (T, error) {
	var zero T
	t := reflect.TypeOf(zero)

	if v, err, ok := fromBaseValue(t, base, ind); ok {
		if err != nil {
			return zero, err
		}
		out, _ := v.(T)
		return out, nil
	}

	if ind == Null {
		return zero, New(NoData, "row: column is NULL")
	}

	if v, ok := base.(T); ok {
		return v, nil
	}

	out, err := coerce[T](base)
	if err != nil {
		return zero, err
	}
	return out, nil
}

// coerce performs the numeric_cast_t-style conversion row.h applies when
// the requested T differs from the column's stored base type (e.g.
// requesting int32 from a db_integer column, or int64 from a db_double
// one). Resolved per the original get_number()/numeric_cast_t behavior:
// a Dst/Src mismatch that would lose information raises InvalidStatement
// rather than silently truncating — this is the uint64-overflow rule
// called out explicitly for a uint64 source overflowing a signed
// destination.
func coerce[T any](base any) (T, error) {
	var zero T
	bv := reflect.ValueOf(base)
	tt := reflect.TypeOf(zero)
	if tt == nil {
		return zero, New(InvalidStatement, "row: cannot convert into a nil-typed destination")
	}

	switch bv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		// fall through to generic numeric/string conversion below
	default:
		return zero, New(InvalidStatement, fmt.Sprintf("row: cannot convert %s into %s", bv.Kind(), tt))
	}

	switch tt.Kind() {
	case reflect.String:
		if bv.Kind() != reflect.String {
			return zero, New(InvalidStatement, fmt.Sprintf("row: cannot convert %s into string", bv.Kind()))
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if bv.Kind() == reflect.Uint64 {
			u := bv.Uint()
			if u > math.MaxInt64 {
				return zero, New(InvalidStatement, "row: uint64 column value overflows signed destination type")
			}
		}
		if bv.Kind() == reflect.String {
			return zero, New(InvalidStatement, "row: cannot convert string into numeric type")
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if bv.Kind() == reflect.String {
			return zero, New(InvalidStatement, "row: cannot convert string into numeric type")
		}
		if isSignedKind(bv.Kind()) && bv.Int() < 0 {
			return zero, New(InvalidStatement, "row: negative column value does not fit an unsigned destination type")
		}
	case reflect.Float32, reflect.Float64:
		if bv.Kind() == reflect.String {
			return zero, New(InvalidStatement, "row: cannot convert string into numeric type")
		}
	default:
		return zero, New(InvalidStatement, fmt.Sprintf("row: cannot convert into %s", tt))
	}

	converted := bv.Convert(tt)
	out, _ := converted.Interface().(T)
	return out, nil
}

func isSignedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	default:
		return false
	}
}

func toUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
