package soci

import (
	"fmt"
	"reflect"
	"time"
)

// TypeFamily groups the handful of wire-level shapes a backend actually has
// to bind or fetch; it is the Go analogue of SOCI's exchange_traits<T>::type_family,
// collapsed from a compile-time trait onto a runtime tag since Go has no
// template specialization to dispatch on.
type TypeFamily int

const (
	FamilyBasic TypeFamily = iota
	FamilyUserDefined
	FamilyUserConversion
)

// basicKinds lists the Go types every backend binds/fetches natively,
// without going through the ConversionTraits registry. This mirrors the
// db_string/db_date/db_double/db_int32/db_int64/db_uint64 stock type tags
// bind_into<>() dispatches on in statement.cpp.
var basicKinds = map[reflect.Type]DataType{
	reflect.TypeOf(""):          DataString,
	reflect.TypeOf(int32(0)):    DataInt32,
	reflect.TypeOf(int64(0)):    DataInt64,
	reflect.TypeOf(int(0)):      DataInt64,
	reflect.TypeOf(uint64(0)):   DataUint64,
	reflect.TypeOf(float64(0)):  DataDouble,
	reflect.TypeOf(time.Time{}): DataDate,
	reflect.TypeOf([]byte(nil)): DataBlob,
}

// FamilyOf classifies a Go type for binding purposes: a stock basic type,
// a type with a registered ConversionTraits (user conversion), or
// user-defined (structs iterated field-by-field, the Go analogue of the
// Boost.Fusion sequence support bind-values.h gates behind SOCI_HAVE_BOOST).
func FamilyOf(t reflect.Type) TypeFamily {
	if _, ok := basicKinds[t]; ok {
		return FamilyBasic
	}
	if hasConversion(t) {
		return FamilyUserConversion
	}
	return FamilyUserDefined
}

// DataTypeOf returns the DataType tag for a stock basic Go type; ok is
// false for types that require a ConversionTraits or struct-tag binding.
func DataTypeOf(t reflect.Type) (DataType, bool) {
	dt, ok := basicKinds[t]
	return dt, ok
}

// goTypeForData is the reverse of basicKinds, used to allocate a staging
// value for a Row column whose DataType is known (from describe) but whose
// Go type was never chosen by the caller.
var goTypeForData = map[DataType]reflect.Type{
	DataString: reflect.TypeOf(""),
	DataDate:   reflect.TypeOf(time.Time{}),
	DataDouble: reflect.TypeOf(float64(0)),
	DataInt32:  reflect.TypeOf(int32(0)),
	DataInt64:  reflect.TypeOf(int64(0)),
	DataUint64: reflect.TypeOf(uint64(0)),
	DataBlob:   reflect.TypeOf([]byte(nil)),
}

// newStagingFor allocates an addressable reflect.Value of the stock Go
// type matching dt, for dynamically fetching one Row column whose shape
// is only known after describe().
func newStagingFor(dt DataType) reflect.Value {
	t, ok := goTypeForData[dt]
	if !ok {
		t = reflect.TypeOf("")
	}
	return reflect.New(t).Elem()
}

// describeType renders a reflect.Type for error messages without importing
// fmt at every call site.
func describeType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s.%s", t.PkgPath(), t.Name())
}
