package soci

import (
	"fmt"
	"reflect"

	"github.com/soci-go/soci/backend"
)

// IntoBinding is the Go rendering of SOCI's into() binding objects: it
// remembers where a fetched value should land and, for types with a
// registered ConversionTraits, a staging value of the conversion's base
// type that the backend actually writes into (the engine then applies
// from_base to produce the final Go value, exactly as type_conversion<T>
// does in the original core).
type IntoBinding struct {
	kind      Kind
	dataType  DataType
	vector    bool
	elemType  reflect.Type
	finalElem reflect.Value // addressable destination (scalar: T; vector: []T)
	staging   reflect.Value // addressable staging value; == finalElem for FamilyBasic
	family    TypeFamily

	row    *Row
	values *Values

	indicatorPtr *Indicator
	err          error
}

// IntoOption configures an IntoBinding.
type IntoOption func(*IntoBinding)

// WithIndicator attaches an external Indicator the engine reports NULL/
// Truncated/Ok into after each fetch, the Go analogue of passing an
// eIndicator& alongside a into() binding in the original API.
func WithIndicator(ind *Indicator) IntoOption {
	return func(b *IntoBinding) { b.indicatorPtr = ind }
}

// Into creates a destination binding for dest, which must be a non-nil
// pointer to a stock basic type, a type with a registered
// ConversionTraits, a slice of either (for vector/bulk fetch), or *Row /
// *Values for dynamic column access.
func Into(dest any, opts ...IntoOption) *IntoBinding {
	b := &IntoBinding{}
	for _, o := range opts {
		o(b)
	}

	switch d := dest.(type) {
	case *Row:
		b.kind = KindRow
		b.row = d
		return b
	case *Values:
		b.kind = KindValues
		b.values = d
		return b
	}

	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		b.err = New(InvalidStatement, "soci.Into: destination must be a non-nil pointer")
		return b
	}
	elem := rv.Elem()

	if elem.Kind() == reflect.Slice {
		b.kind = KindVector
		b.vector = true
		b.elemType = elem.Type().Elem()
		b.finalElem = elem
	} else {
		b.kind = KindBasic
		b.elemType = elem.Type()
		b.finalElem = elem
	}

	dt, family, err := resolveDataType(b.elemType)
	if err != nil {
		b.err = err
		return b
	}
	b.dataType = dt
	b.family = family

	if family == FamilyBasic {
		b.staging = b.finalElem
	} else if b.vector {
		b.staging = reflect.New(reflect.SliceOf(baseTypeOf(b.elemType))).Elem()
		b.staging.Set(reflect.MakeSlice(b.staging.Type(), elem.Len(), elem.Len()))
	} else {
		b.staging = reflect.New(baseTypeOf(b.elemType)).Elem()
	}

	return b
}

func resolveDataType(t reflect.Type) (DataType, TypeFamily, error) {
	if dt, ok := DataTypeOf(t); ok {
		return dt, FamilyBasic, nil
	}
	if e, ok := lookupConversion(t); ok {
		dt, ok := DataTypeOf(e.baseType)
		if !ok {
			return 0, 0, New(InvalidStatement, fmt.Sprintf("soci: ConversionTraits base type %s for %s is not a stock exchange type", describeType(e.baseType), describeType(t)))
		}
		return dt, FamilyUserConversion, nil
	}
	return 0, FamilyUserDefined, New(InvalidStatement, fmt.Sprintf("soci: no stock or registered conversion for type %s", describeType(t)))
}

func baseTypeOf(t reflect.Type) reflect.Type {
	e, _ := lookupConversion(t)
	return e.baseType
}

// spec produces the backend.IntoSpec the engine hands to
// backend.Statement.NewInto.
func (b *IntoBinding) spec(pos int) backend.IntoSpec {
	return backend.IntoSpec{Ptr: b.staging, DataType: b.dataType, Vector: b.vector}
}

// applyScalar converts the staged base value into the final Go
// destination after a scalar fetch, for FamilyUserConversion bindings.
func (b *IntoBinding) applyScalar(ind Indicator) error {
	if b.family == FamilyBasic {
		return nil
	}
	v, err, ok := fromBaseValue(b.elemType, b.staging.Interface(), ind)
	if !ok {
		return New(InvalidStatement, fmt.Sprintf("soci: no ConversionTraits registered for %s", describeType(b.elemType)))
	}
	if err != nil {
		return err
	}
	b.finalElem.Set(reflect.ValueOf(v))
	return nil
}

// applyVector converts each staged base element into the final Go slice
// after a vector fetch round of n rows, for FamilyUserConversion bindings.
func (b *IntoBinding) applyVector(n int, indicators []Indicator) error {
	if b.family == FamilyBasic {
		return nil
	}
	out := reflect.MakeSlice(reflect.SliceOf(b.elemType), n, n)
	for i := 0; i < n; i++ {
		ind := Ok
		if i < len(indicators) {
			ind = indicators[i]
		}
		v, err, ok := fromBaseValue(b.elemType, b.staging.Index(i).Interface(), ind)
		if !ok {
			return New(InvalidStatement, fmt.Sprintf("soci: no ConversionTraits registered for %s", describeType(b.elemType)))
		}
		if err != nil {
			return err
		}
		out.Index(i).Set(reflect.ValueOf(v))
	}
	b.finalElem.Set(out)
	return nil
}
