package soci

import (
	"fmt"
	"reflect"

	"github.com/soci-go/soci/backend"
)

// UseBinding is the Go rendering of SOCI's use() binding objects: the
// source of one bound parameter, positional or named.
type UseBinding struct {
	kind     Kind
	dataType DataType
	vector   bool
	name     string
	elemType reflect.Type
	src      reflect.Value // addressable copy of the source value
	staging  reflect.Value // base-type value the backend actually reads
	family   TypeFamily

	values *Values

	indicatorPtr *Indicator
	err          error
}

// UseOption configures a UseBinding.
type UseOption func(*UseBinding)

// WithUseIndicator marks the bound value NULL when ind points to
// soci.Null at bind time, regardless of the Go value's own zero-ness.
func WithUseIndicator(ind *Indicator) UseOption {
	return func(b *UseBinding) { b.indicatorPtr = ind }
}

// Use binds src (by value) as the next positional parameter.
func Use(src any, opts ...UseOption) *UseBinding {
	return buildUse("", src, opts...)
}

// UseName binds src as the named parameter name (":name" in the query
// text), the Go rendering of soci::use(value, "name").
func UseName(name string, src any, opts ...UseOption) *UseBinding {
	return buildUse(name, src, opts...)
}

func buildUse(name string, src any, opts ...UseOption) *UseBinding {
	b := &UseBinding{name: name}
	for _, o := range opts {
		o(b)
	}

	if v, ok := src.(*Values); ok {
		b.kind = KindValues
		b.values = v
		return b
	}

	rv := reflect.ValueOf(src)
	t := rv.Type()
	isVector := t.Kind() == reflect.Slice && t != reflect.TypeOf([]byte(nil))

	if isVector {
		b.kind = KindVector
		b.vector = true
		b.elemType = t.Elem()
	} else {
		b.kind = KindBasic
		b.elemType = t
	}

	// src is read-only from the engine's point of view; stage it in an
	// addressable value so reflect operations below are uniform with Into.
	staged := reflect.New(t).Elem()
	staged.Set(rv)
	b.src = staged

	dt, family, err := resolveDataType(b.elemType)
	if err != nil {
		b.err = err
		return b
	}
	b.dataType = dt
	b.family = family

	if family == FamilyBasic {
		b.staging = b.src
		return b
	}

	if b.vector {
		baseSlice := reflect.MakeSlice(reflect.SliceOf(baseTypeOf(b.elemType)), b.src.Len(), b.src.Len())
		for i := 0; i < b.src.Len(); i++ {
			base, _, convErr, ok := toBaseValue(b.src.Index(i).Interface())
			if !ok {
				b.err = New(InvalidStatement, fmt.Sprintf("soci: no ConversionTraits registered for %s", describeType(b.elemType)))
				return b
			}
			if convErr != nil {
				b.err = convErr
				return b
			}
			baseSlice.Index(i).Set(reflect.ValueOf(base))
		}
		b.staging = baseSlice
	} else {
		base, ind, convErr, ok := toBaseValue(b.src.Interface())
		if !ok {
			b.err = New(InvalidStatement, fmt.Sprintf("soci: no ConversionTraits registered for %s", describeType(b.elemType)))
			return b
		}
		if convErr != nil {
			b.err = convErr
			return b
		}
		if ind == Null && b.indicatorPtr == nil {
			null := Null
			b.indicatorPtr = &null
		}
		staged := reflect.New(baseTypeOf(b.elemType)).Elem()
		staged.Set(reflect.ValueOf(base))
		b.staging = staged
	}

	return b
}

func (b *UseBinding) spec(pos int) backend.UseSpec {
	return backend.UseSpec{Ptr: b.staging, Name: b.name, Pos: pos, DataType: b.dataType, Vector: b.vector}
}
