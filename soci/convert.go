package soci

import (
	"fmt"
	"reflect"
	"sync"
)

// conversionEntry holds the pair of closures a RegisterConversion[T, B] call
// produces, type-erased behind reflect so the statement engine can look
// them up by the caller's static type without generics leaking into it.
type conversionEntry struct {
	toBase   func(v any) (base any, ind Indicator, err error)
	fromBase func(base any, ind Indicator) (v any, err error)
	baseType reflect.Type
}

var (
	conversionMu  sync.RWMutex
	conversionReg = map[reflect.Type]conversionEntry{}
)

// RegisterConversion installs a ConversionTraits for T, the Go port of
// SOCI's type_conversion<T> specialization: to_base()/from_base() translate
// between the application's domain type T and a stock exchange base type B
// (string, int64, float64, time.Time, ...). Once registered, T can be used
// anywhere Into/Use/Row.Get accepts a type, and the statement engine binds
// the underlying B on T's behalf.
//
// Call it from an init() in the package that owns T, the same place SOCI
// code puts a type_conversion<T> specialization.
func RegisterConversion[T any, B any](
	toBase func(T) (B, Indicator, error),
	fromBase func(B, Indicator) (T, error),
) {
	var zeroT T
	var zeroB B
	t := reflect.TypeOf(zeroT)
	if t == nil {
		panic("soci: RegisterConversion requires a concrete, non-interface T")
	}
	if _, ok := basicKinds[t]; ok {
		panic(fmt.Sprintf("soci: RegisterConversion: %s is already a stock basic type", describeType(t)))
	}

	conversionMu.Lock()
	defer conversionMu.Unlock()
	conversionReg[t] = conversionEntry{
		baseType: reflect.TypeOf(zeroB),
		toBase: func(v any) (any, Indicator, error) {
			b, ind, err := toBase(v.(T))
			return b, ind, err
		},
		fromBase: func(base any, ind Indicator) (any, error) {
			b, _ := base.(B)
			return fromBase(b, ind)
		},
	}
}

func hasConversion(t reflect.Type) bool {
	conversionMu.RLock()
	defer conversionMu.RUnlock()
	_, ok := conversionReg[t]
	return ok
}

func lookupConversion(t reflect.Type) (conversionEntry, bool) {
	conversionMu.RLock()
	defer conversionMu.RUnlock()
	e, ok := conversionReg[t]
	return e, ok
}

// toBaseValue converts v through its registered ConversionTraits, if any.
// ok is false when v's type carries no conversion (basic or user-defined).
func toBaseValue(v any) (base any, ind Indicator, err error, ok bool) {
	e, found := lookupConversion(reflect.TypeOf(v))
	if !found {
		return nil, Ok, nil, false
	}
	base, ind, err = e.toBase(v)
	return base, ind, err, true
}

// fromBaseValue converts a fetched base value back into t via t's
// registered ConversionTraits. ok is false when t carries no conversion.
func fromBaseValue(t reflect.Type, base any, ind Indicator) (v any, err error, ok bool) {
	e, found := lookupConversion(t)
	if !found {
		return nil, nil, false
	}
	v, err = e.fromBase(base, ind)
	return v, err, true
}
