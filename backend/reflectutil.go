package backend

import "reflect"

// ResizeSlice grows or shrinks the slice addressed by ptr (an addressable
// reflect.Value obtained from IntoSpec.Ptr/UseSpec.Ptr when Vector is true)
// to length n, preserving existing elements. Backend implementations use
// this instead of hand-rolling reflect.MakeSlice/Copy for every bound Go
// slice type a vector Into/Use might carry.
func ResizeSlice(ptr reflect.Value, n int) {
	cur := ptr.Len()
	if n == cur {
		return
	}
	next := reflect.MakeSlice(ptr.Type(), n, n)
	reflect.Copy(next, ptr)
	ptr.Set(next)
}

// SetSliceElem assigns val into the i-th element of the slice addressed by
// ptr, converting val's concrete type to the slice's element type where
// the two are convertible (e.g. int64 wire value into an int32 element).
func SetSliceElem(ptr reflect.Value, i int, val reflect.Value) {
	elem := ptr.Index(i)
	if val.Type().AssignableTo(elem.Type()) {
		elem.Set(val)
		return
	}
	elem.Set(val.Convert(elem.Type()))
}
