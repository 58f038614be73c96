package soci

import "fmt"

// Values is the dynamic named-parameter aggregator used for ad-hoc
// binding when the caller doesn't have (or want) a concrete struct type,
// the Go rendering of SOCI's values class used alongside type_conversion
// specializations for user-defined row/parameter types.
//
// Resolved ambiguity (ground truth: original_source/src/core/statement.cpp,
// statement_impl::bind(values&)): a named use registered on a Values that
// has no matching ":name" placeholder in the query text is moved to the
// aggregator's "unused" list unconditionally — it is NOT an error at bind
// time. RequireBound opts a specific Values instance into strict
// validation for callers that want to catch typos in parameter names.
type Values struct {
	names        []string
	byName       map[string]any
	indicators   map[string]Indicator
	unused       []string
	requireBound bool

	// row backs GetValue when a Values is used as an Into() destination
	// for a dynamically-shaped SELECT.
	row *Row
}

// NewValues creates an empty Values aggregator.
func NewValues() *Values {
	return &Values{byName: make(map[string]any), indicators: make(map[string]Indicator)}
}

// Set registers value under name for use as a named parameter. Returns the
// receiver so calls can be chained.
func (v *Values) Set(name string, value any) *Values {
	if _, exists := v.byName[name]; !exists {
		v.names = append(v.names, name)
	}
	v.byName[name] = value
	v.indicators[name] = Ok
	return v
}

// SetNull registers name as present but NULL.
func (v *Values) SetNull(name string) *Values {
	if _, exists := v.byName[name]; !exists {
		v.names = append(v.names, name)
	}
	v.byName[name] = nil
	v.indicators[name] = Null
	return v
}

// RequireBound opts this Values into strict validation: if enabled, the
// statement engine returns an InvalidStatement error for any registered
// name with no matching placeholder, instead of the default permissive
// behavior (move to Unused, no error) carried over from the original core.
func (v *Values) RequireBound(enabled bool) *Values {
	v.requireBound = enabled
	return v
}

// Names returns the registered parameter names in registration order.
func (v *Values) Names() []string { return append([]string(nil), v.names...) }

// addUnused is called by the statement engine for every registered name
// that has no corresponding placeholder in the prepared query.
func (v *Values) addUnused(name string) error {
	if v.requireBound {
		return New(InvalidStatement, fmt.Sprintf("soci: values: parameter %q is not bound to any placeholder in the query", name))
	}
	v.unused = append(v.unused, name)
	return nil
}

// Unused returns the names that were registered but had no placeholder,
// after the statement they were bound to has executed.
func (v *Values) Unused() []string { return append([]string(nil), v.unused...) }

// bindUses builds a named UseBinding for every registered name. The
// statement engine calls it once when the Values is bound and, at Execute,
// moves names with no matching placeholder to Unused.
func (v *Values) bindUses() map[string]*UseBinding {
	out := make(map[string]*UseBinding, len(v.names))
	for _, name := range v.names {
		val := v.byName[name]
		if val == nil {
			// represent SQL NULL with a typed zero value carrying an
			// explicit Null indicator; string is the safest universal
			// wire representation backends accept for a NULL literal.
			ind := Null
			out[name] = UseName(name, "", WithUseIndicator(&ind))
			continue
		}
		out[name] = UseName(name, val)
	}
	return out
}

// setRow attaches the Row the engine filled this round, so Get can read
// fetched columns back out of a Values used as an Into destination.
func (v *Values) setRow(r *Row) { v.row = r }

// GetValue reads column name as T from the Row last fetched into this
// Values, the Go analogue of row::get<T>(name) reached through a values
// object bound with into(values&).
func GetValue[T any](v *Values, name string) (T, error) {
	var zero T
	if v.row == nil {
		return zero, New(InvalidStatement, "soci: values has no row bound; Into(values) must be executed first")
	}
	return GetByName[T](v.row, name)
}
