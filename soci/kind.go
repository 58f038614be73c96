// Package soci is a Go port of the SOCI database access model: a backend-
// agnostic exchange core (traits, binding, statement state machine, rows)
// sitting underneath pluggable backends such as socipg and socimysql.
package soci

import "github.com/soci-go/soci/backend"

// Kind classifies how a Go value is exchanged with a backend: as a single
// scalar, a vector (bulk/batch operation), or a dynamic Row/Values carrier.
type Kind int

const (
	// KindBasic covers ordinary scalar exchange of the stock basic types:
	// string, int32, int64, int, uint64, float64, time.Time and []byte.
	KindBasic Kind = iota

	// KindVector covers slice-backed bulk exchange, one backend round trip
	// binding/fetching N rows at once.
	KindVector

	// KindRow marks the dynamic Row carrier, used when the caller doesn't
	// bind a concrete Go type and wants column-by-column access instead.
	KindRow

	// KindValues marks the Values aggregator, used for named-parameter
	// binding into ad-hoc parameter sets (e.g. struct-less INSERTs).
	KindValues
)

func (k Kind) String() string {
	switch k {
	case KindBasic:
		return "basic"
	case KindVector:
		return "vector"
	case KindRow:
		return "row"
	case KindValues:
		return "values"
	default:
		return "unknown"
	}
}

// DataType is the backend-neutral column type tag a Row reports for each
// column it carries, independent of the concrete Go type used to read it.
// Defined in backend so both backend implementations and the core can
// share it without an import cycle; re-exported here for callers of the
// root package.
type DataType = backend.DataType

const (
	DataString = backend.DataString
	DataDate   = backend.DataDate
	DataDouble = backend.DataDouble
	DataInt32  = backend.DataInt32
	DataInt64  = backend.DataInt64
	DataUint64 = backend.DataUint64
	DataBlob   = backend.DataBlob
)

// Indicator reports whether an exchanged value carried real data, was NULL,
// or was truncated on read (the string/blob analogue of NULL that still
// carries a partial value). It replaces SOCI's i_ok/i_null/i_truncated enum.
type Indicator = backend.Indicator

const (
	Ok        = backend.Ok
	Null      = backend.Null
	Truncated = backend.Truncated
)
