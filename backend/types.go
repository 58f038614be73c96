// Package backend defines the capability interfaces a SOCI driver package
// (socipg, socimysql, ...) must implement, and the handful of wire-level
// enums shared between the core exchange engine and every backend. It is
// the Go rendering of session_backend/statement_backend/standard_into_type_backend
// and friends from the original C++ core.
package backend

// DataType is the backend-neutral column type tag reported by DescribeColumn.
type DataType int

const (
	DataString DataType = iota
	DataDate
	DataDouble
	DataInt32
	DataInt64
	DataUint64
	DataBlob
)

func (d DataType) String() string {
	switch d {
	case DataString:
		return "string"
	case DataDate:
		return "date"
	case DataDouble:
		return "double"
	case DataInt32:
		return "int32"
	case DataInt64:
		return "int64"
	case DataUint64:
		return "uint64"
	case DataBlob:
		return "blob"
	default:
		return "unknown"
	}
}

// Indicator reports whether an exchanged value carried real data, was NULL,
// or was truncated on read.
type Indicator int

const (
	Ok Indicator = iota
	Null
	Truncated
)

func (i Indicator) String() string {
	switch i {
	case Ok:
		return "ok"
	case Null:
		return "null"
	case Truncated:
		return "truncated"
	default:
		return "unknown"
	}
}

// ColumnProperties describes one column of a statement's result set, the Go
// analogue of soci::column_properties.
type ColumnProperties struct {
	Name     string
	DataType DataType
}
