package socipg

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/soci-go/soci/backend"
)

// dataTypeForOID maps a PostgreSQL column's type OID onto SOCI's stock
// exchange DataType set, the Go rendering of to_standard_column_type
// from src/backends/postgresql/statement.cpp.
func dataTypeForOID(oid uint32) backend.DataType {
	switch oid {
	case pgtype.Int2OID, pgtype.Int4OID:
		return backend.DataInt32
	case pgtype.Int8OID:
		return backend.DataInt64
	case pgtype.Float4OID, pgtype.Float8OID, pgtype.NumericOID:
		return backend.DataDouble
	case pgtype.DateOID, pgtype.TimestampOID, pgtype.TimestamptzOID:
		return backend.DataDate
	case pgtype.ByteaOID:
		return backend.DataBlob
	default:
		return backend.DataString
	}
}
