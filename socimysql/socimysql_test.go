package socimysql

import (
	"testing"

	"github.com/soci-go/soci/backend"
)

func TestTranslateConnStringSociGrammar(t *testing.T) {
	dsn, err := translateConnString("host=db.internal port=3307 user=app password=secret dbname=orders")
	if err != nil {
		t.Fatalf("translateConnString() error = %v", err)
	}
	want := "app:secret@tcp(db.internal:3307)/orders?parseTime=true"
	if dsn != want {
		t.Errorf("expected %q, got %q", want, dsn)
	}
}

func TestTranslateConnStringDefaultsHostAndPort(t *testing.T) {
	dsn, err := translateConnString("dbname=orders")
	if err != nil {
		t.Fatalf("translateConnString() error = %v", err)
	}
	want := "@tcp(127.0.0.1:3306)/orders?parseTime=true"
	if dsn != want {
		t.Errorf("expected %q, got %q", want, dsn)
	}
}

func TestTranslateConnStringPassthroughNativeDSN(t *testing.T) {
	native := "app:secret@tcp(127.0.0.1:3306)/orders"
	dsn, err := translateConnString(native)
	if err != nil {
		t.Fatalf("translateConnString() error = %v", err)
	}
	if dsn != native {
		t.Errorf("expected a native DSN to pass through unchanged, got %q", dsn)
	}
}

func TestSessionPlaceholderAlwaysQuestionMark(t *testing.T) {
	s := &Session{}
	if got := s.Placeholder(1); got != "?" {
		t.Errorf("expected ?, got %q", got)
	}
	if got := s.Placeholder(5); got != "?" {
		t.Errorf("expected ? regardless of ordinal, got %q", got)
	}
}

func TestLooksLikeSelect(t *testing.T) {
	cases := []struct {
		query string
		want  bool
	}{
		{"select * from t", true},
		{"  SELECT 1", true},
		{"SHOW TABLES", true},
		{"WITH cte AS (SELECT 1) SELECT * FROM cte", true},
		{"INSERT INTO t VALUES (1)", false},
		{"UPDATE t SET x = 1", false},
		{"CALL my_proc()", false},
	}
	for _, c := range cases {
		if got := looksLikeSelect(c.query); got != c.want {
			t.Errorf("looksLikeSelect(%q) = %v, want %v", c.query, got, c.want)
		}
	}
}

func TestRewriteForProcedureCall(t *testing.T) {
	st := &Statement{}
	if got := st.RewriteForProcedureCall("my_proc"); got != "{call my_proc()}" {
		t.Errorf("expected a bare procedure name to be wrapped, got %q", got)
	}
	if got := st.RewriteForProcedureCall("select * from t"); got != "select * from t" {
		t.Errorf("expected a statement with whitespace to pass through unchanged, got %q", got)
	}
	if got := st.RewriteForProcedureCall("my_proc(1, 2)"); got != "my_proc(1, 2)" {
		t.Errorf("expected a call already carrying parens to pass through unchanged, got %q", got)
	}
}

func TestAsInt64(t *testing.T) {
	if n, err := asInt64(int32(7)); err != nil || n != 7 {
		t.Errorf("asInt64(int32(7)) = %d, %v", n, err)
	}
	if n, err := asInt64([]byte("123")); err != nil || n != 123 {
		t.Errorf("asInt64([]byte(\"123\")) = %d, %v", n, err)
	}
	if _, err := asInt64("not a number"); err == nil {
		t.Error("expected an error converting an unsupported type to int64")
	}
}

func TestCoerceToDataTypeUint64Overflow(t *testing.T) {
	if _, err := coerceToDataType(int64(-5), backend.DataUint64); err == nil {
		t.Error("expected an error converting a negative value to uint64")
	}
}

func TestCoerceToDataTypeString(t *testing.T) {
	v, err := coerceToDataType([]byte("hello"), backend.DataString)
	if err != nil {
		t.Fatalf("coerceToDataType() error = %v", err)
	}
	if v.(string) != "hello" {
		t.Errorf("expected hello, got %v", v)
	}
}

func TestCoerceToDataTypeBlobRequiresBytes(t *testing.T) {
	if _, err := coerceToDataType("not bytes", backend.DataBlob); err == nil {
		t.Error("expected an error coercing a non-[]byte value into DataBlob")
	}
}
