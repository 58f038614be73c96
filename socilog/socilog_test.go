package socilog

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (*ZapLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return New(zap.New(core)), logs
}

func TestStartQueryLogsImmediately(t *testing.T) {
	l, logs := newObservedLogger()
	l.StartQuery("select 1")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].Message != "soci: query" {
		t.Errorf("unexpected message %q", entries[0].Message)
	}
}

func TestClearQueryParametersFlushesAccumulated(t *testing.T) {
	l, logs := newObservedLogger()
	l.StartQuery("select * from users where id = ?")
	l.AddQueryParameter("1")
	l.AddQueryParameter("true")
	l.ClearQueryParameters()

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries (query + parameters), got %d", len(entries))
	}
	if entries[1].Message != "soci: query parameters" {
		t.Errorf("unexpected message %q", entries[1].Message)
	}
}

func TestClearQueryParametersNoopWhenEmpty(t *testing.T) {
	l, logs := newObservedLogger()
	l.StartQuery("select 1")
	l.ClearQueryParameters()

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected only the StartQuery log entry, got %d", len(entries))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	l, logs := newObservedLogger()
	l.StartQuery("select 1")
	l.AddQueryParameter("x")

	clone := l.Clone()
	clone.StartQuery("select 2")
	clone.ClearQueryParameters()

	// Each StartQuery logs its own query entry; the clone carries no
	// parameters of its own, so clearing it adds no parameters entry.
	if len(logs.All()) != 2 {
		t.Fatalf("expected only the two StartQuery log entries, got %d", len(logs.All()))
	}
}
