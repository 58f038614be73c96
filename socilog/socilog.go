// Package socilog bridges soci.Logger onto zap, the structured logger this
// module uses for query logging.
package socilog

import (
	"sync"

	"go.uber.org/zap"

	"github.com/soci-go/soci"
)

// ZapLogger implements soci.Logger on top of a *zap.Logger, the Go
// rendering of a logger_impl subclass writing to an ostream in the
// original: StartQuery logs the query text immediately at debug level
// (matching the default logger_impl's stream-based behavior), and bound
// parameters accumulate until ClearQueryParameters flushes them as a
// single structured log entry once the statement has executed.
type ZapLogger struct {
	base *zap.Logger

	mu     sync.Mutex
	query  string
	params []string
}

// New wraps z; z must not be nil.
func New(z *zap.Logger) *ZapLogger {
	return &ZapLogger{base: z}
}

func (l *ZapLogger) StartQuery(query string) {
	l.mu.Lock()
	l.query = query
	l.params = l.params[:0]
	l.mu.Unlock()

	l.base.Debug("soci: query", zap.String("query", query))
}

func (l *ZapLogger) AddQueryParameter(value string) {
	l.mu.Lock()
	l.params = append(l.params, value)
	l.mu.Unlock()
}

func (l *ZapLogger) ClearQueryParameters() {
	l.mu.Lock()
	query := l.query
	params := append([]string(nil), l.params...)
	l.params = l.params[:0]
	l.mu.Unlock()

	if len(params) == 0 {
		return
	}
	l.base.Debug("soci: query parameters",
		zap.String("query", query),
		zap.Strings("params", params),
	)
}

// Clone returns an independent ZapLogger sharing the same underlying
// *zap.Logger but with its own query/parameter accumulator, the Go
// rendering of logger_impl::clone.
func (l *ZapLogger) Clone() soci.Logger {
	return &ZapLogger{base: l.base}
}

var _ soci.Logger = (*ZapLogger)(nil)
