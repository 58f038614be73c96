// Package sociconfig loads a soci.Session's backend/connection settings
// from a YAML or JSON file, instead of requiring callers to hand-build a
// SOCI connection string.
package sociconfig

import (
	"context"
	"fmt"

	"github.com/soci-go/soci"
)

// Settings is the config file shape for one session: which backend to
// open (the name passed to soci.Register by socipg/socimysql/etc.) and
// either a pre-built connection string or the individual parameters
// ParseConnectionString/BuildConnectionString round-trip.
type Settings struct {
	Backend    string            `koanf:"backend"`
	ConnString string            `koanf:"conn_string"`
	Params     map[string]string `koanf:"params"`

	// LogQueries mirrors kdbx.Config.LogQueries. It is read from the file,
	// but Open does not act on it: a Logger (socilog.ZapLogger,
	// soci.NopLogger, ...) is attached only through a soci.WithLogger
	// option passed to Open.
	LogQueries bool `koanf:"log_queries"`
}

// Load reads Settings from path (YAML or JSON, detected by extension),
// applying environment overrides via loadFile.
func Load(path string, opts ...LoadOption) (*Settings, error) {
	var s Settings
	if err := loadFile(path, &s, opts...); err != nil {
		return nil, fmt.Errorf("sociconfig: %w", err)
	}
	if s.Backend == "" {
		return nil, fmt.Errorf("sociconfig: %q: backend is required", path)
	}
	return &s, nil
}

// connString resolves the Session's connection string: ConnString if set,
// otherwise Params rendered through soci.BuildConnectionString.
func (s *Settings) connString() (string, error) {
	if s.ConnString != "" {
		return s.ConnString, nil
	}
	if len(s.Params) == 0 {
		return "", fmt.Errorf("sociconfig: neither conn_string nor params set")
	}
	return soci.BuildConnectionString(s.Params), nil
}

// Open resolves Settings into a live *soci.Session, the Go analogue of
// building a session straight from a parsed config struct instead of a
// hand-assembled connection string.
func (s *Settings) Open(ctx context.Context, opts ...soci.SessionOption) (*soci.Session, error) {
	cs, err := s.connString()
	if err != nil {
		return nil, err
	}
	return soci.Open(ctx, s.Backend, cs, opts...)
}
