package sociconfig

import (
	"testing"
	"testing/fstest"
)

func TestLoadFileYAMLWithEnvOverrides(t *testing.T) {
	type appConfig struct {
		Server struct {
			Host string `yaml:"host"`
			Port int    `yaml:"port"`
		} `yaml:"server"`
		Database struct {
			URL            string `yaml:"url" env:"DATABASE_URL"`
			MaxConnections int    `yaml:"max_connections" envDefault:"50"`
		} `yaml:"database"`
		Features []string `yaml:"features"`
	}

	fsys := fstest.MapFS{
		"app.yaml": {Data: []byte(
			"server:\n  host: 0.0.0.0\n  port: 8080\n" +
				"database:\n  url: postgres://local\n" +
				"features: [basic]\n",
		)},
	}

	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://remote")
	t.Setenv("APP_FEATURES", "trace,metrics ,debug ")

	var cfg appConfig
	if err := loadFile("app.yaml", &cfg, WithFileSystem(fsys), WithEnvPrefix("APP")); err != nil {
		t.Fatalf("loadFile() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("expected host from file, got %q", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("expected server port override, got %d", cfg.Server.Port)
	}
	if cfg.Database.URL != "postgres://remote" {
		t.Fatalf("expected database URL override, got %q", cfg.Database.URL)
	}
	if cfg.Database.MaxConnections != 50 {
		t.Fatalf("expected default max connections, got %d", cfg.Database.MaxConnections)
	}

	wantFeatures := []string{"trace", "metrics", "debug"}
	if len(cfg.Features) != len(wantFeatures) {
		t.Fatalf("unexpected features length: %v", cfg.Features)
	}
	for i, v := range wantFeatures {
		if cfg.Features[i] != v {
			t.Fatalf("feature %d mismatch: want %s got %s", i, v, cfg.Features[i])
		}
	}
}

func TestLoadFileJSONWithDefaultsAndNesting(t *testing.T) {
	type tlsConfig struct {
		Enabled bool `json:"enabled"`
	}
	type jsonConfig struct {
		Name    string     `json:"name"`
		Secret  *string    `json:"secret" env:"APP_SECRET" envDefault:"top-secret"`
		Tokens  []string   `json:"tokens" envSeparator:";"`
		TLS     *tlsConfig `json:"tls"`
		Servers struct {
			Primary struct {
				Port int `json:"port"`
			} `json:"primary"`
		} `json:"servers"`
	}

	fsys := fstest.MapFS{
		"config.json": {Data: []byte(`{
			"name": "demo",
			"servers": { "primary": { "port": 8080 } }
		}`)},
	}

	t.Setenv("SERVERS_PRIMARY_PORT", "6060")
	t.Setenv("TOKENS", "alpha;bravo;charlie")
	t.Setenv("TLS_ENABLED", "true")

	var cfg jsonConfig
	if err := loadFile("config.json", &cfg, WithFileSystem(fsys)); err != nil {
		t.Fatalf("loadFile() error = %v", err)
	}

	if cfg.Servers.Primary.Port != 6060 {
		t.Fatalf("expected port override, got %d", cfg.Servers.Primary.Port)
	}
	if cfg.Secret == nil || *cfg.Secret != "top-secret" {
		t.Fatalf("expected default secret value, got %+v", cfg.Secret)
	}
	wantTokens := []string{"alpha", "bravo", "charlie"}
	if len(cfg.Tokens) != len(wantTokens) {
		t.Fatalf("unexpected tokens length: %v", cfg.Tokens)
	}
	for i, v := range wantTokens {
		if cfg.Tokens[i] != v {
			t.Fatalf("token %d mismatch: want %s got %s", i, v, cfg.Tokens[i])
		}
	}
	if cfg.TLS == nil || !cfg.TLS.Enabled {
		t.Fatalf("expected TLS struct to be created from env")
	}
	if cfg.Name != "demo" {
		t.Fatalf("expected name from file, got %s", cfg.Name)
	}
}

func TestLoadFileHonorsKoanfTag(t *testing.T) {
	type settings struct {
		MaxRetries int `koanf:"max_retries" envDefault:"3"`
	}

	fsys := fstest.MapFS{
		"s.yaml": {Data: []byte("max_retries: 0\n")},
	}

	var s settings
	if err := loadFile("s.yaml", &s, WithFileSystem(fsys)); err != nil {
		t.Fatalf("loadFile() error = %v", err)
	}
	if s.MaxRetries != 3 {
		t.Fatalf("expected envDefault to apply for a koanf-tagged field left at zero value, got %d", s.MaxRetries)
	}

	lookup := func(key string) (string, bool) {
		if key == "MAX_RETRIES" {
			return "7", true
		}
		return "", false
	}
	var overridden settings
	if err := loadFile("s.yaml", &overridden, WithFileSystem(fsys), WithEnvLookup(lookup)); err != nil {
		t.Fatalf("loadFile() error = %v", err)
	}
	if overridden.MaxRetries != 7 {
		t.Fatalf("expected the env override to land on the koanf-tagged key, got %d", overridden.MaxRetries)
	}
}
