package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type testConfig struct {
	Database struct {
		DSN      string `yaml:"dsn" json:"dsn" toml:"dsn"`
		MaxConns int    `yaml:"max_conns" json:"max_conns" toml:"max_conns" env:"MAX_CONNS"`
	} `yaml:"database" json:"database" toml:"database"`
	Server struct {
		Port    int           `yaml:"port" json:"port" toml:"port"`
		Host    string        `yaml:"host" json:"host" toml:"host"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" toml:"timeout"`
	} `yaml:"server" json:"server" toml:"server"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	return path
}

func TestLoadByExtension(t *testing.T) {
	files := map[string]string{
		"app.yaml": `
database:
  dsn: "postgres://localhost/test"
  max_conns: 25
server:
  port: 8080
  host: "localhost"
  timeout: 15s
`,
		"app.json": `{
  "database": {"dsn": "postgres://localhost/test", "max_conns": 25},
  "server": {"port": 8080, "host": "localhost", "timeout": 15000000000}
}`,
		"app.toml": `
[database]
dsn = "postgres://localhost/test"
max_conns = 25

[server]
port = 8080
host = "localhost"
timeout = "15s"
`,
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			var cfg testConfig
			if err := Load(writeFile(t, name, content), &cfg); err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.Database.DSN != "postgres://localhost/test" {
				t.Errorf("Database.DSN = %v, want postgres://localhost/test", cfg.Database.DSN)
			}
			if cfg.Database.MaxConns != 25 {
				t.Errorf("Database.MaxConns = %v, want 25", cfg.Database.MaxConns)
			}
			if cfg.Server.Port != 8080 {
				t.Errorf("Server.Port = %v, want 8080", cfg.Server.Port)
			}
			if cfg.Server.Timeout != 15*time.Second {
				t.Errorf("Server.Timeout = %v, want 15s", cfg.Server.Timeout)
			}
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	path := writeFile(t, "app.yaml", `
database:
  dsn: "postgres://localhost/test"
  max_conns: 25
server:
  port: 8080
  host: "localhost"
`)

	t.Setenv("APP_DATABASE_DSN", "postgres://env/test")
	t.Setenv("APP_DATABASE_MAX_CONNS", "50")
	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("APP_SERVER_TIMEOUT", "2m")

	var cfg testConfig
	if err := LoadWithEnv(path, "APP", &cfg); err != nil {
		t.Fatalf("LoadWithEnv failed: %v", err)
	}

	if cfg.Database.DSN != "postgres://env/test" {
		t.Errorf("Database.DSN = %v, want postgres://env/test", cfg.Database.DSN)
	}
	if cfg.Database.MaxConns != 50 {
		t.Errorf("Database.MaxConns = %v, want 50 (env tag)", cfg.Database.MaxConns)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %v, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Timeout != 2*time.Minute {
		t.Errorf("Server.Timeout = %v, want 2m", cfg.Server.Timeout)
	}
	// Host should remain from file (no env override)
	if cfg.Server.Host != "localhost" {
		t.Errorf("Server.Host = %v, want localhost", cfg.Server.Host)
	}
}

func TestApplyEnvOverridesRejectsBadValues(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "not-a-number")

	var cfg testConfig
	if err := ApplyEnvOverrides("APP", &cfg); err == nil {
		t.Error("ApplyEnvOverrides should fail for a non-numeric port")
	}
	if err := ApplyEnvOverrides("APP", cfg); err == nil {
		t.Error("ApplyEnvOverrides should fail for a non-pointer target")
	}
}

func TestValidateStructReportsFileKeys(t *testing.T) {
	type limits struct {
		DSN      string `yaml:"dsn" validate:"required"`
		MaxConns int    `yaml:"max_conns" validate:"min=10,max=100"`
	}
	type root struct {
		Database limits `yaml:"database"`
	}

	cfg := root{Database: limits{MaxConns: 5}}
	err := validateStruct(&cfg)
	if err == nil {
		t.Fatal("validateStruct should fail for empty DSN and low max_conns")
	}
	for _, want := range []string{"database.dsn: is required", "database.max_conns: must be at least 10"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should contain %q", err, want)
		}
	}

	cfg.Database.DSN = "postgres://localhost/test"
	cfg.Database.MaxConns = 50
	if err := validateStruct(&cfg); err != nil {
		t.Errorf("validateStruct should pass for valid config: %v", err)
	}
}

func TestDefaultAppIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() should validate: %v", err)
	}
	if cfg.HTTP.Prefix != "/api/v1" {
		t.Errorf("HTTP.Prefix = %q, want /api/v1", cfg.HTTP.Prefix)
	}
	if cfg.Auth.TokenTTL() != 30*time.Minute {
		t.Errorf("Auth.TokenTTL() = %v, want 30m", cfg.Auth.TokenTTL())
	}
}

func TestAppValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*App)
		want   string
	}{
		{"unknown driver", func(a *App) { a.Database.Driver = "mysql" }, "database.driver"},
		{"short secret", func(a *App) { a.Auth.SecretKey = "short" }, "auth.secret_key"},
		{"zero expiry", func(a *App) { a.Auth.AccessTokenExpireMinutes = 0 }, "auth.access_token_expire_minutes"},
		{"bcrypt cost", func(a *App) { a.Auth.BcryptCost = 40 }, "auth.bcrypt_cost"},
		{"sample ratio", func(a *App) { a.Tracing.SampleRatio = 1.5 }, "tracing.sample_ratio"},
		{"log format", func(a *App) { a.Log.Format = "xml" }, "log.format"},
		{"zipkin without url", func(a *App) { a.Tracing.Exporter = "zipkin" }, "tracing.zipkin_url"},
		{"bad timezone", func(a *App) { a.Todos.Timezone = "Mars/Olympus" }, "todos.timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadAppLayersEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("TODOAPI_DATABASE_DSN=file::memory:\nTODOAPI_AUTH_ACCESS_TOKEN_EXPIRE_MINUTES=45\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("TODOAPI_DATABASE_DSN")
		os.Unsetenv("TODOAPI_AUTH_ACCESS_TOKEN_EXPIRE_MINUTES")
	})

	path := writeFile(t, "app.toml", `
[http]
addr = ":9999"

[todos]
strict_tag_ids = true
`)

	cfg, err := LoadApp(path, envFile, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("LoadApp failed: %v", err)
	}
	if cfg.HTTP.Addr != ":9999" {
		t.Errorf("HTTP.Addr = %q, want :9999", cfg.HTTP.Addr)
	}
	if !cfg.Todos.StrictTagIDs {
		t.Error("Todos.StrictTagIDs should be true")
	}
	if cfg.Database.DSN != "file::memory:" {
		t.Errorf("Database.DSN = %q, want file::memory:", cfg.Database.DSN)
	}
	if cfg.Auth.AccessTokenExpireMinutes != 45 {
		t.Errorf("Auth.AccessTokenExpireMinutes = %d, want 45", cfg.Auth.AccessTokenExpireMinutes)
	}
	// untouched sections keep defaults
	if cfg.Auth.Algorithm != "HS256" {
		t.Errorf("Auth.Algorithm = %q, want HS256", cfg.Auth.Algorithm)
	}
}
