package config

import (
	"time"
)

// EnvPrefix is the prefix for environment overrides, e.g. TODOAPI_DATABASE_DSN.
const EnvPrefix = "TODOAPI"

// App is the complete process configuration. It is built once at startup and
// handed by value to the components that need a section of it.
type App struct {
	HTTP     HTTP     `yaml:"http" json:"http" toml:"http"`
	Database Database `yaml:"database" json:"database" toml:"database"`
	Auth     Auth     `yaml:"auth" json:"auth" toml:"auth"`
	Log      Log      `yaml:"log" json:"log" toml:"log"`
	Tracing  Tracing  `yaml:"tracing" json:"tracing" toml:"tracing"`
	Todos    Todos    `yaml:"todos" json:"todos" toml:"todos"`
}

// HTTP configures the listener and the middleware chain
type HTTP struct {
	Addr               string        `yaml:"addr" json:"addr" toml:"addr" validate:"required"`
	Prefix             string        `yaml:"prefix" json:"prefix" toml:"prefix"`
	ReadTimeout        time.Duration `yaml:"read_timeout" json:"read_timeout" toml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout       time.Duration `yaml:"write_timeout" json:"write_timeout" toml:"write_timeout" env:"WRITE_TIMEOUT"`
	RequestTimeout     time.Duration `yaml:"request_timeout" json:"request_timeout" toml:"request_timeout" env:"REQUEST_TIMEOUT"`
	MaxInFlight        int           `yaml:"max_in_flight" json:"max_in_flight" toml:"max_in_flight" env:"MAX_IN_FLIGHT" validate:"gte=0"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute" json:"rate_limit_per_minute" toml:"rate_limit_per_minute" env:"RATE_LIMIT_PER_MINUTE" validate:"gte=0"`
	CORSOrigins        []string      `yaml:"cors_origins" json:"cors_origins" toml:"cors_origins" env:"CORS_ORIGINS"`
}

// Database configures the connection pool
type Database struct {
	Driver          string        `yaml:"driver" json:"driver" toml:"driver" validate:"required,oneof=sqlite3 postgres pgx"`
	DSN             string        `yaml:"dsn" json:"dsn" toml:"dsn" validate:"required"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns" toml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns" toml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime" toml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	AutoMigrate     bool          `yaml:"auto_migrate" json:"auto_migrate" toml:"auto_migrate" env:"AUTO_MIGRATE"`
}

// Auth configures password hashing and bearer tokens
type Auth struct {
	SecretKey                string `yaml:"secret_key" json:"secret_key" toml:"secret_key" env:"SECRET_KEY" validate:"required,min=16,max=512"`
	Algorithm                string `yaml:"algorithm" json:"algorithm" toml:"algorithm" validate:"required,oneof=HS256 HS384 HS512"`
	AccessTokenExpireMinutes int    `yaml:"access_token_expire_minutes" json:"access_token_expire_minutes" toml:"access_token_expire_minutes" env:"ACCESS_TOKEN_EXPIRE_MINUTES" validate:"min=1,max=43200"`
	BcryptCost               int    `yaml:"bcrypt_cost" json:"bcrypt_cost" toml:"bcrypt_cost" env:"BCRYPT_COST" validate:"min=4,max=31"`
	Issuer                   string `yaml:"issuer" json:"issuer" toml:"issuer"`
}

// TokenTTL is the lifetime of an issued access token
func (a Auth) TokenTTL() time.Duration {
	return time.Duration(a.AccessTokenExpireMinutes) * time.Minute
}

// Log configures the process logger
type Log struct {
	Level  string `yaml:"level" json:"level" toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" toml:"format" validate:"omitempty,oneof=text json logfmt"`
}

// Tracing configures the OpenTelemetry exporter
type Tracing struct {
	Exporter    string  `yaml:"exporter" json:"exporter" toml:"exporter" validate:"omitempty,oneof=none stdout zipkin"`
	ZipkinURL   string  `yaml:"zipkin_url" json:"zipkin_url" toml:"zipkin_url" env:"ZIPKIN_URL" validate:"required_if=Exporter zipkin"`
	ServiceName string  `yaml:"service_name" json:"service_name" toml:"service_name" env:"SERVICE_NAME"`
	SampleRatio float64 `yaml:"sample_ratio" json:"sample_ratio" toml:"sample_ratio" env:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
}

// Todos holds domain switches
type Todos struct {
	// StrictTagIDs rejects tag ids the caller does not own instead of dropping them
	StrictTagIDs bool `yaml:"strict_tag_ids" json:"strict_tag_ids" toml:"strict_tag_ids" env:"STRICT_TAG_IDS"`
	// Timezone decides what "today" means for due dates (IANA name, default UTC)
	Timezone string `yaml:"timezone" json:"timezone" toml:"timezone" validate:"omitempty,timezone"`
}

// Default returns the configuration used when nothing is overridden
func Default() App {
	return App{
		HTTP: HTTP{
			Addr:               ":8000",
			Prefix:             "/api/v1",
			ReadTimeout:        10 * time.Second,
			WriteTimeout:       10 * time.Second,
			RequestTimeout:     30 * time.Second,
			MaxInFlight:        1000,
			RateLimitPerMinute: 0,
			CORSOrigins:        []string{"*"},
		},
		Database: Database{
			Driver:          "sqlite3",
			DSN:             "./todo.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
		Auth: Auth{
			SecretKey:                "change-this-secret-key-in-production",
			Algorithm:                "HS256",
			AccessTokenExpireMinutes: 30,
			BcryptCost:               10,
			Issuer:                   "todoapi",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Tracing: Tracing{
			Exporter:    "none",
			ServiceName: "todoapi",
			SampleRatio: 1,
		},
		Todos: Todos{
			Timezone: "UTC",
		},
	}
}

// LoadApp builds the configuration: defaults, then the optional file, then
// .env, then TODOAPI_* variables. The result is validated.
func LoadApp(path string, envFiles ...string) (App, error) {
	cfg := Default()

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	if err := LoadDotEnv(envFiles...); err != nil {
		return App{}, err
	}

	if err := LoadWithEnv(path, EnvPrefix, &cfg); err != nil {
		return App{}, err
	}

	if err := cfg.Validate(); err != nil {
		return App{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the process cannot start with
func (a *App) Validate() error {
	return validateStruct(a)
}
