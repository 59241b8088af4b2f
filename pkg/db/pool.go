package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	// registered drivers: "pgx", "postgres", "sqlite3"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// PoolConfig configures database connection pool (similar to HikariConfig)
type PoolConfig struct {
	// DSN is the database connection string
	DSN string

	// MaxOpenConns is the maximum number of open connections (like maximumPoolSize in HikariCP)
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections (like minimumIdle in HikariCP)
	MaxIdleConns int

	// ConnMaxLifetime is the maximum amount of time a connection may be reused
	ConnMaxLifetime time.Duration

	// ConnMaxIdleTime is the maximum amount of time a connection may be idle (like idleTimeout)
	ConnMaxIdleTime time.Duration

	// DriverName is one of "sqlite3", "postgres" (lib/pq) or "pgx"
	DriverName string
}

// DefaultPoolConfig returns HikariCP-like default configuration
func DefaultPoolConfig(dsn string, driverName string) PoolConfig {
	return PoolConfig{
		DSN:             dsn,
		DriverName:      driverName,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// Pool represents a database connection pool
type Pool struct {
	db      *sqlx.DB
	config  PoolConfig
	dialect Dialect
}

// NewPool creates a new database connection pool (similar to HikariDataSource)
// Fail-fast: Validates configuration before creating pool
func NewPool(config PoolConfig) (*Pool, error) {
	if config.DSN == "" {
		return nil, &Error{Code: "INVALID_CONFIG", Message: "DSN cannot be empty"}
	}
	if config.DriverName == "" {
		return nil, &Error{Code: "INVALID_CONFIG", Message: "DriverName cannot be empty"}
	}
	if config.MaxOpenConns <= 0 {
		return nil, &Error{Code: "INVALID_CONFIG", Message: "MaxOpenConns must be positive"}
	}
	if config.MaxIdleConns < 0 {
		return nil, &Error{Code: "INVALID_CONFIG", Message: "MaxIdleConns cannot be negative"}
	}
	if config.MaxIdleConns > config.MaxOpenConns {
		return nil, &Error{Code: "INVALID_CONFIG", Message: "MaxIdleConns cannot exceed MaxOpenConns"}
	}
	if config.ConnMaxLifetime < 0 {
		return nil, &Error{Code: "INVALID_CONFIG", Message: "ConnMaxLifetime cannot be negative"}
	}
	if config.ConnMaxIdleTime < 0 {
		return nil, &Error{Code: "INVALID_CONFIG", Message: "ConnMaxIdleTime cannot be negative"}
	}

	dialect, err := DialectFor(config.DriverName)
	if err != nil {
		return nil, err
	}

	dsn := config.DSN
	if dialect == DialectSQLite {
		dsn = sqliteDSN(dsn)
		// every connection to :memory: is a separate database
		if isSQLiteMemory(dsn) {
			config.MaxOpenConns = 1
			config.MaxIdleConns = 1
			config.ConnMaxLifetime = 0
			config.ConnMaxIdleTime = 0
		}
	}

	db, err := sqlx.Open(config.DriverName, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	// Test connection (fail-fast: verify connection works)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &Pool{
		db:      db,
		config:  config,
		dialect: dialect,
	}, nil
}

// sqliteDSN turns on foreign keys (needed for ON DELETE CASCADE) and a busy timeout
func sqliteDSN(dsn string) string {
	params := []string{}
	if !strings.Contains(dsn, "_foreign_keys") && !strings.Contains(dsn, "_fk=") {
		params = append(params, "_foreign_keys=on")
	}
	if !strings.Contains(dsn, "_busy_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func isSQLiteMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// Error represents a database error (fail-fast)
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// DB returns the underlying *sqlx.DB
// Fail-fast: Panics if pool is nil (invalid state)
func (p *Pool) DB() *sqlx.DB {
	if p == nil {
		panic("pool cannot be nil")
	}
	if p.db == nil {
		panic("pool.db cannot be nil - pool not initialized")
	}
	return p.db
}

// Dialect returns the SQL dialect of the configured driver
func (p *Pool) Dialect() Dialect {
	return p.dialect
}

// Config returns the effective pool configuration
func (p *Pool) Config() PoolConfig {
	return p.config
}

// Close closes the connection pool
// Fail-fast: Validates pool state before closing
func (p *Pool) Close() error {
	if p == nil {
		return &Error{Code: "INVALID_STATE", Message: "pool cannot be nil"}
	}
	if p.db == nil {
		return &Error{Code: "INVALID_STATE", Message: "pool already closed"}
	}
	return p.db.Close()
}

// Ping tests the connection
// Fail-fast: Validates inputs before pinging
func (p *Pool) Ping(ctx context.Context) error {
	if p == nil {
		return &Error{Code: "INVALID_STATE", Message: "pool cannot be nil"}
	}
	if p.db == nil {
		return &Error{Code: "INVALID_STATE", Message: "pool not initialized"}
	}
	if ctx == nil {
		return &Error{Code: "INVALID_INPUT", Message: "context cannot be nil"}
	}
	return p.db.PingContext(ctx)
}

// Stats returns pool statistics (similar to HikariPoolMXBean)
func (p *Pool) Stats() sql.DBStats {
	if p == nil || p.db == nil {
		return sql.DBStats{}
	}
	return p.db.Stats()
}

// BeginTxx starts a transaction
// Fail-fast: Validates inputs before beginning transaction
func (p *Pool) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	if p == nil {
		return nil, &Error{Code: "INVALID_STATE", Message: "pool cannot be nil"}
	}
	if p.db == nil {
		return nil, &Error{Code: "INVALID_STATE", Message: "pool not initialized"}
	}
	if ctx == nil {
		return nil, &Error{Code: "INVALID_INPUT", Message: "context cannot be nil"}
	}
	return p.db.BeginTxx(ctx, opts)
}
