package db

import (
	sq "github.com/Masterminds/squirrel"
)

// Dialect selects placeholder style and DDL
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DialectFor maps a database/sql driver name to its dialect
func DialectFor(driverName string) (Dialect, error) {
	switch driverName {
	case "postgres", "pgx":
		return DialectPostgres, nil
	case "sqlite3":
		return DialectSQLite, nil
	default:
		return "", &Error{Code: "INVALID_CONFIG", Message: "unsupported driver: " + driverName}
	}
}

// Placeholder returns the bind parameter format for the dialect
func (d Dialect) Placeholder() sq.PlaceholderFormat {
	if d == DialectPostgres {
		return sq.Dollar
	}
	return sq.Question
}

// Builder returns a squirrel statement builder bound to the dialect
func (d Dialect) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.Placeholder())
}
