package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/fluxorio/todoapi/pkg/core"
	"github.com/fluxorio/todoapi/pkg/db"
)

// Scoped is a repository for an entity that carries an owner_id column. There
// is no unscoped read: every query it builds starts from Select(ownerID).
type Scoped[T any] struct {
	noun    string
	table   string
	columns []string
	dialect db.Dialect
}

// NewScoped describes an owned table. columns are unqualified and must match T's db tags.
func NewScoped[T any](noun, table string, columns []string, dialect db.Dialect) Scoped[T] {
	return Scoped[T]{noun: noun, table: table, columns: columns, dialect: dialect}
}

// Column qualifies a column with the table name
func (s Scoped[T]) Column(name string) string {
	return s.table + "." + name
}

func (s Scoped[T]) qualified() []string {
	out := make([]string, len(s.columns))
	for i, c := range s.columns {
		out[i] = s.Column(c)
	}
	return out
}

// Select starts a query over the owner's rows
func (s Scoped[T]) Select(ownerID int64) sq.SelectBuilder {
	return s.dialect.Builder().
		Select(s.qualified()...).
		From(s.table).
		Where(sq.Eq{s.Column("owner_id"): ownerID})
}

// NotFound is the error returned for an id the owner cannot see
func (s Scoped[T]) NotFound(id int64) error {
	return core.NotFound("%s with id=%d not found", s.noun, id)
}

// FindOwned returns the row only if both id and owner match. extra narrows the
// match further (e.g. on soft-delete state); a miss on any condition is NotFound.
func (s Scoped[T]) FindOwned(ctx context.Context, ex Executor, id, ownerID int64, extra ...sq.Sqlizer) (*T, error) {
	q := s.Select(ownerID).Where(sq.Eq{s.Column("id"): id})
	for _, cond := range extra {
		q = q.Where(cond)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", s.table, err)
	}

	var out T
	if err := sqlx.GetContext(ctx, ex, &out, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.NotFound(id)
		}
		return nil, fmt.Errorf("find %s %d: %w", s.table, id, err)
	}
	return &out, nil
}

// Find runs a query built from Select
func (s Scoped[T]) Find(ctx context.Context, ex Executor, q sq.SelectBuilder) ([]T, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", s.table, err)
	}

	out := []T{}
	if err := sqlx.SelectContext(ctx, ex, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", s.table, err)
	}
	return out, nil
}

// Count counts the owner's rows matching where
func (s Scoped[T]) Count(ctx context.Context, ex Executor, ownerID int64, where ...sq.Sqlizer) (int, error) {
	q := s.dialect.Builder().
		Select("COUNT(*)").
		From(s.table).
		Where(sq.Eq{s.Column("owner_id"): ownerID})
	for _, cond := range where {
		q = q.Where(cond)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s count: %w", s.table, err)
	}

	var total int
	if err := sqlx.GetContext(ctx, ex, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", s.table, err)
	}
	return total, nil
}

// UpdateOwned sets columns on the row matching (id, owner). Zero affected rows is NotFound.
func (s Scoped[T]) UpdateOwned(ctx context.Context, ex Executor, id, ownerID int64, set map[string]interface{}) error {
	query, args, err := s.dialect.Builder().
		Update(s.table).
		SetMap(set).
		Where(sq.Eq{"id": id, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build %s update: %w", s.table, err)
	}
	return s.execOwned(ctx, ex, id, query, args)
}

// DeleteOwned removes the row matching (id, owner). Zero affected rows is NotFound.
func (s Scoped[T]) DeleteOwned(ctx context.Context, ex Executor, id, ownerID int64) error {
	query, args, err := s.dialect.Builder().
		Delete(s.table).
		Where(sq.Eq{"id": id, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build %s delete: %w", s.table, err)
	}
	return s.execOwned(ctx, ex, id, query, args)
}

func (s Scoped[T]) execOwned(ctx context.Context, ex Executor, id int64, query string, args []interface{}) error {
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return core.Conflict("%s already exists", s.noun)
		}
		return fmt.Errorf("write %s %d: %w", s.table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write %s %d: %w", s.table, id, err)
	}
	if n == 0 {
		return s.NotFound(id)
	}
	return nil
}
