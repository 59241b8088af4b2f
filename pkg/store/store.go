// Package store is the ownership-scoped persistence layer. Every by-id read or
// write of a ToDo or Tag filters on (id, owner_id) and reports a mismatch as not found.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fluxorio/todoapi/pkg/db"
)

// Executor is satisfied by both *sqlx.DB and *sqlx.Tx
type Executor interface {
	sqlx.ExtContext
}

type beginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Store groups the entity repositories over one executor
type Store struct {
	beginner beginner
	ex       Executor
	inTx     bool
	dialect  db.Dialect

	Users *Users
	Todos *Todos
	Tags  *Tags
}

// New creates a store over a connection pool
func New(pool *db.Pool) *Store {
	return NewWithDB(pool.DB(), pool.Dialect())
}

// NewWithDB creates a store over an existing handle
func NewWithDB(dbx *sqlx.DB, dialect db.Dialect) *Store {
	return newStore(dbx, dbx, false, dialect)
}

func newStore(b beginner, ex Executor, inTx bool, dialect db.Dialect) *Store {
	s := &Store{beginner: b, ex: ex, inTx: inTx, dialect: dialect}
	s.Users = &Users{s: s}
	s.Todos = &Todos{s: s, scoped: todoScope(dialect)}
	s.Tags = &Tags{s: s, scoped: tagScope(dialect)}
	return s
}

// Dialect returns the SQL dialect in use
func (s *Store) Dialect() db.Dialect {
	return s.dialect
}

// InTx runs fn against a store bound to one transaction. The transaction is
// committed when fn returns nil and rolled back otherwise. Nested calls reuse
// the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.beginner.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(newStore(s.beginner, tx, true, s.dialect)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
