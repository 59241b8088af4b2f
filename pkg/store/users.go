package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/fluxorio/todoapi/pkg/core"
	"github.com/fluxorio/todoapi/pkg/db"
	"github.com/fluxorio/todoapi/pkg/models"
)

var userColumns = []string{"id", "email", "hashed_password", "is_active", "created_at"}

// Users stores accounts. Users are not owned, so lookups are by id or email only.
type Users struct {
	s *Store
}

func (r *Users) get(ctx context.Context, where sq.Sqlizer) (*models.User, error) {
	query, args, err := r.s.dialect.Builder().
		Select(userColumns...).
		From("users").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user query: %w", err)
	}

	var u models.User
	if err := sqlx.GetContext(ctx, r.s.ex, &u, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.NotFound("User not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// ByID loads a user by primary key
func (r *Users) ByID(ctx context.Context, id int64) (*models.User, error) {
	return r.get(ctx, sq.Eq{"id": id})
}

// ByEmail loads a user by exact email
func (r *Users) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.get(ctx, sq.Eq{"email": email})
}

// Create inserts an active user. A taken email is a Conflict.
func (r *Users) Create(ctx context.Context, email, hashedPassword string, now time.Time) (*models.User, error) {
	u := &models.User{
		Email:          email,
		HashedPassword: hashedPassword,
		IsActive:       true,
		CreatedAt:      now.UTC(),
	}

	query, args, err := r.s.dialect.Builder().
		Insert("users").
		Columns("email", "hashed_password", "is_active", "created_at").
		Values(u.Email, u.HashedPassword, u.IsActive, u.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user insert: %w", err)
	}

	if err := r.s.ex.QueryRowxContext(ctx, query, args...).Scan(&u.ID); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, core.Conflict("Email already registered")
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// UpdatePassword replaces the stored hash
func (r *Users) UpdatePassword(ctx context.Context, id int64, hashedPassword string) error {
	return r.update(ctx, id, map[string]interface{}{"hashed_password": hashedPassword})
}

// SetActive enables or disables the account
func (r *Users) SetActive(ctx context.Context, id int64, active bool) error {
	return r.update(ctx, id, map[string]interface{}{"is_active": active})
}

func (r *Users) update(ctx context.Context, id int64, set map[string]interface{}) error {
	query, args, err := r.s.dialect.Builder().
		Update("users").
		SetMap(set).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build user update: %w", err)
	}

	res, err := r.s.ex.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user %d: %w", id, err)
	}
	if n == 0 {
		return core.NotFound("User not found")
	}
	return nil
}
