// Package models holds the persisted entities.
package models

import (
	"time"
)

// User represents an account. HashedPassword never leaves the service layer.
type User struct {
	ID             int64     `db:"id"`
	Email          string    `db:"email"`
	HashedPassword string    `db:"hashed_password"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
}

// ToDo represents a to-do item
type ToDo struct {
	ID          int64      `db:"id"`
	OwnerID     int64      `db:"owner_id"`
	Title       string     `db:"title"`
	Description *string    `db:"description"`
	IsDone      bool       `db:"is_done"`
	DueDate     *Date      `db:"due_date"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	DeletedAt   *time.Time `db:"deleted_at"`

	// Tags is loaded separately from the todo_tags join
	Tags []Tag `db:"-"`
}

// IsDeleted reports whether the item is soft-deleted
func (t *ToDo) IsDeleted() bool {
	return t.DeletedAt != nil
}

// Tag represents a per-owner label
type Tag struct {
	ID        int64     `db:"id"`
	OwnerID   int64     `db:"owner_id"`
	Name      string    `db:"name"`
	Color     string    `db:"color"`
	CreatedAt time.Time `db:"created_at"`
}

// DefaultTagColor is used when a tag is created without a color
const DefaultTagColor = "#3B82F6"
