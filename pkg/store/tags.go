package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/fluxorio/todoapi/pkg/core"
	"github.com/fluxorio/todoapi/pkg/db"
	"github.com/fluxorio/todoapi/pkg/models"
)

var tagColumns = []string{"id", "owner_id", "name", "color", "created_at"}

func tagScope(d db.Dialect) Scoped[models.Tag] {
	return NewScoped[models.Tag]("Tag", "tags", tagColumns, d)
}

// Tags stores per-owner labels
type Tags struct {
	s      *Store
	scoped Scoped[models.Tag]
}

// Get returns the owner's tag
func (r *Tags) Get(ctx context.Context, id, ownerID int64) (*models.Tag, error) {
	return r.scoped.FindOwned(ctx, r.s.ex, id, ownerID)
}

// List returns all of the owner's tags in creation order
func (r *Tags) List(ctx context.Context, ownerID int64) ([]models.Tag, error) {
	return r.scoped.Find(ctx, r.s.ex, r.scoped.Select(ownerID).OrderBy(r.scoped.Column("id")))
}

// NameTaken reports whether the owner already has a tag called name, ignoring excludeID
func (r *Tags) NameTaken(ctx context.Context, ownerID int64, name string, excludeID int64) (bool, error) {
	where := []sq.Sqlizer{sq.Eq{r.scoped.Column("name"): name}}
	if excludeID != 0 {
		where = append(where, sq.NotEq{r.scoped.Column("id"): excludeID})
	}
	n, err := r.scoped.Count(ctx, r.s.ex, ownerID, where...)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Resolve returns the subset of ids that name tags owned by ownerID, in id order
func (r *Tags) Resolve(ctx context.Context, ownerID int64, ids []int64) ([]models.Tag, error) {
	if len(ids) == 0 {
		return []models.Tag{}, nil
	}
	return r.scoped.Find(ctx, r.s.ex, r.scoped.Select(ownerID).
		Where(sq.Eq{r.scoped.Column("id"): ids}).
		OrderBy(r.scoped.Column("id")))
}

// Insert creates the tag and sets its ID. A duplicate name is a Conflict.
func (r *Tags) Insert(ctx context.Context, tag *models.Tag) error {
	query, args, err := r.s.dialect.Builder().
		Insert("tags").
		Columns("owner_id", "name", "color", "created_at").
		Values(tag.OwnerID, tag.Name, tag.Color, tag.CreatedAt.UTC()).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build tag insert: %w", err)
	}

	if err := r.s.ex.QueryRowxContext(ctx, query, args...).Scan(&tag.ID); err != nil {
		if db.IsUniqueViolation(err) {
			return core.Conflict("Tag '%s' already exists", tag.Name)
		}
		return fmt.Errorf("insert tag: %w", err)
	}
	return nil
}

// Update writes name and color of the owner's tag
func (r *Tags) Update(ctx context.Context, tag *models.Tag) error {
	err := r.scoped.UpdateOwned(ctx, r.s.ex, tag.ID, tag.OwnerID, map[string]interface{}{
		"name":  tag.Name,
		"color": tag.Color,
	})
	if core.IsKind(err, core.KindConflict) {
		return core.Conflict("Tag '%s' already exists", tag.Name)
	}
	return err
}

// Delete removes the owner's tag and detaches it from every ToDo
func (r *Tags) Delete(ctx context.Context, id, ownerID int64) error {
	if _, err := r.Get(ctx, id, ownerID); err != nil {
		return err
	}

	query, args, err := r.s.dialect.Builder().
		Delete("todo_tags").
		Where(sq.Eq{"tag_id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build tag detach: %w", err)
	}
	if _, err := r.s.ex.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("detach tag %d: %w", id, err)
	}

	return r.scoped.DeleteOwned(ctx, r.s.ex, id, ownerID)
}

type todoTagRow struct {
	TodoID int64 `db:"todo_id"`
	models.Tag
}

// ForTodos loads the tags of each given ToDo, keyed by ToDo id
func (r *Tags) ForTodos(ctx context.Context, todoIDs []int64) (map[int64][]models.Tag, error) {
	out := make(map[int64][]models.Tag, len(todoIDs))
	if len(todoIDs) == 0 {
		return out, nil
	}

	cols := append([]string{"todo_tags.todo_id"}, r.scoped.qualified()...)
	query, args, err := r.s.dialect.Builder().
		Select(cols...).
		From("tags").
		Join("todo_tags ON todo_tags.tag_id = tags.id").
		Where(sq.Eq{"todo_tags.todo_id": todoIDs}).
		OrderBy("tags.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build todo tags query: %w", err)
	}

	var rows []todoTagRow
	if err := sqlx.SelectContext(ctx, r.s.ex, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("load todo tags: %w", err)
	}
	for _, row := range rows {
		out[row.TodoID] = append(out[row.TodoID], row.Tag)
	}
	return out, nil
}
