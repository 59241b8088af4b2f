package store

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/fluxorio/todoapi/pkg/db"
	"github.com/fluxorio/todoapi/pkg/models"
)

var todoColumns = []string{
	"id", "owner_id", "title", "description", "is_done",
	"due_date", "created_at", "updated_at", "deleted_at",
}

// sortable columns for the list query
var todoSortColumns = map[string]bool{
	"id":          true,
	"title":       true,
	"description": true,
	"is_done":     true,
	"due_date":    true,
	"created_at":  true,
	"updated_at":  true,
}

func todoScope(d db.Dialect) Scoped[models.ToDo] {
	return NewScoped[models.ToDo]("ToDo", "todos", todoColumns, d)
}

// Visibility selects rows by soft-delete state
type Visibility int

const (
	// Active rows have no deleted_at
	Active Visibility = iota
	// Deleted rows are in the trash
	Deleted
	// Any matches both
	Any
)

// ListFilter narrows and orders the owner's active ToDos
type ListFilter struct {
	IsDone *bool
	// Query is a case-insensitive substring of the title
	Query  string
	Sort   string
	Limit  uint64
	Offset uint64
}

// Todos stores to-do items and their tag links
type Todos struct {
	s      *Store
	scoped Scoped[models.ToDo]
}

func (r *Todos) visible(v Visibility) sq.Sqlizer {
	switch v {
	case Deleted:
		return sq.NotEq{r.scoped.Column("deleted_at"): nil}
	case Any:
		return sq.Expr("1 = 1")
	default:
		return sq.Eq{r.scoped.Column("deleted_at"): nil}
	}
}

// Get returns the owner's ToDo in the given visibility, with tags loaded
func (r *Todos) Get(ctx context.Context, id, ownerID int64, v Visibility) (*models.ToDo, error) {
	todo, err := r.scoped.FindOwned(ctx, r.s.ex, id, ownerID, r.visible(v))
	if err != nil {
		return nil, err
	}
	if err := r.attachTags(ctx, []*models.ToDo{todo}); err != nil {
		return nil, err
	}
	return todo, nil
}

// List returns one page of the owner's active ToDos and the unpaginated total
func (r *Todos) List(ctx context.Context, ownerID int64, f ListFilter) ([]models.ToDo, int, error) {
	where := []sq.Sqlizer{r.visible(Active)}
	if f.IsDone != nil {
		where = append(where, sq.Eq{r.scoped.Column("is_done"): *f.IsDone})
	}
	if f.Query != "" {
		where = append(where, sq.Expr(
			"LOWER("+r.scoped.Column("title")+") LIKE ? ESCAPE '\\'",
			"%"+escapeLike(strings.ToLower(f.Query))+"%",
		))
	}

	total, err := r.scoped.Count(ctx, r.s.ex, ownerID, where...)
	if err != nil {
		return nil, 0, err
	}

	q := r.scoped.Select(ownerID)
	for _, cond := range where {
		q = q.Where(cond)
	}
	q = q.OrderBy(r.orderBy(f.Sort)...)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	items, err := r.find(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// orderBy turns "field" or "-field" into ORDER BY terms. An empty sort means
// newest first; an unknown field falls back to insertion order. Ties break on id.
func (r *Todos) orderBy(sort string) []string {
	sort = strings.TrimSpace(sort)
	if sort == "" {
		return []string{r.scoped.Column("created_at") + " DESC", r.scoped.Column("id") + " DESC"}
	}

	dir := "ASC"
	field := sort
	if strings.HasPrefix(sort, "-") {
		dir = "DESC"
		field = sort[1:]
	}
	if !todoSortColumns[field] {
		return []string{r.scoped.Column("id") + " ASC"}
	}
	if field == "id" {
		return []string{r.scoped.Column("id") + " " + dir}
	}
	return []string{r.scoped.Column(field) + " " + dir, r.scoped.Column("id") + " " + dir}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Overdue returns active, unfinished ToDos due strictly before today, earliest first
func (r *Todos) Overdue(ctx context.Context, ownerID int64, today models.Date) ([]models.ToDo, error) {
	return r.find(ctx, r.scoped.Select(ownerID).
		Where(r.visible(Active)).
		Where(sq.Eq{r.scoped.Column("is_done"): false}).
		Where(sq.NotEq{r.scoped.Column("due_date"): nil}).
		Where(sq.Lt{r.scoped.Column("due_date"): today}).
		OrderBy(r.scoped.Column("due_date")+" ASC", r.scoped.Column("id")+" ASC"))
}

// DueOn returns active ToDos due on day, oldest first
func (r *Todos) DueOn(ctx context.Context, ownerID int64, day models.Date) ([]models.ToDo, error) {
	return r.find(ctx, r.scoped.Select(ownerID).
		Where(r.visible(Active)).
		Where(sq.Eq{r.scoped.Column("due_date"): day}).
		OrderBy(r.scoped.Column("created_at")+" ASC", r.scoped.Column("id")+" ASC"))
}

// Trash returns soft-deleted ToDos, most recently deleted first
func (r *Todos) Trash(ctx context.Context, ownerID int64) ([]models.ToDo, error) {
	return r.find(ctx, r.scoped.Select(ownerID).
		Where(r.visible(Deleted)).
		OrderBy(r.scoped.Column("deleted_at")+" DESC", r.scoped.Column("id")+" DESC"))
}

func (r *Todos) find(ctx context.Context, q sq.SelectBuilder) ([]models.ToDo, error) {
	items, err := r.scoped.Find(ctx, r.s.ex, q)
	if err != nil {
		return nil, err
	}
	ptrs := make([]*models.ToDo, len(items))
	for i := range items {
		ptrs[i] = &items[i]
	}
	if err := r.attachTags(ctx, ptrs); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Todos) attachTags(ctx context.Context, items []*models.ToDo) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]int64, len(items))
	for i, t := range items {
		ids[i] = t.ID
	}
	byTodo, err := r.s.Tags.ForTodos(ctx, ids)
	if err != nil {
		return err
	}
	for _, t := range items {
		t.Tags = byTodo[t.ID]
		if t.Tags == nil {
			t.Tags = []models.Tag{}
		}
	}
	return nil
}

// Insert creates the ToDo and sets its ID
func (r *Todos) Insert(ctx context.Context, todo *models.ToDo) error {
	query, args, err := r.s.dialect.Builder().
		Insert("todos").
		Columns("owner_id", "title", "description", "is_done", "due_date", "created_at", "updated_at", "deleted_at").
		Values(todo.OwnerID, todo.Title, todo.Description, todo.IsDone, todo.DueDate,
			todo.CreatedAt.UTC(), todo.UpdatedAt.UTC(), todo.DeletedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build todo insert: %w", err)
	}

	if err := r.s.ex.QueryRowxContext(ctx, query, args...).Scan(&todo.ID); err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}
	return nil
}

// Update writes every mutable column of the owner's ToDo
func (r *Todos) Update(ctx context.Context, todo *models.ToDo) error {
	return r.scoped.UpdateOwned(ctx, r.s.ex, todo.ID, todo.OwnerID, map[string]interface{}{
		"title":       todo.Title,
		"description": todo.Description,
		"is_done":     todo.IsDone,
		"due_date":    todo.DueDate,
		"updated_at":  todo.UpdatedAt.UTC(),
		"deleted_at":  todo.DeletedAt,
	})
}

// Delete removes the owner's ToDo and its tag links, whatever its state
func (r *Todos) Delete(ctx context.Context, id, ownerID int64) error {
	if _, err := r.scoped.FindOwned(ctx, r.s.ex, id, ownerID); err != nil {
		return err
	}
	if err := r.clearTags(ctx, id); err != nil {
		return err
	}
	return r.scoped.DeleteOwned(ctx, r.s.ex, id, ownerID)
}

// ReplaceTags makes tagIDs the complete tag set of the ToDo. Callers resolve
// ownership of the tag ids first.
func (r *Todos) ReplaceTags(ctx context.Context, todoID int64, tagIDs []int64) error {
	if err := r.clearTags(ctx, todoID); err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}

	ins := r.s.dialect.Builder().Insert("todo_tags").Columns("todo_id", "tag_id")
	for _, tagID := range tagIDs {
		ins = ins.Values(todoID, tagID)
	}
	query, args, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("build todo tags insert: %w", err)
	}
	if _, err := r.s.ex.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("link tags to todo %d: %w", todoID, err)
	}
	return nil
}

func (r *Todos) clearTags(ctx context.Context, todoID int64) error {
	query, args, err := r.s.dialect.Builder().
		Delete("todo_tags").
		Where(sq.Eq{"todo_id": todoID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build todo tags delete: %w", err)
	}
	if _, err := r.s.ex.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("unlink tags from todo %d: %w", todoID, err)
	}
	return nil
}
