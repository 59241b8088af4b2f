// Package todo implements the ToDo lifecycle: create, replace, patch,
// complete, soft delete, restore, hard delete and the list queries.
package todo

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fluxorio/todoapi/pkg/core"
	"github.com/fluxorio/todoapi/pkg/models"
	"github.com/fluxorio/todoapi/pkg/store"
	"github.com/fluxorio/todoapi/pkg/validation"
)

const titleRule = "min=3,max=100"

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Transition names reported to the Recorder
const (
	TransitionCreate     = "create"
	TransitionReplace    = "replace"
	TransitionPatch      = "patch"
	TransitionComplete   = "complete"
	TransitionDelete     = "delete"
	TransitionRestore    = "restore"
	TransitionHardDelete = "hard_delete"
)

// Recorder observes successful lifecycle transitions
type Recorder interface {
	RecordTodoTransition(transition string)
}

// CreateInput is the body of a create request
type CreateInput struct {
	Title       string       `json:"title" validate:"required,min=3,max=100"`
	Description *string      `json:"description"`
	DueDate     *models.Date `json:"due_date"`
	TagIDs      []int64      `json:"tag_ids"`
}

// ReplaceInput is a full replacement. Anything absent is reset: description
// and due_date to null, is_done to false, tags to none.
type ReplaceInput struct {
	Title       string       `json:"title" validate:"required,min=3,max=100"`
	Description *string      `json:"description"`
	IsDone      bool         `json:"is_done"`
	DueDate     *models.Date `json:"due_date"`
	TagIDs      []int64      `json:"tag_ids"`
}

// ListQuery selects a page of active ToDos
type ListQuery struct {
	IsDone *bool
	Q      string
	Sort   string
	Limit  int
	Offset int
}

// Page is one page of a list and the size of the whole filtered set
type Page struct {
	Items  []models.ToDo
	Total  int
	Limit  int
	Offset int
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone that decides which calendar day is "today"
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithStrictTagIDs rejects tag ids the caller does not own instead of dropping them
func WithStrictTagIDs(strict bool) Option {
	return func(s *Service) { s.strictTags = strict }
}

// WithLogger sets the logger
func WithLogger(l core.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the transition observer
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// Service runs ToDo operations for an owner. Every operation is ownership
// scoped; ids the owner cannot see are NotFound.
type Service struct {
	store      *store.Store
	now        func() time.Time
	loc        *time.Location
	strictTags bool
	logger     core.Logger
	recorder   Recorder
	tracer     trace.Tracer
}

// NewService creates a ToDo service
func NewService(s *store.Store, opts ...Option) *Service {
	svc := &Service{
		store:  s,
		now:    time.Now,
		loc:    time.UTC,
		logger: core.NewNopLogger(),
		tracer: otel.Tracer("github.com/fluxorio/todoapi/pkg/todo"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *Service) start(ctx context.Context, op string, ownerID int64, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.Int64("todo.owner_id", ownerID))
	return s.tracer.Start(ctx, "todo."+op, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil && !core.IsKind(err, core.KindNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) record(ctx context.Context, transition string, ownerID, id int64) {
	if s.recorder != nil {
		s.recorder.RecordTodoTransition(transition)
	}
	s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"owner_id": ownerID,
		"todo_id":  id,
	}).Debugf("todo %s", transition)
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

// Today is the current calendar day in the service's zone
func (s *Service) Today() models.Date {
	return models.DateOf(s.now().In(s.loc))
}

// resolveTags keeps the tag ids that the owner actually owns, without duplicates
func (s *Service) resolveTags(ctx context.Context, tx *store.Store, ownerID int64, ids []int64) ([]models.Tag, error) {
	if len(ids) == 0 {
		return []models.Tag{}, nil
	}
	unique := dedupe(ids)
	tags, err := tx.Tags.Resolve(ctx, ownerID, unique)
	if err != nil {
		return nil, err
	}
	if s.strictTags && len(tags) != len(unique) {
		found := make(map[int64]bool, len(tags))
		for _, t := range tags {
			found[t.ID] = true
		}
		missing := make([]string, 0)
		for _, id := range unique {
			if !found[id] {
				missing = append(missing, strconv.FormatInt(id, 10))
			}
		}
		return nil, core.Validation("tag_ids: unknown tag ids %s", strings.Join(missing, ", "))
	}
	return tags, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Service) setTags(ctx context.Context, tx *store.Store, todo *models.ToDo, ids []int64) error {
	tags, err := s.resolveTags(ctx, tx, todo.OwnerID, ids)
	if err != nil {
		return err
	}
	tagIDs := make([]int64, len(tags))
	for i, t := range tags {
		tagIDs[i] = t.ID
	}
	if err := tx.Todos.ReplaceTags(ctx, todo.ID, tagIDs); err != nil {
		return err
	}
	todo.Tags = tags
	return nil
}

// Create adds an active ToDo for the owner
func (s *Service) Create(ctx context.Context, ownerID int64, in CreateInput) (_ *models.ToDo, err error) {
	ctx, span := s.start(ctx, "create", ownerID)
	defer func() { finish(span, err) }()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	now := s.timestamp()
	todo := &models.ToDo{
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
		Tags:        []models.Tag{},
	}

	err = s.store.InTx(ctx, func(tx *store.Store) error {
		if err := tx.Todos.Insert(ctx, todo); err != nil {
			return err
		}
		return s.setTags(ctx, tx, todo, in.TagIDs)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, TransitionCreate, ownerID, todo.ID)
	return todo, nil
}

// Get returns an active ToDo
func (s *Service) Get(ctx context.Context, ownerID, id int64) (_ *models.ToDo, err error) {
	ctx, span := s.start(ctx, "get", ownerID, attribute.Int64("todo.id", id))
	defer func() { finish(span, err) }()

	return s.store.Todos.Get(ctx, id, ownerID, store.Active)
}

// List returns a page of active ToDos. Limit must be in [1, 100] and offset
// non-negative; zero limit means the default.
func (s *Service) List(ctx context.Context, ownerID int64, q ListQuery) (_ *Page, err error) {
	ctx, span := s.start(ctx, "list", ownerID)
	defer func() { finish(span, err) }()

	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if err := validation.Var("limit", q.Limit, "gte=1,lte=100"); err != nil {
		return nil, err
	}
	if err := validation.Var("offset", q.Offset, "gte=0"); err != nil {
		return nil, err
	}

	items, total, err := s.store.Todos.List(ctx, ownerID, store.ListFilter{
		IsDone: q.IsDone,
		Query:  q.Q,
		Sort:   q.Sort,
		Limit:  uint64(q.Limit),
		Offset: uint64(q.Offset),
	})
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

// mutate loads an active ToDo, lets fn change it, and saves it with a fresh updated_at
func (s *Service) mutate(ctx context.Context, ownerID, id int64, fn func(tx *store.Store, t *models.ToDo) error) (*models.ToDo, error) {
	var todo *models.ToDo
	err := s.store.InTx(ctx, func(tx *store.Store) error {
		var err error
		todo, err = tx.Todos.Get(ctx, id, ownerID, store.Active)
		if err != nil {
			return err
		}
		if err := fn(tx, todo); err != nil {
			return err
		}
		todo.UpdatedAt = s.timestamp()
		return tx.Todos.Update(ctx, todo)
	})
	if err != nil {
		return nil, err
	}
	return todo, nil
}

// Replace overwrites every settable field of an active ToDo
func (s *Service) Replace(ctx context.Context, ownerID, id int64, in ReplaceInput) (_ *models.ToDo, err error) {
	ctx, span := s.start(ctx, "replace", ownerID, attribute.Int64("todo.id", id))
	defer func() { finish(span, err) }()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	todo, err := s.mutate(ctx, ownerID, id, func(tx *store.Store, t *models.ToDo) error {
		t.Title = in.Title
		t.Description = in.Description
		t.IsDone = in.IsDone
		t.DueDate = in.DueDate
		return s.setTags(ctx, tx, t, in.TagIDs)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, TransitionReplace, ownerID, id)
	return todo, nil
}

// Patch applies only the fields present in p
func (s *Service) Patch(ctx context.Context, ownerID, id int64, p Patch) (_ *models.ToDo, err error) {
	ctx, span := s.start(ctx, "patch", ownerID, attribute.Int64("todo.id", id))
	defer func() { finish(span, err) }()

	if err := p.Validate(); err != nil {
		return nil, err
	}

	todo, err := s.mutate(ctx, ownerID, id, func(tx *store.Store, t *models.ToDo) error {
		tagIDs, replace := p.Apply(t)
		if !replace {
			return nil
		}
		return s.setTags(ctx, tx, t, tagIDs)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, TransitionPatch, ownerID, id)
	return todo, nil
}

// Complete marks an active ToDo done. Completing a done ToDo is not an error.
func (s *Service) Complete(ctx context.Context, ownerID, id int64) (_ *models.ToDo, err error) {
	ctx, span := s.start(ctx, "complete", ownerID, attribute.Int64("todo.id", id))
	defer func() { finish(span, err) }()

	todo, err := s.mutate(ctx, ownerID, id, func(_ *store.Store, t *models.ToDo) error {
		if _, err := lifecycle.Fire(t, TransitionComplete); err != nil {
			return err
		}
		t.IsDone = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, TransitionComplete, ownerID, id)
	return todo, nil
}

// Delete moves an active ToDo to the trash. updated_at is left alone.
func (s *Service) Delete(ctx context.Context, ownerID, id int64) (err error) {
	ctx, span := s.start(ctx, "delete", ownerID, attribute.Int64("todo.id", id))
	defer func() { finish(span, err) }()

	err = s.store.InTx(ctx, func(tx *store.Store) error {
		todo, err := tx.Todos.Get(ctx, id, ownerID, store.Active)
		if err != nil {
			return err
		}
		if _, err := lifecycle.Fire(todo, TransitionDelete); err != nil {
			return err
		}
		deletedAt := s.timestamp()
		todo.DeletedAt = &deletedAt
		return tx.Todos.Update(ctx, todo)
	})
	if err != nil {
		return err
	}

	s.record(ctx, TransitionDelete, ownerID, id)
	return nil
}

// Restore takes a ToDo out of the trash. An active ToDo cannot be restored.
// updated_at is left alone.
func (s *Service) Restore(ctx context.Context, ownerID, id int64) (_ *models.ToDo, err error) {
	ctx, span := s.start(ctx, "restore", ownerID, attribute.Int64("todo.id", id))
	defer func() { finish(span, err) }()

	var todo *models.ToDo
	err = s.store.InTx(ctx, func(tx *store.Store) error {
		var err error
		todo, err = tx.Todos.Get(ctx, id, ownerID, store.Any)
		if err != nil {
			return err
		}
		if _, err := lifecycle.Fire(todo, TransitionRestore); err != nil {
			return err
		}
		todo.DeletedAt = nil
		return tx.Todos.Update(ctx, todo)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, TransitionRestore, ownerID, id)
	return todo, nil
}

// HardDelete removes a ToDo and its tag links permanently, from either state
func (s *Service) HardDelete(ctx context.Context, ownerID, id int64) (err error) {
	ctx, span := s.start(ctx, "hard_delete", ownerID, attribute.Int64("todo.id", id))
	defer func() { finish(span, err) }()

	err = s.store.InTx(ctx, func(tx *store.Store) error {
		todo, err := tx.Todos.Get(ctx, id, ownerID, store.Any)
		if err != nil {
			return err
		}
		if _, err := lifecycle.Fire(todo, TransitionHardDelete); err != nil {
			return err
		}
		return tx.Todos.Delete(ctx, id, ownerID)
	})
	if err != nil {
		return err
	}

	s.record(ctx, TransitionHardDelete, ownerID, id)
	return nil
}

// Overdue lists active, unfinished ToDos due before today, earliest due first
func (s *Service) Overdue(ctx context.Context, ownerID int64) (_ []models.ToDo, err error) {
	ctx, span := s.start(ctx, "overdue", ownerID)
	defer func() { finish(span, err) }()

	return s.store.Todos.Overdue(ctx, ownerID, s.Today())
}

// DueToday lists active ToDos due today, oldest first
func (s *Service) DueToday(ctx context.Context, ownerID int64) (_ []models.ToDo, err error) {
	ctx, span := s.start(ctx, "today", ownerID)
	defer func() { finish(span, err) }()

	return s.store.Todos.DueOn(ctx, ownerID, s.Today())
}

// Trash lists soft-deleted ToDos, most recently deleted first
func (s *Service) Trash(ctx context.Context, ownerID int64) (_ []models.ToDo, err error) {
	ctx, span := s.start(ctx, "trash", ownerID)
	defer func() { finish(span, err) }()

	return s.store.Todos.Trash(ctx, ownerID)
}
