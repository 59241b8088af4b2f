package todo

import (
	"bytes"
	"encoding/json"

	"github.com/fluxorio/todoapi/pkg/core"
	"github.com/fluxorio/todoapi/pkg/models"
	"github.com/fluxorio/todoapi/pkg/validation"
)

// Field is an optional JSON field that remembers whether it was present and
// whether it was an explicit null.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a present field
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		var zero T
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

// Patch is a partial update. Only fields present in the request are applied.
type Patch struct {
	Title       Field[string]       `json:"title"`
	Description Field[*string]      `json:"description"`
	IsDone      Field[bool]         `json:"is_done"`
	DueDate     Field[*models.Date] `json:"due_date"`
	TagIDs      Field[[]int64]      `json:"tag_ids"`
}

// Validate rejects nulls for required columns and checks present values
func (p Patch) Validate() error {
	if p.Title.Set {
		if p.Title.Null {
			return core.Validation("title: may not be null")
		}
		if err := validation.Var("title", p.Title.Value, titleRule); err != nil {
			return err
		}
	}
	if p.IsDone.Set && p.IsDone.Null {
		return core.Validation("is_done: may not be null")
	}
	return nil
}

// Empty reports whether no field was sent
func (p Patch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.IsDone.Set && !p.DueDate.Set && !p.TagIDs.Set
}

// Apply merges the present fields into t. It reports the tag ids to use and
// whether the tag set should be replaced at all. Null description or due_date
// clears the field; null tag_ids clears the tag set.
func (p Patch) Apply(t *models.ToDo) (tagIDs []int64, replaceTags bool) {
	if p.Title.Set {
		t.Title = p.Title.Value
	}
	if p.Description.Set {
		t.Description = p.Description.Value
	}
	if p.IsDone.Set {
		t.IsDone = p.IsDone.Value
	}
	if p.DueDate.Set {
		t.DueDate = p.DueDate.Value
	}
	if p.TagIDs.Set {
		return p.TagIDs.Value, true
	}
	return nil, false
}
