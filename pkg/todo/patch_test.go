package todo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxorio/todoapi/pkg/models"
)

func TestPatchDecodingTracksPresence(t *testing.T) {
	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{"title": "New", "due_date": null}`), &p))

	assert.True(t, p.Title.Set)
	assert.False(t, p.Title.Null)
	assert.Equal(t, "New", p.Title.Value)
	assert.True(t, p.DueDate.Set)
	assert.True(t, p.DueDate.Null)
	assert.False(t, p.Description.Set)
	assert.False(t, p.IsDone.Set)
	assert.False(t, p.TagIDs.Set)
	assert.False(t, p.Empty())

	var empty Patch
	require.NoError(t, json.Unmarshal([]byte(`{}`), &empty))
	assert.True(t, empty.Empty())
}

func TestPatchApply(t *testing.T) {
	desc := "keep"
	due := models.Date{Year: 2026, Month: time.January, Day: 1}
	todo := models.ToDo{Title: "Old", Description: &desc, DueDate: &due}

	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{"is_done": true, "due_date": null}`), &p))
	tagIDs, replace := p.Apply(&todo)

	assert.False(t, replace)
	assert.Nil(t, tagIDs)
	assert.True(t, todo.IsDone)
	assert.Nil(t, todo.DueDate)
	assert.Equal(t, "Old", todo.Title)
	assert.Equal(t, "keep", *todo.Description)

	p = Patch{}
	require.NoError(t, json.Unmarshal([]byte(`{"tag_ids": [3, 1]}`), &p))
	tagIDs, replace = p.Apply(&todo)
	assert.True(t, replace)
	assert.Equal(t, []int64{3, 1}, tagIDs)
}

func TestPatchValidate(t *testing.T) {
	tests := []struct {
		body    string
		wantErr bool
	}{
		{`{"title": "abc"}`, false},
		{`{"title": "ab"}`, true},
		{`{"title": null}`, true},
		{`{"is_done": null}`, true},
		{`{"description": null}`, false},
		{`{}`, false},
	}
	for _, tt := range tests {
		var p Patch
		require.NoError(t, json.Unmarshal([]byte(tt.body), &p))
		err := p.Validate()
		if tt.wantErr {
			assert.Error(t, err, tt.body)
		} else {
			assert.NoError(t, err, tt.body)
		}
	}
}

func TestPatchRejectsWrongTypes(t *testing.T) {
	var p Patch
	assert.Error(t, json.Unmarshal([]byte(`{"is_done": "yes"}`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"due_date": "tomorrow"}`), &p))
}
