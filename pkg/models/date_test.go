package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRoundTrip(t *testing.T) {
	d, err := ParseDate("2026-02-28")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-28", d.String())
	assert.Equal(t, "2026-03-01", d.AddDays(1).String())
	assert.Equal(t, "2026-02-27", d.AddDays(-1).String())

	data, err := json.Marshal(struct {
		Due *Date `json:"due"`
	}{Due: &d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":"2026-02-28"}`, string(data))
}

func TestDateRejectsTimestamps(t *testing.T) {
	var d Date
	assert.Error(t, json.Unmarshal([]byte(`"2026-02-28T10:00:00Z"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`20260228`), &d))
	_, err := ParseDate("2026-13-01")
	assert.Error(t, err)
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, Date{2026, time.October, 16}, d)

	require.NoError(t, d.Scan("2026-01-02"))
	assert.Equal(t, "2026-01-02", d.String())

	require.NoError(t, d.Scan([]byte("2026-01-03 00:00:00+00:00")))
	assert.Equal(t, "2026-01-03", d.String())

	assert.Error(t, d.Scan(42))
}

func TestDateBefore(t *testing.T) {
	a := Date{2026, time.October, 15}
	b := Date{2026, time.October, 16}
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.False(t, a.Before(a))
}

func TestToDoIsDeleted(t *testing.T) {
	td := ToDo{}
	assert.False(t, td.IsDeleted())
	now := time.Now()
	td.DeletedAt = &now
	assert.True(t, td.IsDeleted())
}
