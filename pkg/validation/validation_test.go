package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fluxorio/todoapi/pkg/core"
)

type sample struct {
	Title string `json:"title" validate:"min=3,max=100"`
	Color string `json:"color" validate:"len=7,hexcolor"`
	Email string `json:"email" validate:"required,email"`
}

func TestStruct(t *testing.T) {
	ok := sample{Title: "abc", Color: "#3B82F6", Email: "a@example.com"}
	assert.NoError(t, Struct(ok))

	tests := []struct {
		name string
		in   sample
		want string
	}{
		{"short title", sample{Title: "ab", Color: "#3B82F6", Email: "a@example.com"}, "title: must be at least 3 characters"},
		{"short hex", sample{Title: "abc", Color: "#FFF", Email: "a@example.com"}, "color: must be exactly 7 characters"},
		{"not hex", sample{Title: "abc", Color: "#GGGGGG", Email: "a@example.com"}, "color: must match ^#[0-9A-Fa-f]{6}$"},
		{"bad email", sample{Title: "abc", Color: "#3B82F6", Email: "nope"}, "email: must be a valid email address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			assert.True(t, core.IsKind(err, core.KindValidation))
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("limit", 10, "gte=1,lte=100"))
	err := Var("limit", 0, "gte=1,lte=100")
	assert.True(t, core.IsKind(err, core.KindValidation))
	assert.Equal(t, "limit: must be greater than or equal to 1", err.Error())
}

func TestTitleLengthCountsCharacters(t *testing.T) {
	// three runes, nine bytes
	assert.NoError(t, Struct(sample{Title: "日本語", Color: "#3B82F6", Email: "a@example.com"}))
}
