package api

import (
	"time"

	"github.com/fluxorio/todoapi/pkg/auth"
	"github.com/fluxorio/todoapi/pkg/models"
	"github.com/fluxorio/todoapi/pkg/todo"
)

// UserOut is the public projection of a user; the password hash never leaves
type UserOut struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenOut is the login response
type TokenOut struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TagOut is the public projection of a tag
type TagOut struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// TodoOut is the public projection of a ToDo with its tags
type TodoOut struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	IsDone      bool         `json:"is_done"`
	DueDate     *models.Date `json:"due_date"`
	OwnerID     int64        `json:"owner_id"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	DeletedAt   *time.Time   `json:"deleted_at"`
	IsDeleted   bool         `json:"is_deleted"`
	Tags        []TagOut     `json:"tags"`
}

// PageOut is one page of ToDos
type PageOut struct {
	Items  []TodoOut `json:"items"`
	Total  int       `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

func userOut(u *models.User) UserOut {
	return UserOut{
		ID:        u.ID,
		Email:     u.Email,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.UTC(),
	}
}

func tokenOut(t *auth.Token, now time.Time) TokenOut {
	return TokenOut{
		AccessToken: t.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   int64(t.ExpiresAt.Sub(now).Seconds()),
	}
}

func tagOut(t *models.Tag) TagOut {
	return TagOut{
		ID:        t.ID,
		Name:      t.Name,
		Color:     t.Color,
		CreatedAt: t.CreatedAt.UTC(),
	}
}

func tagsOut(tags []models.Tag) []TagOut {
	out := make([]TagOut, 0, len(tags))
	for i := range tags {
		out = append(out, tagOut(&tags[i]))
	}
	return out
}

func todoOut(t *models.ToDo) TodoOut {
	out := TodoOut{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		IsDone:      t.IsDone,
		DueDate:     t.DueDate,
		OwnerID:     t.OwnerID,
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
		IsDeleted:   t.IsDeleted(),
		Tags:        tagsOut(t.Tags),
	}
	if t.DeletedAt != nil {
		deleted := t.DeletedAt.UTC()
		out.DeletedAt = &deleted
	}
	return out
}

func todosOut(todos []models.ToDo) []TodoOut {
	out := make([]TodoOut, 0, len(todos))
	for i := range todos {
		out = append(out, todoOut(&todos[i]))
	}
	return out
}

func pageOut(p *todo.Page) PageOut {
	return PageOut{
		Items:  todosOut(p.Items),
		Total:  p.Total,
		Limit:  p.Limit,
		Offset: p.Offset,
	}
}
