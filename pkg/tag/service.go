// Package tag manages per-owner labels. Names are unique per owner.
package tag

import (
	"context"
	"time"

	"github.com/fluxorio/todoapi/pkg/core"
	"github.com/fluxorio/todoapi/pkg/models"
	"github.com/fluxorio/todoapi/pkg/store"
	"github.com/fluxorio/todoapi/pkg/validation"
)

// Input is the body of create and update requests. An empty color means the default.
type Input struct {
	Name  string `json:"name" validate:"required,min=1,max=50"`
	Color string `json:"color" validate:"omitempty,len=7,hexcolor"`
}

// Service runs tag operations for an owner
type Service struct {
	store  *store.Store
	now    func() time.Time
	logger core.Logger
}

// NewService creates a tag service
func NewService(s *store.Store, logger core.Logger) *Service {
	if logger == nil {
		logger = core.NewNopLogger()
	}
	return &Service{store: s, now: time.Now, logger: logger}
}

func (in Input) normalize() Input {
	if in.Color == "" {
		in.Color = models.DefaultTagColor
	}
	return in
}

// Create adds a tag. A name the owner already uses is a Conflict.
func (s *Service) Create(ctx context.Context, ownerID int64, in Input) (*models.Tag, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	in = in.normalize()

	tag := &models.Tag{
		OwnerID:   ownerID,
		Name:      in.Name,
		Color:     in.Color,
		CreatedAt: s.now().UTC(),
	}
	err := s.store.InTx(ctx, func(tx *store.Store) error {
		taken, err := tx.Tags.NameTaken(ctx, ownerID, in.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return core.Conflict("Tag '%s' already exists", in.Name)
		}
		return tx.Tags.Insert(ctx, tag)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Debugf("tag %d created for owner %d", tag.ID, ownerID)
	return tag, nil
}

// List returns all of the owner's tags
func (s *Service) List(ctx context.Context, ownerID int64) ([]models.Tag, error) {
	return s.store.Tags.List(ctx, ownerID)
}

// Get returns one of the owner's tags
func (s *Service) Get(ctx context.Context, ownerID, id int64) (*models.Tag, error) {
	return s.store.Tags.Get(ctx, id, ownerID)
}

// Update renames or recolors a tag. Uniqueness is checked against the owner's other tags.
func (s *Service) Update(ctx context.Context, ownerID, id int64, in Input) (*models.Tag, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	in = in.normalize()

	var tag *models.Tag
	err := s.store.InTx(ctx, func(tx *store.Store) error {
		var err error
		tag, err = tx.Tags.Get(ctx, id, ownerID)
		if err != nil {
			return err
		}
		taken, err := tx.Tags.NameTaken(ctx, ownerID, in.Name, id)
		if err != nil {
			return err
		}
		if taken {
			return core.Conflict("Tag '%s' already exists", in.Name)
		}
		tag.Name = in.Name
		tag.Color = in.Color
		return tx.Tags.Update(ctx, tag)
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// Delete removes a tag and detaches it from every ToDo. The ToDos stay.
func (s *Service) Delete(ctx context.Context, ownerID, id int64) error {
	err := s.store.InTx(ctx, func(tx *store.Store) error {
		return tx.Tags.Delete(ctx, id, ownerID)
	})
	if err != nil {
		return err
	}
	s.logger.WithContext(ctx).Debugf("tag %d deleted for owner %d", id, ownerID)
	return nil
}
