package repository

import (
	"context"

	"sopmaker/internal/domain/entity"
	"sopmaker/internal/errors"

	"github.com/google/uuid"
)

// ErrSOPNotFound is returned when an SOP is not found.
var ErrSOPNotFound = errors.New("sop not found")

// SOPRepository persists SOPs and their ordered steps.
type SOPRepository interface {
	Create(ctx context.Context, sop *entity.SOP) error

	// FindByID loads the SOP with its steps ordered by position.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.SOP, error)

	// FindByShareToken loads a shared SOP with its steps.
	FindByShareToken(ctx context.Context, token string) (*entity.SOP, error)

	ListByOwner(ctx context.Context, ownerID string) ([]*entity.SOP, error)

	// Update writes title, description and share token.
	Update(ctx context.Context, sop *entity.SOP) error

	// Delete removes the SOP and its steps.
	Delete(ctx context.Context, id uuid.UUID) error

	CreateStep(ctx context.Context, step *entity.Step) error

	// UpdateStepPositions sets each step's position from the map.
	UpdateStepPositions(ctx context.Context, sopID uuid.UUID, positions map[uuid.UUID]int) error
}
