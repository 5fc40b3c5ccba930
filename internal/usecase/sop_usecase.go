package usecase

import (
	"context"

	"sopmaker/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

type CreateSOPInput struct {
	Title       string
	Description string
}

type UpdateSOPInput struct {
	Title       string
	Description string
}

type AddStepInput struct {
	Title        string
	Instructions string
	MediaURL     string
}

// SOPUsecase defines SOP authoring. Every method except GetShared acts on behalf of actor.
type SOPUsecase interface {
	Create(ctx context.Context, actor *entity.SessionState, input *CreateSOPInput) (*entity.SOP, error)
	List(ctx context.Context, actor *entity.SessionState) ([]*entity.SOP, error)
	Get(ctx context.Context, actor *entity.SessionState, id uuid.UUID) (*entity.SOP, error)
	Update(ctx context.Context, actor *entity.SessionState, id uuid.UUID, input *UpdateSOPInput) (*entity.SOP, error)
	Delete(ctx context.Context, actor *entity.SessionState, id uuid.UUID) error
	AddStep(ctx context.Context, actor *entity.SessionState, id uuid.UUID, input *AddStepInput) (*entity.Step, error)

	// ReorderSteps assigns positions in the order given. order must list every step exactly once.
	ReorderSteps(ctx context.Context, actor *entity.SessionState, id uuid.UUID, order []uuid.UUID) (*entity.SOP, error)

	// Share creates the read-only link on first call and returns the same URL afterwards.
	Share(ctx context.Context, actor *entity.SessionState, id uuid.UUID) (string, error)
	ShareQRCode(ctx context.Context, actor *entity.SessionState, id uuid.UUID) ([]byte, error)

	// GetShared loads a shared SOP without authentication.
	GetShared(ctx context.Context, token string) (*entity.SOP, error)
}
