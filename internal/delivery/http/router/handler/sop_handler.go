package handler

import (
	"log/slog"
	"net/http"
	"time"

	"sopmaker/internal/delivery/http/middleware"
	"sopmaker/internal/delivery/http/response"
	"sopmaker/internal/domain/entity"
	domainerrors "sopmaker/internal/domain/errors"
	"sopmaker/internal/errors"
	"sopmaker/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// SOPHandlerParams holds dependencies for SOPHandler, injected by Fx.
type SOPHandlerParams struct {
	fx.In

	SOPUC  usecase.SOPUsecase
	Logger *slog.Logger
}

// SOPHandler holds dependencies for SOP-related handlers
type SOPHandler struct {
	sopUC  usecase.SOPUsecase
	logger *slog.Logger
}

// NewSOPHandler is the constructor for SOPHandler
func NewSOPHandler(params SOPHandlerParams) *SOPHandler {
	return &SOPHandler{
		sopUC:  params.SOPUC,
		logger: params.Logger,
	}
}

// SOPRequest represents the request body for creating or updating an SOP
type SOPRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

// AddStepRequest represents the request body for appending a step
type AddStepRequest struct {
	Title        string `json:"title" validate:"required,max=200"`
	Instructions string `json:"instructions"`
	MediaURL     string `json:"media_url" validate:"omitempty,url"`
}

// ReorderStepsRequest lists every step id in the new order
type ReorderStepsRequest struct {
	StepIDs []uuid.UUID `json:"step_ids" validate:"required"`
}

// SOPView is the public shape of an SOP.
type SOPView struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Shared      bool       `json:"shared"`
	Steps       []StepView `json:"steps"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// StepView is the public shape of a step.
type StepView struct {
	ID           uuid.UUID `json:"id"`
	Position     int       `json:"position"`
	Title        string    `json:"title"`
	Instructions string    `json:"instructions"`
	MediaURL     string    `json:"media_url,omitempty"`
}

func newStepView(s *entity.Step) StepView {
	return StepView{
		ID:           s.ID,
		Position:     s.Position,
		Title:        s.Title,
		Instructions: s.Instructions,
		MediaURL:     s.MediaURL,
	}
}

func newSOPView(s *entity.SOP) SOPView {
	steps := make([]StepView, 0, len(s.Steps))
	for _, step := range s.Steps {
		steps = append(steps, newStepView(step))
	}

	return SOPView{
		ID:          s.ID,
		OwnerID:     s.OwnerID,
		Title:       s.Title,
		Description: s.Description,
		Shared:      s.IsShared(),
		Steps:       steps,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func sopID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, domainerrors.ErrValidationFailed.WithDetails("invalid sop id")
	}

	return id, nil
}

// Create handles SOP creation
func (h *SOPHandler) Create(c echo.Context) error {
	actor, _ := middleware.GetSession(c)

	var req SOPRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid SOP input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_FAILED", err.Error())
	}

	sop, err := h.sopUC.Create(c.Request().Context(), actor, &usecase.CreateSOPInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, newSOPView(sop))
}

// List returns the caller's SOPs
func (h *SOPHandler) List(c echo.Context) error {
	actor, _ := middleware.GetSession(c)

	sops, err := h.sopUC.List(c.Request().Context(), actor)
	if err != nil {
		return errors.WithStack(err)
	}

	views := make([]SOPView, 0, len(sops))
	for _, sop := range sops {
		views = append(views, newSOPView(sop))
	}

	return response.Success(c, http.StatusOK, views)
}

// Get returns one SOP with its steps
func (h *SOPHandler) Get(c echo.Context) error {
	actor, _ := middleware.GetSession(c)

	id, err := sopID(c)
	if err != nil {
		return err
	}

	sop, err := h.sopUC.Get(c.Request().Context(), actor, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newSOPView(sop))
}

// Update handles SOP title and description changes
func (h *SOPHandler) Update(c echo.Context) error {
	actor, _ := middleware.GetSession(c)

	id, err := sopID(c)
	if err != nil {
		return err
	}

	var req SOPRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid SOP input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_FAILED", err.Error())
	}

	sop, err := h.sopUC.Update(c.Request().Context(), actor, id, &usecase.UpdateSOPInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newSOPView(sop))
}

// Delete removes an SOP
func (h *SOPHandler) Delete(c echo.Context) error {
	actor, _ := middleware.GetSession(c)

	id, err := sopID(c)
	if err != nil {
		return err
	}

	if err := h.sopUC.Delete(c.Request().Context(), actor, id); err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// AddStep appends a step to an SOP
func (h *SOPHandler) AddStep(c echo.Context) error {
	actor, _ := middleware.GetSession(c)

	id, err := sopID(c)
	if err != nil {
		return err
	}

	var req AddStepRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid step input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_FAILED", err.Error())
	}

	step, err := h.sopUC.AddStep(c.Request().Context(), actor, id, &usecase.AddStepInput{
		Title:        req.Title,
		Instructions: req.Instructions,
		MediaURL:     req.MediaURL,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, newStepView(step))
}

// ReorderSteps sets the step order
func (h *SOPHandler) ReorderSteps(c echo.Context) error {
	actor, _ := middleware.GetSession(c)

	id, err := sopID(c)
	if err != nil {
		return err
	}

	var req ReorderStepsRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid step order")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_FAILED", err.Error())
	}

	sop, err := h.sopUC.ReorderSteps(c.Request().Context(), actor, id, req.StepIDs)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newSOPView(sop))
}

// Share returns the read-only link of an SOP
func (h *SOPHandler) Share(c echo.Context) error {
	actor, _ := middleware.GetSession(c)

	id, err := sopID(c)
	if err != nil {
		return err
	}

	shareURL, err := h.sopUC.Share(c.Request().Context(), actor, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"share_url": shareURL})
}

// ShareQRCode renders the share link as a PNG
func (h *SOPHandler) ShareQRCode(c echo.Context) error {
	actor, _ := middleware.GetSession(c)

	id, err := sopID(c)
	if err != nil {
		return err
	}

	png, err := h.sopUC.ShareQRCode(c.Request().Context(), actor, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.Blob(http.StatusOK, "image/png", png)
}

// GetShared returns a shared SOP to anyone holding the link
func (h *SOPHandler) GetShared(c echo.Context) error {
	sop, err := h.sopUC.GetShared(c.Request().Context(), c.Param("token"))
	if err != nil {
		return errors.WithStack(err)
	}

	view := newSOPView(sop)
	view.OwnerID = ""

	return response.Success(c, http.StatusOK, view)
}
