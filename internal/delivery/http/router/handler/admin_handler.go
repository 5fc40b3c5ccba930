package handler

import (
	"log/slog"
	"net/http"
	"time"

	"sopmaker/internal/delivery/http/response"
	"sopmaker/internal/domain/entity"
	domainerrors "sopmaker/internal/domain/errors"
	"sopmaker/internal/errors"
	"sopmaker/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AdminHandlerParams holds dependencies for AdminHandler, injected by Fx.
type AdminHandlerParams struct {
	fx.In

	AdminUC    usecase.AdminUsecase
	RoleSyncUC usecase.RoleSyncUsecase
	Logger     *slog.Logger
}

// AdminHandler serves the admin area API.
type AdminHandler struct {
	adminUC    usecase.AdminUsecase
	roleSyncUC usecase.RoleSyncUsecase
	logger     *slog.Logger
}

// NewAdminHandler is the constructor for AdminHandler
func NewAdminHandler(params AdminHandlerParams) *AdminHandler {
	return &AdminHandler{
		adminUC:    params.AdminUC,
		roleSyncUC: params.RoleSyncUC,
		logger:     params.Logger,
	}
}

// SyncRoleRequest represents the request body for a role synchronization.
// An empty role is resolved from the stores.
type SyncRoleRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	Role      string `json:"role"`
	Direction string `json:"direction" validate:"required"`
}

// SetRoleRequest represents the request body for changing a user's role
type SetRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// AdminUserView is a user row of the admin list.
type AdminUserView struct {
	UserView
	Role      string    `json:"role"`
	Disabled  bool      `json:"disabled"`
	CreatedAt time.Time `json:"created_at"`
}

// RoleSyncView is the body of a successful synchronization.
type RoleSyncView struct {
	UserID    string         `json:"user_id"`
	Role      string         `json:"role"`
	Direction string         `json:"direction"`
	Updated   []entity.Store `json:"updated"`
}

func newRoleSyncView(result *entity.RoleSyncResult) RoleSyncView {
	return RoleSyncView{
		UserID:    result.UserID,
		Role:      result.Role.String(),
		Direction: string(result.Direction),
		Updated:   result.Updated,
	}
}

// ListUsers returns a page of users with their stored roles.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	var limit, offset int
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).Int("offset", &offset).BindError(); err != nil {
		return response.BadRequest(c, "INVALID_PAGINATION", "limit and offset must be integers")
	}

	users, err := h.adminUC.ListUsers(c.Request().Context(), limit, offset)
	if err != nil {
		return errors.WithStack(err)
	}

	views := make([]AdminUserView, 0, len(users))
	for _, u := range users {
		views = append(views, AdminUserView{
			UserView:  *newUserView(u.User),
			Role:      u.Role.String(),
			Disabled:  u.User.Disabled,
			CreatedAt: u.User.CreatedAt,
		})
	}

	return response.Success(c, http.StatusOK, views)
}

// SyncRole propagates a role between the identity provider and the session store.
func (h *AdminHandler) SyncRole(c echo.Context) error {
	var req SyncRoleRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid role sync input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_FAILED", err.Error())
	}

	direction, ok := entity.ParseSyncDirection(req.Direction)
	if !ok {
		return domainerrors.ErrInvalidSyncDirection.WithDetails(req.Direction)
	}

	input := &usecase.SyncRoleInput{UserID: req.UserID, Direction: direction}
	if req.Role != "" {
		role, ok := entity.ParseRole(req.Role)
		if !ok {
			return domainerrors.ErrInvalidRole.WithDetails(req.Role)
		}
		input.Role = &role
	}

	result, err := h.roleSyncUC.SyncRole(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newRoleSyncView(result))
}

// SetRole writes a new role for the user to both stores.
func (h *AdminHandler) SetRole(c echo.Context) error {
	var req SetRoleRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid role input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_FAILED", err.Error())
	}

	role, ok := entity.ParseRole(req.Role)
	if !ok {
		return domainerrors.ErrInvalidRole.WithDetails(req.Role)
	}

	result, err := h.adminUC.SetRole(c.Request().Context(), c.Param("id"), role)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newRoleSyncView(result))
}
