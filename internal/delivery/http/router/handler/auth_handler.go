// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	deliverycontext "sopmaker/internal/delivery/context"
	"sopmaker/internal/delivery/http/cookie"
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

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	AuthUC    usecase.AuthUsecase
	SessionUC usecase.SessionUsecase
	Cookies   *cookie.Manager
	Logger    *slog.Logger
}

// AuthHandler serves the token exchange, password and session endpoints.
type AuthHandler struct {
	authUC    usecase.AuthUsecase
	sessionUC usecase.SessionUsecase
	cookies   *cookie.Manager
	logger    *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		authUC:    params.AuthUC,
		sessionUC: params.SessionUC,
		cookies:   params.Cookies,
		logger:    params.Logger,
	}
}

// ExchangeTokenRequest carries the identity provider ID token.
type ExchangeTokenRequest struct {
	Token string `json:"token"`
}

// SignUpRequest represents the request body for password registration
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"max=100"`
}

// SignInRequest represents the request body for password login
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserView is the public shape of a user.
type UserView struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// StatusResponse is the body of GET /api/auth/status.
type StatusResponse struct {
	Authenticated bool      `json:"authenticated"`
	User          *UserView `json:"user,omitempty"`
	Role          string    `json:"role,omitempty"`
}

// SessionView describes one active session of the caller.
type SessionView struct {
	ID        uuid.UUID `json:"id"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newUserView(u *entity.User) *UserView {
	return &UserView{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
	}
}

func clientInfo(c echo.Context) entity.ClientInfo {
	return entity.ClientInfo{
		UserAgent: c.Request().UserAgent(),
		IPAddress: c.RealIP(),
	}
}

// ExchangeToken trades an identity provider ID token for session cookies.
func (h *AuthHandler) ExchangeToken(c echo.Context) error {
	var req ExchangeTokenRequest
	if err := c.Bind(&req); err != nil {
		return domainerrors.ErrMissingToken
	}

	output, err := h.authUC.ExchangeToken(c.Request().Context(), &usecase.ExchangeTokenInput{
		IDToken: req.Token,
		Client:  clientInfo(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	h.cookies.Set(c, output.Tokens)

	return response.OK(c)
}

// SignUp registers a password account and signs it in.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req SignUpRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid registration input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_FAILED", err.Error())
	}

	output, err := h.authUC.SignUp(c.Request().Context(), &usecase.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Client:   clientInfo(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	h.cookies.Set(c, output.Tokens)

	return response.Success(c, http.StatusCreated, StatusResponse{
		Authenticated: true,
		User:          newUserView(output.User),
		Role:          output.Role.String(),
	})
}

// SignIn checks a password and starts a session.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req SignInRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid login input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_FAILED", err.Error())
	}

	output, err := h.authUC.SignIn(c.Request().Context(), &usecase.SignInInput{
		Email:    req.Email,
		Password: req.Password,
		Client:   clientInfo(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	h.cookies.Set(c, output.Tokens)

	return response.Success(c, http.StatusOK, StatusResponse{
		Authenticated: true,
		User:          newUserView(output.User),
		Role:          output.Role.String(),
	})
}

// SignOut forgets the session and clears the cookies. It always succeeds for the client.
// When the guard rotated the session on this request, the rotated token is the live one.
func (h *AuthHandler) SignOut(c echo.Context) error {
	_, refresh := h.cookies.Tokens(c)
	if state, ok := middleware.GetSession(c); ok && state.Rotated != nil {
		refresh = state.Rotated.RefreshToken
	}

	ctx := c.Request().Context()
	if err := h.sessionUC.DestroySession(ctx, refresh); err != nil {
		deliverycontext.GetLoggerOrDefault(ctx, h.logger).Error("Failed to destroy session", slog.Any("error", err))
	}

	h.cookies.Clear(c)

	return response.OK(c)
}

// Status reports who the caller is. The route is public, so the session is
// resolved here when the guard did not attach one.
func (h *AuthHandler) Status(c echo.Context) error {
	state := h.currentSession(c)

	output, err := h.authUC.Status(c.Request().Context(), state)
	if errors.Is(err, domainerrors.ErrAuthenticationRequired) {
		return c.JSON(http.StatusUnauthorized, StatusResponse{Authenticated: false})
	}
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, StatusResponse{
		Authenticated: true,
		User:          newUserView(output.User),
		Role:          output.Role.String(),
	})
}

// currentSession returns the guard's caller. Without a guard in front it
// resolves the cookies once itself; any failure reads as signed out.
func (h *AuthHandler) currentSession(c echo.Context) *entity.SessionState {
	if state, ok := middleware.GetSession(c); ok {
		return state
	}
	if middleware.SessionResolved(c) {
		return nil
	}

	access, refresh := h.cookies.Tokens(c)
	if access == "" && refresh == "" {
		return nil
	}

	ctx := c.Request().Context()
	state, err := h.sessionUC.CurrentUser(ctx, access, refresh, clientInfo(c))
	if err != nil {
		deliverycontext.GetLoggerOrDefault(ctx, h.logger).Error("Failed to resolve session", slog.Any("error", err))
		h.cookies.Clear(c)

		return nil
	}
	if state == nil {
		h.cookies.Clear(c)

		return nil
	}
	if state.Rotated != nil {
		h.cookies.Set(c, state.Rotated)
	}

	return state
}

// ListSessions returns the caller's active sessions.
func (h *AuthHandler) ListSessions(c echo.Context) error {
	state, ok := middleware.GetSession(c)
	if !ok {
		return domainerrors.ErrAuthenticationRequired
	}

	sessions, err := h.sessionUC.ListSessions(c.Request().Context(), state.UserID)
	if err != nil {
		return errors.WithStack(err)
	}

	views := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, SessionView{
			ID:        s.ID,
			UserAgent: s.UserAgent,
			IPAddress: s.IPAddress,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
		})
	}

	return response.Success(c, http.StatusOK, views)
}

// RevokeSessions signs the caller out everywhere, including this browser.
func (h *AuthHandler) RevokeSessions(c echo.Context) error {
	state, ok := middleware.GetSession(c)
	if !ok {
		return domainerrors.ErrAuthenticationRequired
	}

	if err := h.sessionUC.RevokeAllSessions(c.Request().Context(), state.UserID); err != nil {
		return errors.WithStack(err)
	}

	h.cookies.Clear(c)

	return response.OK(c)
}
