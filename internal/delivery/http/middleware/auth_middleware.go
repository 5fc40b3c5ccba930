package middleware

import (
	"sopmaker/internal/domain/entity"
	domainerrors "sopmaker/internal/domain/errors"

	"github.com/labstack/echo/v4"
)

const sessionKey = "session"

// SetSession stores the resolved caller on the echo context.
func SetSession(c echo.Context, state *entity.SessionState) {
	c.Set(sessionKey, state)
}

// GetSession returns the caller the route guard resolved, if any.
func GetSession(c echo.Context) (*entity.SessionState, bool) {
	state, ok := c.Get(sessionKey).(*entity.SessionState)

	return state, ok && state != nil
}

// RequireSession rejects requests the route guard did not authenticate.
// Route tables can be overridden, so API groups do not rely on classification alone.
func RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := GetSession(c); !ok {
			return domainerrors.ErrAuthenticationRequired
		}

		return next(c)
	}
}

// RequireEditor allows editor, admin and admin_or_editor.
func RequireEditor(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		state, ok := GetSession(c)
		if !ok {
			return domainerrors.ErrAuthenticationRequired
		}
		if !state.Role.CanEdit() {
			return domainerrors.ErrForbidden.WithDetails("editor role required")
		}

		return next(c)
	}
}

// RequireAdmin allows admin and admin_or_editor.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		state, ok := GetSession(c)
		if !ok {
			return domainerrors.ErrAuthenticationRequired
		}
		if !state.Role.IsAdmin() && !IsAdminBypassed(c) {
			return domainerrors.ErrAdminRequired
		}

		return next(c)
	}
}

const adminBypassKey = "admin_bypass"

const resolvedKey = "session_resolved"

func markResolved(c echo.Context) {
	c.Set(resolvedKey, true)
}

// SessionResolved reports whether the route guard already resolved this
// request's credentials. Handlers must not resolve them a second time.
func SessionResolved(c echo.Context) bool {
	resolved, _ := c.Get(resolvedKey).(bool)

	return resolved
}

// IsAdminBypassed reports whether the route guard waived the admin check for this request.
func IsAdminBypassed(c echo.Context) bool {
	bypassed, _ := c.Get(adminBypassKey).(bool)

	return bypassed
}
