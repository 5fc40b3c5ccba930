// Package cookie reads and writes the session cookies.
package cookie

import (
	"net/http"
	"strings"
	"time"

	"sopmaker/config"
	"sopmaker/internal/domain/entity"

	"github.com/labstack/echo/v4"
)

// Manager knows the cookie names and attributes from config.
type Manager struct {
	accessName  string
	refreshName string
	secure      bool
}

// NewManager is the constructor for Manager.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		accessName:  cfg.Session.AccessCookie,
		refreshName: cfg.Session.RefreshCookie,
		secure:      cfg.SecureCookies(),
	}
}

// Tokens returns the access and refresh cookie values; missing cookies are empty.
func (m *Manager) Tokens(c echo.Context) (access, refresh string) {
	if ck, err := c.Cookie(m.accessName); err == nil {
		access = ck.Value
	}
	if ck, err := c.Cookie(m.refreshName); err == nil {
		refresh = ck.Value
	}

	return access, refresh
}

// Set writes both session cookies. Max-Age follows each token's expiry.
func (m *Manager) Set(c echo.Context, tokens *entity.SessionTokens) {
	now := time.Now()
	c.SetCookie(m.build(m.accessName, tokens.AccessToken, maxAge(tokens.AccessExpiresAt, now)))
	c.SetCookie(m.build(m.refreshName, tokens.RefreshToken, maxAge(tokens.RefreshExpiresAt, now)))
}

// Clear expires both session cookies. Session cookies already queued on the
// response, such as a rotation earlier in the request, are withdrawn first.
func (m *Manager) Clear(c echo.Context) {
	m.dropPending(c.Response().Header())
	c.SetCookie(m.build(m.accessName, "", -1))
	c.SetCookie(m.build(m.refreshName, "", -1))
}

func (m *Manager) dropPending(header http.Header) {
	pending := header.Values(echo.HeaderSetCookie)
	if len(pending) == 0 {
		return
	}

	kept := make([]string, 0, len(pending))
	for _, line := range pending {
		if strings.HasPrefix(line, m.accessName+"=") || strings.HasPrefix(line, m.refreshName+"=") {
			continue
		}
		kept = append(kept, line)
	}

	header.Del(echo.HeaderSetCookie)
	for _, line := range kept {
		header.Add(echo.HeaderSetCookie, line)
	}
}

func (m *Manager) build(name, value string, age int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   age,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// maxAge never returns 0, which net/http would treat as "no Max-Age".
func maxAge(expiresAt, now time.Time) int {
	seconds := int(expiresAt.Sub(now).Seconds())
	if seconds <= 0 {
		return -1
	}

	return seconds
}
