package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sopmaker/internal/delivery/http/middleware"
	"sopmaker/internal/delivery/http/routeclass"
	"sopmaker/internal/domain/entity"
	domainerrors "sopmaker/internal/domain/errors"
	"sopmaker/internal/errors"
	mockService "sopmaker/internal/mocks/service"
	mockUsecase "sopmaker/internal/mocks/usecase"
	"sopmaker/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// guardedAuthFixture serves the auth routes behind the real route guard.
type guardedAuthFixture struct {
	echo     *echo.Echo
	auth     *mockUsecase.MockAuthUsecase
	sessions *mockUsecase.MockSessionUsecase
}

func newGuardedAuthFixture(t *testing.T) *guardedAuthFixture {
	f := &guardedAuthFixture{
		echo:     newTestEcho(),
		auth:     mockUsecase.NewMockAuthUsecase(t),
		sessions: mockUsecase.NewMockSessionUsecase(t),
	}

	cfg := newTestConfig()
	guard := middleware.NewRouteGuard(middleware.RouteGuardParams{
		Sessions: f.sessions,
		Auth:     f.auth,
		Cookies:  newTestCookies(),
		Table:    routeclass.NewDefaultTable(),
		Metrics:  mockService.NewMetricsRecorder(),
		Config:   cfg,
		Logger:   newDiscardLogger(),
	})
	f.echo.Pre(guard.Handle)

	h := NewAuthHandler(AuthHandlerParams{
		AuthUC:    f.auth,
		SessionUC: f.sessions,
		Cookies:   newTestCookies(),
		Logger:    newDiscardLogger(),
	})
	f.echo.GET("/api/auth/status", h.Status)
	f.echo.POST("/api/auth/signout", h.SignOut)

	return f
}

func TestSignOut_DestroysSessionRotatedByGuard(t *testing.T) {
	f := newGuardedAuthFixture(t)

	f.sessions.On("CurrentUser", mock.Anything, "", "old-refresh", mock.Anything).Return(&entity.SessionState{
		UserID: "uid-1",
		Role:   entity.RoleViewer,
		Rotated: &entity.SessionTokens{
			AccessToken:      "new-access",
			RefreshToken:     "new-refresh",
			AccessExpiresAt:  time.Now().Add(15 * time.Minute),
			RefreshExpiresAt: time.Now().Add(7 * 24 * time.Hour),
		},
	}, nil)
	f.sessions.On("DestroySession", mock.Anything, "new-refresh").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil)
	req.AddCookie(&http.Cookie{Name: "sb-refresh-token", Value: "old-refresh"})
	rec := serve(f.echo, req)

	require.Equal(t, http.StatusOK, rec.Code)
	for _, line := range rec.Header().Values(echo.HeaderSetCookie) {
		assert.NotContains(t, line, "new-refresh")
		assert.NotContains(t, line, "new-access")
	}
	cookies := cookiesOf(rec)
	assert.Equal(t, -1, cookies["sb-access-token"].MaxAge)
	assert.Equal(t, -1, cookies["sb-refresh-token"].MaxAge)
}

func TestStatus_BehindGuardResolvesOnce(t *testing.T) {
	tests := []struct {
		name  string
		state *entity.SessionState
		err   error
	}{
		{"session store unreachable", nil, errors.New("session store unreachable")},
		{"session rejected", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGuardedAuthFixture(t)

			f.sessions.On("CurrentUser", mock.Anything, "access", "refresh", mock.Anything).Return(tt.state, tt.err).Once()
			f.auth.On("Status", mock.Anything, (*entity.SessionState)(nil)).Return(nil, domainerrors.ErrAuthenticationRequired)

			req := httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
			req.AddCookie(&http.Cookie{Name: "sb-access-token", Value: "access"})
			req.AddCookie(&http.Cookie{Name: "sb-refresh-token", Value: "refresh"})
			rec := serve(f.echo, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"authenticated":false}`, rec.Body.String())
			f.sessions.AssertNumberOfCalls(t, "CurrentUser", 1)
		})
	}
}

func TestStatus_BearerTokenWithoutCookies(t *testing.T) {
	f := newGuardedAuthFixture(t)

	state := &entity.SessionState{UserID: "uid-1", Email: "ana@example.com", Role: entity.RoleEditor}
	f.auth.On("Authenticate", mock.Anything, "id-token").Return(state, nil)
	f.auth.On("Status", mock.Anything, state).Return(&usecase.StatusOutput{
		User: &entity.User{ID: "uid-1", Email: "ana@example.com"},
		Role: entity.RoleEditor,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer id-token")
	rec := serve(f.echo, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"editor"`)
	f.sessions.AssertNotCalled(t, "CurrentUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
