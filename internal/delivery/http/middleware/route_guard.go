package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"sopmaker/config"
	deliverycontext "sopmaker/internal/delivery/context"
	"sopmaker/internal/delivery/http/cookie"
	"sopmaker/internal/delivery/http/routeclass"
	"sopmaker/internal/domain/entity"
	domainerrors "sopmaker/internal/domain/errors"
	"sopmaker/internal/domain/service"
	"sopmaker/internal/errors"
	"sopmaker/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// Identity headers forwarded to downstream handlers and the page renderer.
const (
	HeaderUserID     = "X-User-Id"
	HeaderUserEmail  = "X-User-Email"
	HeaderUserRole   = "X-User-Role"
	HeaderAuthStatus = "X-Auth-Status"

	authStatusAuthenticated   = "authenticated"
	authStatusUnauthenticated = "unauthenticated"
)

// Redirect targets for page navigations.
const (
	LandingPath      = "/dashboard"
	SignInPath       = "/auth/signin"
	UnauthorizedPath = "/unauthorized"
)

// Guard decisions as reported to metrics.
const (
	decisionBypass   = "bypass"
	decisionAllow    = "allow"
	decisionRedirect = "redirect"
	decisionDeny     = "deny"
)

var identityHeaders = []string{HeaderUserID, HeaderUserEmail, HeaderUserRole, HeaderAuthStatus}

// RouteGuardParams holds dependencies for RouteGuard, injected by Fx.
type RouteGuardParams struct {
	fx.In

	Sessions usecase.SessionUsecase
	Auth     usecase.AuthUsecase
	Cookies  *cookie.Manager
	Table    *routeclass.Table
	Metrics  service.MetricsRecorder
	Config   *config.Config
	Logger   *slog.Logger
}

// RouteGuard classifies every request before routing and enforces its access rule.
type RouteGuard struct {
	sessions  usecase.SessionUsecase
	auth      usecase.AuthUsecase
	cookies   *cookie.Manager
	table     *routeclass.Table
	metrics   service.MetricsRecorder
	devBypass bool
	logger    *slog.Logger
}

// NewRouteGuard is the constructor for RouteGuard.
func NewRouteGuard(params RouteGuardParams) *RouteGuard {
	devBypass := params.Config.Auth != nil && params.Config.Auth.DevAdminBypass && params.Config.IsDevelopment()
	if devBypass {
		params.Logger.Warn("Admin role check is bypassed in development")
	}

	return &RouteGuard{
		sessions:  params.Sessions,
		auth:      params.Auth,
		cookies:   params.Cookies,
		table:     params.Table,
		metrics:   params.Metrics,
		devBypass: devBypass,
		logger:    params.Logger,
	}
}

// Handle is registered with echo's Pre so it also covers proxied page paths.
func (g *RouteGuard) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		class := g.table.Classify(req.URL.Path)

		if class == routeclass.Static || req.Method == http.MethodOptions {
			g.record(class, decisionBypass)

			return next(c)
		}

		// Only the guard may vouch for identity.
		for _, h := range identityHeaders {
			req.Header.Del(h)
		}

		state, sessionErr := g.resolve(c)
		markResolved(c)

		switch class {
		case routeclass.AuthOnly:
			if state != nil {
				g.record(class, decisionRedirect)

				return c.Redirect(http.StatusFound, LandingPath)
			}
		case routeclass.Protected, routeclass.Admin:
			if state == nil {
				return g.rejectUnauthenticated(c, class, sessionErr)
			}
			if class == routeclass.Admin && !state.Role.IsAdmin() {
				if !g.devBypass {
					return g.rejectForbidden(c, class, state)
				}
				c.Set(adminBypassKey, true)
				g.log(c).Warn("Admin check bypassed", slog.String("userID", state.UserID), slog.String("role", state.Role.String()))
			}
		}

		g.attach(c, state)
		g.record(class, decisionAllow)

		return next(c)
	}
}

// resolve returns the caller or nil. The bool is true when resolution failed
// for an infrastructure reason rather than missing or rejected credentials.
// Cookies win; a bearer ID token is only consulted when there are none.
func (g *RouteGuard) resolve(c echo.Context) (*entity.SessionState, bool) {
	access, refresh := g.cookies.Tokens(c)
	if access == "" && refresh == "" {
		return g.resolveBearer(c)
	}

	req := c.Request()
	client := entity.ClientInfo{UserAgent: req.UserAgent(), IPAddress: c.RealIP()}

	state, err := g.sessions.CurrentUser(req.Context(), access, refresh, client)
	if err != nil {
		g.log(c).Error("Failed to resolve session", slog.Any("error", err))
		g.cookies.Clear(c)

		return nil, true
	}
	if state == nil {
		g.cookies.Clear(c)

		return nil, false
	}
	if state.Rotated != nil {
		g.cookies.Set(c, state.Rotated)
	}

	return state, false
}

func (g *RouteGuard) resolveBearer(c echo.Context) (*entity.SessionState, bool) {
	const bearerPrefix = "Bearer "

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, false
	}

	state, err := g.auth.Authenticate(c.Request().Context(), strings.TrimPrefix(header, bearerPrefix))
	if err == nil {
		return state, false
	}
	if isCredentialRejection(err) {
		g.log(c).Info("Bearer token rejected", slog.Any("error", err))

		return nil, false
	}
	g.log(c).Error("Failed to verify bearer token", slog.Any("error", err))

	return nil, true
}

// isCredentialRejection separates bad credentials from provider or store outages.
func isCredentialRejection(err error) bool {
	if tokenErr, ok := errors.AsType[*domainerrors.TokenError](err); ok {
		return tokenErr.Kind != domainerrors.ProviderUnavailable
	}

	return errors.IsAny(err, domainerrors.ErrMissingToken, domainerrors.ErrUserNotFound, domainerrors.ErrAccountDisabled)
}

func (g *RouteGuard) attach(c echo.Context, state *entity.SessionState) {
	header := c.Request().Header
	if state == nil {
		header.Set(HeaderAuthStatus, authStatusUnauthenticated)

		return
	}

	header.Set(HeaderUserID, state.UserID)
	header.Set(HeaderUserEmail, state.Email)
	header.Set(HeaderUserRole, state.Role.String())
	header.Set(HeaderAuthStatus, authStatusAuthenticated)
	SetSession(c, state)

	req := c.Request()
	c.SetRequest(req.WithContext(deliverycontext.WithCaller(req.Context(), state.UserID, g.logger)))
}

func (g *RouteGuard) rejectUnauthenticated(c echo.Context, class routeclass.Class, sessionErr bool) error {
	req := c.Request()
	if routeclass.IsAPI(req.URL.Path) {
		g.record(class, decisionDeny)

		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
	}

	target := SignInPath + "?redirect=" + url.QueryEscape(req.URL.RequestURI())
	if sessionErr {
		target += "&error=session_error"
	}
	g.record(class, decisionRedirect)

	return c.Redirect(http.StatusFound, target)
}

func (g *RouteGuard) rejectForbidden(c echo.Context, class routeclass.Class, state *entity.SessionState) error {
	g.log(c).Info("Admin route denied", slog.String("userID", state.UserID), slog.String("role", state.Role.String()))

	if routeclass.IsAPI(c.Request().URL.Path) {
		g.record(class, decisionDeny)

		return c.JSON(http.StatusForbidden, map[string]string{"error": "Admin access required"})
	}
	g.record(class, decisionRedirect)

	return c.Redirect(http.StatusFound, UnauthorizedPath)
}

func (g *RouteGuard) record(class routeclass.Class, decision string) {
	g.metrics.RecordGuardDecision(string(class), decision)
}

func (g *RouteGuard) log(c echo.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(c.Request().Context(), g.logger)
}
