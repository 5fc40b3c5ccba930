package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"sopmaker/config"
	"sopmaker/internal/delivery"
	httpmiddleware "sopmaker/internal/delivery/http/middleware"
	"sopmaker/internal/delivery/http/routeclass"
	"sopmaker/internal/delivery/http/router"
	"sopmaker/internal/delivery/http/validator"
	"sopmaker/internal/delivery/middleware"
	"sopmaker/internal/domain/lifecycle"
	"sopmaker/internal/errors"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"golang.org/x/net/http2"
)

type httpServer struct {
	cfg    *config.Config
	logger *slog.Logger
	server *echo.Echo
}

// ServerParams holds dependencies for HTTP server, injected by Fx.
type ServerParams struct {
	fx.In

	Lc              fx.Lifecycle
	Cfg             *config.Config
	Logger          *slog.Logger
	RouteGuard      *httpmiddleware.RouteGuard
	ErrorMiddleware *httpmiddleware.ErrorMiddleware
	RouterParams    router.RouterParams
}

func NewServer(params ServerParams) (delivery.Delivery, error) {
	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.Server.ReadTimeout = params.Cfg.HTTP.Timeouts.ReadTimeout
	echoServer.Server.ReadHeaderTimeout = params.Cfg.HTTP.Timeouts.ReadHeaderTimeout
	echoServer.Server.WriteTimeout = params.Cfg.HTTP.Timeouts.WriteTimeout
	echoServer.Server.IdleTimeout = params.Cfg.HTTP.Timeouts.IdleTimeout

	// Pre middleware runs before routing, so proxied page paths are guarded too
	// 1. Request ID first so the guard logs with it
	requestIDMiddleware := middleware.NewRequestIDMiddleware(params.Logger)
	echoServer.Pre(requestIDMiddleware.Process)

	// 2. Route guard
	echoServer.Pre(params.RouteGuard.Handle)

	// 3. Recover middleware (to catch panics in handlers and the proxy)
	echoServer.Use(echomiddleware.Recover())

	// 4. Logger middleware
	loggerMiddleware := middleware.NewLoggerMiddleware(params.Logger, params.Cfg)
	echoServer.Use(loggerMiddleware.Handle)

	// 5. Request body size limit
	echoServer.Use(echomiddleware.BodyLimit(params.Cfg.HTTP.MaxRequestBodySize))

	// 6. Page proxy for everything the API does not serve
	proxy, err := newPageProxy(params.Cfg)
	if err != nil {
		return nil, err
	}
	if proxy != nil {
		echoServer.Use(proxy)
	} else {
		params.Logger.Warn("frontend.url is not set, page requests will get 404")
	}

	// Set up centralized error handler
	echoServer.HTTPErrorHandler = params.ErrorMiddleware.HandleHTTPError

	// Set up validator
	echoServer.Validator = validator.New()

	r := router.NewRouter(params.RouterParams)
	r.RegisterRoutes(echoServer)

	srv := &httpServer{
		cfg:    params.Cfg,
		logger: params.Logger,
		server: echoServer,
	}

	params.Lc.Append(fx.Hook{
		OnStop: srv.stop,
	})

	return srv, nil
}

// newPageProxy forwards page navigations, with the guard's identity headers, to the frontend renderer.
func newPageProxy(cfg *config.Config) (echo.MiddlewareFunc, error) {
	if cfg.Frontend == nil || cfg.Frontend.URL == "" {
		return nil, nil
	}

	target, err := url.Parse(cfg.Frontend.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid frontend.url %q", cfg.Frontend.URL)
	}

	balancer := echomiddleware.NewRoundRobinBalancer([]*echomiddleware.ProxyTarget{{URL: target}})

	return echomiddleware.ProxyWithConfig(echomiddleware.ProxyConfig{
		Skipper:  servedLocally,
		Balancer: balancer,
	}), nil
}

func servedLocally(c echo.Context) bool {
	path := c.Request().URL.Path

	return routeclass.IsAPI(path) || path == "/health" || path == "/metrics"
}

func (s *httpServer) Serve(ctx context.Context) error {
	hostPort := net.JoinHostPort("0.0.0.0", strconv.Itoa(s.cfg.HTTP.Port))
	s.logger.Info("Starting HTTP server", slog.String("host_port", hostPort))
	h2Server := &http2.Server{
		IdleTimeout: s.cfg.HTTP.Timeouts.IdleTimeout,
	}
	if err := s.server.StartH2CServer(hostPort, h2Server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.WithStack(err)
	}

	return nil
}

func (s *httpServer) stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")

	return errors.WithStack(s.server.Shutdown(shutdownCtx))
}
