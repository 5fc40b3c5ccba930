package main

import (
	"context"
	"log/slog"
	"os"

	"sopmaker/config"
	"sopmaker/internal/delivery"
	"sopmaker/internal/delivery/http"
	"sopmaker/internal/delivery/http/cookie"
	"sopmaker/internal/delivery/http/middleware"
	"sopmaker/internal/delivery/http/routeclass"
	"sopmaker/internal/delivery/http/router/handler"
	"sopmaker/internal/domain/service"
	"sopmaker/internal/infra/auth"
	"sopmaker/internal/infra/auth/firebase"
	logs "sopmaker/internal/infra/log"
	"sopmaker/internal/infra/metrics"
	"sopmaker/internal/infra/persistence/postgres"
	"sopmaker/internal/infra/pubsub"
	"sopmaker/internal/infra/qrcode"
	"sopmaker/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle
	fx.Shutdowner

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		postgres.New,
		metrics.NewCollector,
		// Services and the route guard only see the recorder interface
		func(c *metrics.Collector) service.MetricsRecorder {
			return c
		},
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewUserRepository,
			postgres.NewAuthRepository,
			postgres.NewRoleRepository,
			postgres.NewRefreshTokenRepository,
			postgres.NewSOPRepository,
			postgres.NewTransactionManager,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewBcryptHasher,
			auth.NewJWTService,
			firebase.NewAuthClient,
			firebase.NewVerifier,
			firebase.NewAdmin,
			pubsub.NewEventPublisher,
			qrcode.NewQRCodeService,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewSessionService,
			impl.NewAuthService,
			impl.NewRoleSyncService,
			impl.NewAdminService,
			impl.NewSOPService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			routeclass.FromConfig,
			cookie.NewManager,
			middleware.NewRouteGuard,
			middleware.NewErrorMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
			handler.NewAdminHandler,
			handler.NewSOPHandler,
			handler.NewHealthHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))

				// Trigger graceful shutdown to execute all OnStop hooks
				if shutdownErr := params.Shutdown(); shutdownErr != nil {
					slog.Error("Failed to shutdown gracefully", slog.Any("error", shutdownErr))
					os.Exit(1)
				}
			}
		}()
	}
}
