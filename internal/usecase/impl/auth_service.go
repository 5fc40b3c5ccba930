// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"sopmaker/config"
	deliverycontext "sopmaker/internal/delivery/context"
	"sopmaker/internal/domain/entity"
	domainerrors "sopmaker/internal/domain/errors"
	"sopmaker/internal/domain/repository"
	"sopmaker/internal/domain/service"
	"sopmaker/internal/errors"
	"sopmaker/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// Token exchange outcomes reported to metrics.
const (
	exchangeOutcomeSuccess      = "success"
	exchangeOutcomeMissingToken = "missing_token"
	exchangeOutcomeInvalid      = "invalid_token"
	exchangeOutcomeExpired      = "expired_token"
	exchangeOutcomeUnavailable  = "provider_unavailable"
	exchangeOutcomeConfig       = "configuration_error"
	exchangeOutcomeNotFound     = "user_not_found"
	exchangeOutcomeDisabled     = "account_disabled"
	exchangeOutcomeError        = "error"
)

// authService implements the AuthUsecase interface.
type authService struct {
	txManager       repository.TransactionManager
	userRepo        repository.UserRepository
	roleRepo        repository.RoleRepository
	verifier        service.IdentityVerifier
	hasher          service.PasswordHasher
	sessions        usecase.SessionUsecase
	publisher       service.EventPublisher
	metrics         service.MetricsRecorder
	autoCreateUsers bool
	providerTimeout time.Duration
	logger          *slog.Logger
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	UserRepo  repository.UserRepository
	RoleRepo  repository.RoleRepository
	Verifier  service.IdentityVerifier
	Hasher    service.PasswordHasher
	Sessions  usecase.SessionUsecase
	Publisher service.EventPublisher
	Metrics   service.MetricsRecorder
	Config    *config.Config
	Logger    *slog.Logger
}

// NewAuthService is the constructor for authService.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return &authService{
		txManager:       params.TxManager,
		userRepo:        params.UserRepo,
		roleRepo:        params.RoleRepo,
		verifier:        params.Verifier,
		hasher:          params.Hasher,
		sessions:        params.Sessions,
		publisher:       params.Publisher,
		metrics:         params.Metrics,
		autoCreateUsers: params.Config.Auth != nil && params.Config.Auth.AutoCreateUsers,
		providerTimeout: params.Config.ProviderTimeout(),
		logger:          params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// ExchangeToken verifies an identity provider ID token and opens a session for its subject.
func (srv *authService) ExchangeToken(ctx context.Context, input *usecase.ExchangeTokenInput) (*usecase.AuthOutput, error) {
	output, err := srv.exchangeToken(ctx, input)
	srv.metrics.RecordTokenExchange(exchangeOutcome(err))

	return output, err
}

func (srv *authService) exchangeToken(ctx context.Context, input *usecase.ExchangeTokenInput) (*usecase.AuthOutput, error) {
	idToken := strings.TrimSpace(input.IDToken)
	if idToken == "" {
		return nil, domainerrors.ErrMissingToken
	}

	ctx, cancel := context.WithTimeout(ctx, srv.providerTimeout)
	defer cancel()

	claims, err := srv.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		srv.log(ctx).Warn("ID token verification failed", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to verify ID token")
	}

	user, created, err := srv.findOrCreateIdentityUser(ctx, claims)
	if err != nil {
		return nil, err
	}
	if user.Disabled {
		srv.log(ctx).Warn("Disabled account attempted token exchange", slog.String("userID", user.ID))

		return nil, domainerrors.ErrAccountDisabled
	}

	stored, err := findStoredRole(ctx, srv.roleRepo, user.ID)
	if err != nil {
		return nil, err
	}
	role := entity.ResolveRole(claims.Custom, stored)

	tokens, err := srv.sessions.EstablishSession(ctx, user, role, input.Client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to establish session")
	}

	if created {
		srv.publishUserCreated(ctx, user, role, entity.ProviderFirebase)
	}
	srv.log(ctx).Info("Token exchanged for session", slog.String("userID", user.ID), slog.String("role", role.String()), slog.Bool("created", created))

	return &usecase.AuthOutput{User: user, Role: role, Tokens: tokens, Created: created}, nil
}

// findOrCreateIdentityUser loads the session store user for the token subject, creating it
// when auto-creation is on. A concurrent creation of the same subject is resolved by re-reading.
func (srv *authService) findOrCreateIdentityUser(ctx context.Context, claims *entity.IdentityClaims) (*entity.User, bool, error) {
	user, err := srv.userRepo.FindByID(ctx, claims.Subject)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, errors.Wrap(err, "failed to find user by subject")
	}

	if !srv.autoCreateUsers {
		srv.log(ctx).Info("Unknown subject and auto-creation disabled", slog.String("subject", claims.Subject))

		return nil, false, domainerrors.ErrUserNotFound
	}

	newUser := &entity.User{
		ID:        claims.Subject,
		Email:     normalizeEmail(claims.Email),
		Name:      claims.Name,
		AvatarURL: claims.Picture,
	}
	initialRole := entity.ResolveRole(claims.Custom, nil)

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		if err := repoFactory.NewUserRepository().Create(ctx, newUser); err != nil {
			return errors.Wrap(err, "failed to create user from identity claims")
		}

		if err := repoFactory.NewAuthRepository().CreateAuthentication(ctx, &entity.Authentication{
			UserID:         newUser.ID,
			Provider:       entity.ProviderFirebase,
			ProviderUserID: claims.Subject,
		}); err != nil {
			return errors.Wrap(err, "failed to record identity provider authentication")
		}

		return errors.Wrap(repoFactory.NewRoleRepository().Upsert(ctx, newUser.ID, initialRole), "failed to store initial role")
	})
	if err == nil {
		srv.log(ctx).Info("Created user from identity token", slog.String("userID", newUser.ID))

		return newUser, true, nil
	}
	if !errors.Is(err, repository.ErrUserAlreadyExists) {
		return nil, false, errors.Wrap(err, "failed to execute user creation transaction")
	}

	// Lost the race to another request, or the email belongs to a different account.
	existing, findErr := srv.userRepo.FindByID(ctx, claims.Subject)
	if findErr != nil {
		srv.log(ctx).Warn("User creation conflicted", slog.String("subject", claims.Subject), slog.Any("error", err))

		return nil, false, domainerrors.ErrUserAlreadyExists
	}

	return existing, false, nil
}

// SignUp registers a password account with the viewer role and signs it in.
func (srv *authService) SignUp(ctx context.Context, input *usecase.SignUpInput) (*usecase.AuthOutput, error) {
	email := normalizeEmail(input.Email)
	srv.log(ctx).Info("Starting registration", slog.String("email", email))

	hashedPassword, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password during registration", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	newUser := &entity.User{
		ID:    uuid.NewString(),
		Email: email,
		Name:  strings.TrimSpace(input.Name),
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		authRepo := repoFactory.NewAuthRepository()

		_, err := authRepo.FindAuthentication(ctx, entity.ProviderEmail, email)
		if err == nil {
			return domainerrors.ErrUserAlreadyExists
		}
		if !errors.Is(err, repository.ErrAuthNotFound) {
			return errors.Wrap(err, "failed to find authentication")
		}

		if err := repoFactory.NewUserRepository().Create(ctx, newUser); err != nil {
			if errors.Is(err, repository.ErrUserAlreadyExists) {
				return domainerrors.ErrUserAlreadyExists
			}

			return errors.Wrap(err, "failed to create user during registration")
		}

		if err := authRepo.CreateAuthentication(ctx, &entity.Authentication{
			UserID:         newUser.ID,
			Provider:       entity.ProviderEmail,
			ProviderUserID: email,
			PasswordHash:   hashedPassword,
		}); err != nil {
			return errors.Wrap(err, "failed to create authentication during registration")
		}

		return errors.Wrap(repoFactory.NewRoleRepository().Upsert(ctx, newUser.ID, entity.RoleViewer), "failed to store initial role")
	})
	if err != nil {
		srv.log(ctx).Warn("Registration failed", slog.String("email", email), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute user registration transaction")
	}

	tokens, err := srv.sessions.EstablishSession(ctx, newUser, entity.RoleViewer, input.Client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to establish session")
	}

	srv.publishUserCreated(ctx, newUser, entity.RoleViewer, entity.ProviderEmail)

	return &usecase.AuthOutput{User: newUser, Role: entity.RoleViewer, Tokens: tokens, Created: true}, nil
}

// SignIn checks a password credential and opens a session.
func (srv *authService) SignIn(ctx context.Context, input *usecase.SignInInput) (*usecase.AuthOutput, error) {
	email := normalizeEmail(input.Email)
	srv.log(ctx).Debug("Starting user login", slog.String("email", email))

	var (
		user   *entity.User
		stored *entity.Role
	)
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		authRecord, err := repoFactory.NewAuthRepository().FindAuthentication(ctx, entity.ProviderEmail, email)
		if errors.Is(err, repository.ErrAuthNotFound) {
			return domainerrors.ErrInvalidCredentials
		}
		if err != nil {
			return errors.Wrap(err, "failed to find authentication")
		}

		if !srv.hasher.Check(input.Password, authRecord.PasswordHash) {
			return domainerrors.ErrInvalidCredentials
		}

		user, err = repoFactory.NewUserRepository().FindByID(ctx, authRecord.UserID)
		if err != nil {
			return errors.Wrap(err, "failed to find user by id")
		}

		stored, err = findStoredRole(ctx, repoFactory.NewRoleRepository(), user.ID)

		return err
	})
	if err != nil {
		srv.log(ctx).Warn("Login failed", slog.String("email", email), slog.Any("error", err))

		return nil, errors.Wrap(err, "login failed")
	}
	if user.Disabled {
		return nil, domainerrors.ErrAccountDisabled
	}

	role := entity.ResolveRole(nil, stored)

	tokens, err := srv.sessions.EstablishSession(ctx, user, role, input.Client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to establish session")
	}
	srv.log(ctx).Debug("User logged in successfully", slog.String("userID", user.ID))

	return &usecase.AuthOutput{User: user, Role: role, Tokens: tokens}, nil
}

// Status loads the profile behind a resolved session.
func (srv *authService) Status(ctx context.Context, state *entity.SessionState) (*usecase.StatusOutput, error) {
	if state == nil {
		return nil, domainerrors.ErrAuthenticationRequired
	}

	user, err := srv.userRepo.FindByID(ctx, state.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, domainerrors.ErrAuthenticationRequired
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find session user")
	}

	return &usecase.StatusOutput{User: user, Role: state.Role}, nil
}

// Authenticate verifies a bearer ID token for API clients that carry no cookies.
// Only known, enabled users pass; the role is resolved claims first, then the stored role.
func (srv *authService) Authenticate(ctx context.Context, idToken string) (*entity.SessionState, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, domainerrors.ErrMissingToken
	}

	verifyCtx, cancel := context.WithTimeout(ctx, srv.providerTimeout)
	defer cancel()

	claims, err := srv.verifier.VerifyIDToken(verifyCtx, idToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to verify bearer token")
	}

	user, err := srv.userRepo.FindByID(ctx, claims.Subject)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, domainerrors.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find bearer token user")
	}
	if user.Disabled {
		return nil, domainerrors.ErrAccountDisabled
	}

	stored, err := findStoredRole(ctx, srv.roleRepo, user.ID)
	if err != nil {
		return nil, err
	}

	return &entity.SessionState{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   entity.ResolveRole(claims.Custom, stored),
	}, nil
}

func (srv *authService) publishUserCreated(ctx context.Context, user *entity.User, role entity.Role, provider string) {
	event := &service.AuthEvent{
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		Type:       service.EventUserCreated,
		UserID:     user.ID,
		Email:      user.Email,
		Role:       role.String(),
		Attributes: map[string]string{"provider": provider},
		OccurredAt: time.Now().UTC(),
	}

	if err := srv.publisher.PublishAuthEvent(ctx, event); err != nil {
		srv.log(ctx).Warn("Failed to publish user created event", slog.String("userID", user.ID), slog.Any("error", err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// exchangeOutcome maps an ExchangeToken error onto its metrics label.
func exchangeOutcome(err error) string {
	if err == nil {
		return exchangeOutcomeSuccess
	}

	if tokenErr, ok := errors.AsType[*domainerrors.TokenError](err); ok {
		switch tokenErr.Kind {
		case domainerrors.TokenExpired:
			return exchangeOutcomeExpired
		case domainerrors.ProviderUnavailable:
			return exchangeOutcomeUnavailable
		default:
			return exchangeOutcomeInvalid
		}
	}
	if _, ok := errors.AsType[*domainerrors.ConfigurationError](err); ok {
		return exchangeOutcomeConfig
	}

	switch {
	case errors.Is(err, domainerrors.ErrMissingToken):
		return exchangeOutcomeMissingToken
	case errors.Is(err, domainerrors.ErrUserNotFound):
		return exchangeOutcomeNotFound
	case errors.Is(err, domainerrors.ErrAccountDisabled):
		return exchangeOutcomeDisabled
	default:
		return exchangeOutcomeError
	}
}
