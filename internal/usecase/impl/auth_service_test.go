package impl

import (
	"context"
	"testing"

	"sopmaker/internal/domain/entity"
	domainerrors "sopmaker/internal/domain/errors"
	"sopmaker/internal/domain/repository"
	"sopmaker/internal/domain/service"
	"sopmaker/internal/errors"
	mockUsecase "sopmaker/internal/mocks/usecase"
	"sopmaker/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func exchangeInput(token string) *usecase.ExchangeTokenInput {
	return &usecase.ExchangeTokenInput{IDToken: token, Client: testClient}
}

func TestAuthService_ExchangeToken_MissingToken(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.authService(newTestConfig(0), mockUsecase.NewMockSessionUsecase(t))

	out, err := srv.ExchangeToken(context.Background(), exchangeInput("   "))

	require.ErrorIs(t, err, domainerrors.ErrMissingToken)
	assert.Nil(t, out)
	assert.Equal(t, 1, deps.metrics.Count("exchange:missing_token"))
}

func TestAuthService_ExchangeToken_VerificationErrorsKeepTheirKind(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		target  error
		outcome string
	}{
		{"expired", domainerrors.NewTokenError(domainerrors.TokenExpired, errors.New("exp")), domainerrors.ErrExpiredToken, "exchange:expired_token"},
		{"invalid", domainerrors.NewTokenError(domainerrors.TokenInvalid, errors.New("aud")), domainerrors.ErrInvalidToken, "exchange:invalid_token"},
		{"revoked", domainerrors.NewTokenError(domainerrors.TokenRevoked, errors.New("rev")), domainerrors.ErrInvalidToken, "exchange:invalid_token"},
		{"unavailable", domainerrors.NewTokenError(domainerrors.ProviderUnavailable, errors.New("dial")), domainerrors.ErrProviderUnavailable, "exchange:provider_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newServiceDeps(t)
			srv := deps.authService(newTestConfig(0), mockUsecase.NewMockSessionUsecase(t))

			deps.verifier.On("VerifyIDToken", mock.Anything, "id-token").Return(nil, tt.err)

			_, err := srv.ExchangeToken(context.Background(), exchangeInput("id-token"))

			require.ErrorIs(t, err, tt.target)
			assert.Equal(t, 1, deps.metrics.Count(tt.outcome))
		})
	}
}

func TestAuthService_ExchangeToken_ConfigurationError(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.authService(newTestConfig(0), mockUsecase.NewMockSessionUsecase(t))

	deps.verifier.On("VerifyIDToken", mock.Anything, "id-token").
		Return(nil, domainerrors.NewConfigurationError("firebase", "credentials missing"))

	_, err := srv.ExchangeToken(context.Background(), exchangeInput("id-token"))

	_, ok := errors.AsType[*domainerrors.ConfigurationError](err)
	assert.True(t, ok)
	assert.Equal(t, 1, deps.metrics.Count("exchange:configuration_error"))
}

func TestAuthService_ExchangeToken_ExistingUserClaimRoleWins(t *testing.T) {
	deps := newServiceDeps(t)
	sessions := mockUsecase.NewMockSessionUsecase(t)
	srv := deps.authService(newTestConfig(0), sessions)

	user := &entity.User{ID: "uid-1", Email: "ana@example.com"}
	tokens := newTestTokens("refresh")

	deps.verifier.On("VerifyIDToken", mock.Anything, "id-token").Return(&entity.IdentityClaims{
		Subject: "uid-1",
		Email:   "ana@example.com",
		Custom:  map[string]any{"role": "admin"},
	}, nil)
	deps.users.On("FindByID", mock.Anything, "uid-1").Return(user, nil)
	deps.roles.On("FindByUserID", mock.Anything, "uid-1").Return(&entity.UserRole{UserID: "uid-1", Role: entity.RoleEditor}, nil)
	sessions.On("EstablishSession", mock.Anything, user, entity.RoleAdmin, testClient).Return(tokens, nil)

	out, err := srv.ExchangeToken(context.Background(), exchangeInput("id-token"))

	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, out.Role)
	assert.Equal(t, tokens, out.Tokens)
	assert.False(t, out.Created)
	assert.Empty(t, deps.events.Events)
	assert.Equal(t, 1, deps.metrics.Count("exchange:success"))
}

func TestAuthService_ExchangeToken_StoredRoleWithoutClaims(t *testing.T) {
	deps := newServiceDeps(t)
	sessions := mockUsecase.NewMockSessionUsecase(t)
	srv := deps.authService(newTestConfig(0), sessions)

	user := &entity.User{ID: "uid-1"}

	deps.verifier.On("VerifyIDToken", mock.Anything, "id-token").Return(&entity.IdentityClaims{Subject: "uid-1"}, nil)
	deps.users.On("FindByID", mock.Anything, "uid-1").Return(user, nil)
	deps.roles.On("FindByUserID", mock.Anything, "uid-1").Return(&entity.UserRole{UserID: "uid-1", Role: entity.RoleEditor}, nil)
	sessions.On("EstablishSession", mock.Anything, user, entity.RoleEditor, testClient).Return(newTestTokens("r"), nil)

	out, err := srv.ExchangeToken(context.Background(), exchangeInput("id-token"))

	require.NoError(t, err)
	assert.Equal(t, entity.RoleEditor, out.Role)
}

func TestAuthService_ExchangeToken_CreatesUnknownUser(t *testing.T) {
	deps := newServiceDeps(t)
	sessions := mockUsecase.NewMockSessionUsecase(t)
	srv := deps.authService(newTestConfig(0), sessions)

	deps.verifier.On("VerifyIDToken", mock.Anything, "id-token").Return(&entity.IdentityClaims{
		Subject: "uid-new",
		Email:   "New.User@Example.com",
		Name:    "New User",
		Picture: "https://example.com/a.png",
		Custom:  map[string]any{"roles": []any{"viewer", "editor"}},
	}, nil)
	deps.users.On("FindByID", mock.Anything, "uid-new").Return(nil, repository.ErrUserNotFound).Once()
	deps.users.On("Create", mock.Anything, mock.MatchedBy(func(u *entity.User) bool {
		return u.ID == "uid-new" && u.Email == "new.user@example.com" && u.AvatarURL == "https://example.com/a.png"
	})).Return(nil)
	deps.auths.On("CreateAuthentication", mock.Anything, mock.MatchedBy(func(a *entity.Authentication) bool {
		return a.Provider == entity.ProviderFirebase && a.ProviderUserID == "uid-new" && a.UserID == "uid-new"
	})).Return(nil)
	deps.roles.On("Upsert", mock.Anything, "uid-new", entity.RoleEditor).Return(nil)
	deps.roles.On("FindByUserID", mock.Anything, "uid-new").Return(&entity.UserRole{UserID: "uid-new", Role: entity.RoleEditor}, nil)
	sessions.On("EstablishSession", mock.Anything, mock.AnythingOfType("*entity.User"), entity.RoleEditor, testClient).Return(newTestTokens("r"), nil)

	out, err := srv.ExchangeToken(context.Background(), exchangeInput("id-token"))

	require.NoError(t, err)
	assert.True(t, out.Created)
	assert.Equal(t, "New User", out.User.Name)
	assert.Equal(t, []string{service.EventUserCreated}, deps.events.Types())
}

func TestAuthService_ExchangeToken_ConcurrentCreateRereads(t *testing.T) {
	deps := newServiceDeps(t)
	sessions := mockUsecase.NewMockSessionUsecase(t)
	srv := deps.authService(newTestConfig(0), sessions)

	existing := &entity.User{ID: "uid-1", Email: "ana@example.com"}

	deps.verifier.On("VerifyIDToken", mock.Anything, "id-token").Return(&entity.IdentityClaims{Subject: "uid-1", Email: "ana@example.com"}, nil)
	deps.users.On("FindByID", mock.Anything, "uid-1").Return(nil, repository.ErrUserNotFound).Once()
	deps.users.On("Create", mock.Anything, mock.Anything).Return(errors.Wrap(repository.ErrUserAlreadyExists, "id or email already exists"))
	deps.users.On("FindByID", mock.Anything, "uid-1").Return(existing, nil).Once()
	deps.roles.On("FindByUserID", mock.Anything, "uid-1").Return(nil, repository.ErrRoleNotFound)
	sessions.On("EstablishSession", mock.Anything, existing, entity.RoleViewer, testClient).Return(newTestTokens("r"), nil)

	out, err := srv.ExchangeToken(context.Background(), exchangeInput("id-token"))

	require.NoError(t, err)
	assert.False(t, out.Created)
	assert.Equal(t, existing, out.User)
	assert.Empty(t, deps.events.Events)
}

func TestAuthService_ExchangeToken_UnknownUserWithoutAutoCreate(t *testing.T) {
	deps := newServiceDeps(t)
	cfg := newTestConfig(0)
	cfg.Auth.AutoCreateUsers = false
	srv := deps.authService(cfg, mockUsecase.NewMockSessionUsecase(t))

	deps.verifier.On("VerifyIDToken", mock.Anything, "id-token").Return(&entity.IdentityClaims{Subject: "uid-x"}, nil)
	deps.users.On("FindByID", mock.Anything, "uid-x").Return(nil, repository.ErrUserNotFound)

	_, err := srv.ExchangeToken(context.Background(), exchangeInput("id-token"))

	require.ErrorIs(t, err, domainerrors.ErrUserNotFound)
	assert.Equal(t, 0, deps.tx.Calls)
	assert.Equal(t, 1, deps.metrics.Count("exchange:user_not_found"))
}

func TestAuthService_ExchangeToken_DisabledAccount(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.authService(newTestConfig(0), mockUsecase.NewMockSessionUsecase(t))

	deps.verifier.On("VerifyIDToken", mock.Anything, "id-token").Return(&entity.IdentityClaims{Subject: "uid-1"}, nil)
	deps.users.On("FindByID", mock.Anything, "uid-1").Return(&entity.User{ID: "uid-1", Disabled: true}, nil)

	_, err := srv.ExchangeToken(context.Background(), exchangeInput("id-token"))

	require.ErrorIs(t, err, domainerrors.ErrAccountDisabled)
	assert.Equal(t, 1, deps.metrics.Count("exchange:account_disabled"))
}

func TestAuthService_ExchangeToken_SessionWriteFailure(t *testing.T) {
	deps := newServiceDeps(t)
	sessions := mockUsecase.NewMockSessionUsecase(t)
	srv := deps.authService(newTestConfig(0), sessions)

	user := &entity.User{ID: "uid-1"}
	deps.verifier.On("VerifyIDToken", mock.Anything, "id-token").Return(&entity.IdentityClaims{Subject: "uid-1"}, nil)
	deps.users.On("FindByID", mock.Anything, "uid-1").Return(user, nil)
	deps.roles.On("FindByUserID", mock.Anything, "uid-1").Return(nil, repository.ErrRoleNotFound)
	sessions.On("EstablishSession", mock.Anything, user, entity.RoleViewer, testClient).
		Return(nil, &domainerrors.SessionWriteError{Err: errors.New("disk full")})

	_, err := srv.ExchangeToken(context.Background(), exchangeInput("id-token"))

	_, ok := errors.AsType[*domainerrors.SessionWriteError](err)
	assert.True(t, ok)
	assert.Equal(t, 1, deps.metrics.Count("exchange:error"))
}

func TestAuthService_SignUp(t *testing.T) {
	deps := newServiceDeps(t)
	sessions := mockUsecase.NewMockSessionUsecase(t)
	srv := deps.authService(newTestConfig(0), sessions)

	deps.hasher.On("Hash", "password123").Return("hashed", nil)
	deps.auths.On("FindAuthentication", mock.Anything, entity.ProviderEmail, "ana@example.com").Return(nil, repository.ErrAuthNotFound)
	deps.users.On("Create", mock.Anything, mock.MatchedBy(func(u *entity.User) bool {
		return u.ID != "" && u.Email == "ana@example.com" && u.Name == "Ana"
	})).Return(nil)
	deps.auths.On("CreateAuthentication", mock.Anything, mock.MatchedBy(func(a *entity.Authentication) bool {
		return a.Provider == entity.ProviderEmail && a.PasswordHash == "hashed"
	})).Return(nil)
	deps.roles.On("Upsert", mock.Anything, mock.AnythingOfType("string"), entity.RoleViewer).Return(nil)
	sessions.On("EstablishSession", mock.Anything, mock.AnythingOfType("*entity.User"), entity.RoleViewer, testClient).Return(newTestTokens("r"), nil)

	out, err := srv.SignUp(context.Background(), &usecase.SignUpInput{
		Name:     " Ana ",
		Email:    "Ana@Example.com",
		Password: "password123",
		Client:   testClient,
	})

	require.NoError(t, err)
	assert.True(t, out.Created)
	assert.Equal(t, entity.RoleViewer, out.Role)
	assert.Equal(t, []string{service.EventUserCreated}, deps.events.Types())
}

func TestAuthService_SignUp_EmailTaken(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.authService(newTestConfig(0), mockUsecase.NewMockSessionUsecase(t))

	deps.hasher.On("Hash", "password123").Return("hashed", nil)
	deps.auths.On("FindAuthentication", mock.Anything, entity.ProviderEmail, "ana@example.com").Return(&entity.Authentication{UserID: "uid-1"}, nil)

	_, err := srv.SignUp(context.Background(), &usecase.SignUpInput{Email: "ana@example.com", Password: "password123"})

	require.ErrorIs(t, err, domainerrors.ErrUserAlreadyExists)
}

func TestAuthService_SignIn(t *testing.T) {
	deps := newServiceDeps(t)
	sessions := mockUsecase.NewMockSessionUsecase(t)
	srv := deps.authService(newTestConfig(0), sessions)

	user := &entity.User{ID: "uid-1", Email: "ana@example.com"}
	deps.auths.On("FindAuthentication", mock.Anything, entity.ProviderEmail, "ana@example.com").
		Return(&entity.Authentication{UserID: "uid-1", PasswordHash: "hashed"}, nil)
	deps.hasher.On("Check", "password123", "hashed").Return(true)
	deps.users.On("FindByID", mock.Anything, "uid-1").Return(user, nil)
	deps.roles.On("FindByUserID", mock.Anything, "uid-1").Return(&entity.UserRole{Role: entity.RoleAdmin}, nil)
	sessions.On("EstablishSession", mock.Anything, user, entity.RoleAdmin, testClient).Return(newTestTokens("r"), nil)

	out, err := srv.SignIn(context.Background(), &usecase.SignInInput{Email: "ana@example.com", Password: "password123", Client: testClient})

	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, out.Role)
}

func TestAuthService_SignIn_InvalidCredentials(t *testing.T) {
	t.Run("unknown email", func(t *testing.T) {
		deps := newServiceDeps(t)
		srv := deps.authService(newTestConfig(0), mockUsecase.NewMockSessionUsecase(t))

		deps.auths.On("FindAuthentication", mock.Anything, entity.ProviderEmail, "nobody@example.com").Return(nil, repository.ErrAuthNotFound)

		_, err := srv.SignIn(context.Background(), &usecase.SignInInput{Email: "nobody@example.com", Password: "x"})

		require.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		deps := newServiceDeps(t)
		srv := deps.authService(newTestConfig(0), mockUsecase.NewMockSessionUsecase(t))

		deps.auths.On("FindAuthentication", mock.Anything, entity.ProviderEmail, "ana@example.com").
			Return(&entity.Authentication{UserID: "uid-1", PasswordHash: "hashed"}, nil)
		deps.hasher.On("Check", "wrong", "hashed").Return(false)

		_, err := srv.SignIn(context.Background(), &usecase.SignInInput{Email: "ana@example.com", Password: "wrong"})

		require.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	})
}

func TestAuthService_Status(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.authService(newTestConfig(0), mockUsecase.NewMockSessionUsecase(t))

	_, err := srv.Status(context.Background(), nil)
	require.ErrorIs(t, err, domainerrors.ErrAuthenticationRequired)

	user := &entity.User{ID: "uid-1", Name: "Ana"}
	deps.users.On("FindByID", mock.Anything, "uid-1").Return(user, nil)

	out, err := srv.Status(context.Background(), &entity.SessionState{UserID: "uid-1", Role: entity.RoleEditor})

	require.NoError(t, err)
	assert.Equal(t, user, out.User)
	assert.Equal(t, entity.RoleEditor, out.Role)
}

func TestAuthService_Authenticate(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.authService(newTestConfig(0), mockUsecase.NewMockSessionUsecase(t))

	deps.verifier.On("VerifyIDToken", mock.Anything, "id-token").Return(&entity.IdentityClaims{Subject: "uid-1"}, nil)
	deps.users.On("FindByID", mock.Anything, "uid-1").Return(&entity.User{ID: "uid-1", Email: "ana@example.com", Name: "Ana"}, nil)
	deps.roles.On("FindByUserID", mock.Anything, "uid-1").Return(&entity.UserRole{UserID: "uid-1", Role: entity.RoleEditor}, nil)

	state, err := srv.Authenticate(context.Background(), " id-token ")

	require.NoError(t, err)
	assert.Equal(t, &entity.SessionState{UserID: "uid-1", Email: "ana@example.com", Name: "Ana", Role: entity.RoleEditor}, state)
	assert.Empty(t, deps.metrics.Counts)
}

func TestAuthService_Authenticate_Rejections(t *testing.T) {
	t.Run("empty token", func(t *testing.T) {
		deps := newServiceDeps(t)
		srv := deps.authService(newTestConfig(0), mockUsecase.NewMockSessionUsecase(t))

		_, err := srv.Authenticate(context.Background(), "")

		require.ErrorIs(t, err, domainerrors.ErrMissingToken)
	})

	t.Run("expired token", func(t *testing.T) {
		deps := newServiceDeps(t)
		srv := deps.authService(newTestConfig(0), mockUsecase.NewMockSessionUsecase(t))
		deps.verifier.On("VerifyIDToken", mock.Anything, "id-token").
			Return(nil, domainerrors.NewTokenError(domainerrors.TokenExpired, errors.New("exp")))

		_, err := srv.Authenticate(context.Background(), "id-token")

		require.ErrorIs(t, err, domainerrors.ErrExpiredToken)
	})

	t.Run("unknown user is never created", func(t *testing.T) {
		deps := newServiceDeps(t)
		srv := deps.authService(newTestConfig(0), mockUsecase.NewMockSessionUsecase(t))
		deps.verifier.On("VerifyIDToken", mock.Anything, "id-token").Return(&entity.IdentityClaims{Subject: "uid-new"}, nil)
		deps.users.On("FindByID", mock.Anything, "uid-new").Return(nil, repository.ErrUserNotFound)

		_, err := srv.Authenticate(context.Background(), "id-token")

		require.ErrorIs(t, err, domainerrors.ErrUserNotFound)
	})

	t.Run("disabled account", func(t *testing.T) {
		deps := newServiceDeps(t)
		srv := deps.authService(newTestConfig(0), mockUsecase.NewMockSessionUsecase(t))
		deps.verifier.On("VerifyIDToken", mock.Anything, "id-token").Return(&entity.IdentityClaims{Subject: "uid-1"}, nil)
		deps.users.On("FindByID", mock.Anything, "uid-1").Return(&entity.User{ID: "uid-1", Disabled: true}, nil)

		_, err := srv.Authenticate(context.Background(), "id-token")

		require.ErrorIs(t, err, domainerrors.ErrAccountDisabled)
	})
}
