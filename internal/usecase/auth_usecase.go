package usecase

import (
	"context"

	"sopmaker/internal/domain/entity"
)

// --- Input DTOs ---

// ExchangeTokenInput carries an identity provider ID token to trade for a session.
type ExchangeTokenInput struct {
	IDToken string
	Client  entity.ClientInfo
}

// SignUpInput defines the data required to register a password account.
type SignUpInput struct {
	Name     string
	Email    string
	Password string
	Client   entity.ClientInfo
}

// SignInInput defines the data required for a password login.
type SignInInput struct {
	Email    string
	Password string
	Client   entity.ClientInfo
}

// --- Output DTOs ---

// AuthOutput is the result of any flow that establishes a session.
type AuthOutput struct {
	User    *entity.User
	Role    entity.Role
	Tokens  *entity.SessionTokens
	Created bool // The user record was created by this call.
}

// StatusOutput describes the signed-in caller.
type StatusOutput struct {
	User *entity.User
	Role entity.Role
}

// AuthUsecase turns external or password credentials into sessions.
type AuthUsecase interface {
	ExchangeToken(ctx context.Context, input *ExchangeTokenInput) (*AuthOutput, error)
	SignUp(ctx context.Context, input *SignUpInput) (*AuthOutput, error)
	SignIn(ctx context.Context, input *SignInInput) (*AuthOutput, error)
	Status(ctx context.Context, state *entity.SessionState) (*StatusOutput, error)
	// Authenticate resolves a bearer ID token to a caller without opening a session.
	Authenticate(ctx context.Context, idToken string) (*entity.SessionState, error)
}
