package firebase

import (
	"context"
	"log/slog"
	"net"
	"time"

	"sopmaker/config"
	"sopmaker/internal/domain/entity"
	domainerrors "sopmaker/internal/domain/errors"
	"sopmaker/internal/domain/service"
	"sopmaker/internal/errors"

	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/errorutils"
)

type verifier struct {
	client       AuthClient
	checkRevoked bool
	logger       *slog.Logger
}

// NewVerifier returns the ID token verifier. A nil client yields a verifier
// that fails every call with a ConfigurationError.
func NewVerifier(client AuthClient, cfg *config.Config, logger *slog.Logger) service.IdentityVerifier {
	if client == nil {
		return disabledVerifier{}
	}

	return &verifier{
		client:       client,
		checkRevoked: cfg.Firebase != nil && cfg.Firebase.CheckRevoked,
		logger:       logger,
	}
}

// VerifyIDToken validates idToken with Firebase. It never retries.
func (v *verifier) VerifyIDToken(ctx context.Context, idToken string) (*entity.IdentityClaims, error) {
	if idToken == "" {
		return nil, domainerrors.NewTokenError(domainerrors.TokenInvalid, errors.New("empty token"))
	}

	var (
		token *auth.Token
		err   error
	)
	if v.checkRevoked {
		token, err = v.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	} else {
		token, err = v.client.VerifyIDToken(ctx, idToken)
	}
	if err != nil {
		classified := classifyVerifyError(ctx, err)
		v.logger.Debug("ID token rejected", slog.Any("error", err))

		return nil, classified
	}

	return toIdentityClaims(token), nil
}

// classifyVerifyError maps Firebase failures onto the token error hierarchy.
func classifyVerifyError(ctx context.Context, err error) error {
	switch {
	case auth.IsUserDisabled(err):
		return domainerrors.ErrAccountDisabled.WithDetails(err.Error())
	case auth.IsIDTokenRevoked(err):
		return domainerrors.NewTokenError(domainerrors.TokenRevoked, err)
	case auth.IsIDTokenExpired(err):
		return domainerrors.NewTokenError(domainerrors.TokenExpired, err)
	case auth.IsCertificateFetchFailed(err), isTransportError(ctx, err):
		return domainerrors.NewTokenError(domainerrors.ProviderUnavailable, err)
	default:
		return domainerrors.NewTokenError(domainerrors.TokenInvalid, err)
	}
}

func isTransportError(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	if errors.IsAny(err, context.DeadlineExceeded, context.Canceled) {
		return true
	}
	if errorutils.IsUnavailable(err) || errorutils.IsDeadlineExceeded(err) || errorutils.IsInternal(err) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr)
}

func toIdentityClaims(token *auth.Token) *entity.IdentityClaims {
	subject := token.UID
	if subject == "" {
		subject = token.Subject
	}

	custom := token.Claims
	if custom == nil {
		custom = map[string]any{}
	}

	claims := &entity.IdentityClaims{
		Subject:   subject,
		IssuedAt:  time.Unix(token.IssuedAt, 0),
		ExpiresAt: time.Unix(token.Expires, 0),
		Custom:    custom,
	}
	claims.Email, _ = custom["email"].(string)
	claims.Name, _ = custom["name"].(string)
	claims.Picture, _ = custom["picture"].(string)
	claims.EmailVerified, _ = custom["email_verified"].(bool)

	return claims
}

type disabledVerifier struct{}

func (disabledVerifier) VerifyIDToken(context.Context, string) (*entity.IdentityClaims, error) {
	return nil, domainerrors.NewConfigurationError("firebase", "identity provider credentials are not configured")
}
