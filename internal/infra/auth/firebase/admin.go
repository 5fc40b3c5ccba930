package firebase

import (
	"context"
	"log/slog"
	"maps"

	"sopmaker/internal/domain/entity"
	domainerrors "sopmaker/internal/domain/errors"
	"sopmaker/internal/domain/service"
	"sopmaker/internal/errors"

	"firebase.google.com/go/v4/auth"
)

type admin struct {
	client AuthClient
	logger *slog.Logger
}

// NewAdmin returns the identity provider user admin. A nil client yields an
// admin that fails every call with a ConfigurationError.
func NewAdmin(client AuthClient, logger *slog.Logger) service.IdentityAdmin {
	if client == nil {
		return disabledAdmin{}
	}

	return &admin{client: client, logger: logger}
}

func (a *admin) GetUser(ctx context.Context, subjectID string) (*entity.IdentityUser, error) {
	record, err := a.client.GetUser(ctx, subjectID)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, domainerrors.ErrIdentityUserNotFound.WithDetails(subjectID)
		}

		return nil, errors.Wrap(err, "failed to get identity user")
	}

	user := &entity.IdentityUser{
		Subject:      subjectID,
		Disabled:     record.Disabled,
		CustomClaims: maps.Clone(record.CustomClaims),
	}
	if record.UserInfo != nil {
		user.Email = record.Email
		user.Name = record.DisplayName
		user.PhotoURL = record.PhotoURL
	}
	if user.CustomClaims == nil {
		user.CustomClaims = map[string]any{}
	}

	return user, nil
}

func (a *admin) SetCustomClaims(ctx context.Context, subjectID string, claims map[string]any) error {
	if err := a.client.SetCustomUserClaims(ctx, subjectID, claims); err != nil {
		if auth.IsUserNotFound(err) {
			return domainerrors.ErrIdentityUserNotFound.WithDetails(subjectID)
		}

		return errors.Wrap(err, "failed to set custom claims")
	}

	a.logger.Info("Custom claims updated", slog.String("subject", subjectID))

	return nil
}

type disabledAdmin struct{}

func (disabledAdmin) GetUser(context.Context, string) (*entity.IdentityUser, error) {
	return nil, domainerrors.NewConfigurationError("firebase", "identity provider credentials are not configured")
}

func (disabledAdmin) SetCustomClaims(context.Context, string, map[string]any) error {
	return domainerrors.NewConfigurationError("firebase", "identity provider credentials are not configured")
}
