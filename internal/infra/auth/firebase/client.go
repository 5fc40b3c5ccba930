// Package firebase implements the identity provider services on top of Firebase Authentication.
package firebase

import (
	"context"
	"encoding/json"
	"log/slog"

	"sopmaker/config"
	domainerrors "sopmaker/internal/domain/errors"
	"sopmaker/internal/domain/lifecycle"
	"sopmaker/internal/errors"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// AuthClient is the subset of *auth.Client the services call.
type AuthClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	SetCustomUserClaims(ctx context.Context, uid string, customClaims map[string]any) error
}

type serviceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// NewAuthClient builds the Firebase auth client.
// Without credentials it returns a nil client, or a ConfigurationError when firebase.required is set.
func NewAuthClient(cfg *config.Config, logger *slog.Logger) (AuthClient, error) {
	fbCfg := cfg.Firebase
	if !fbCfg.HasCredentials() {
		if fbCfg != nil && fbCfg.Required {
			return nil, domainerrors.NewConfigurationError("firebase", "credentials are required but not configured")
		}
		logger.Warn("Firebase credentials not configured, token exchange is disabled")

		return nil, nil
	}

	opt, err := credentialsOption(fbCfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), lifecycle.DefaultTimeout)
	defer cancel()

	var appCfg *firebase.Config
	if fbCfg.ProjectID != "" {
		appCfg = &firebase.Config{ProjectID: fbCfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, appCfg, opt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize Firebase app")
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get auth client")
	}

	logger.Info("Firebase auth client initialized", slog.String("project_id", fbCfg.ProjectID))

	return client, nil
}

func credentialsOption(fbCfg *config.FirebaseConfig) (option.ClientOption, error) {
	if fbCfg.CredentialsPath != "" {
		return option.WithCredentialsFile(fbCfg.CredentialsPath), nil
	}

	raw, err := json.Marshal(serviceAccount{
		Type:        "service_account",
		ProjectID:   fbCfg.ProjectID,
		ClientEmail: fbCfg.ClientEmail,
		PrivateKey:  fbCfg.PrivateKey,
		TokenURI:    "https://oauth2.googleapis.com/token",
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode service account")
	}

	return option.WithCredentialsJSON(raw), nil
}
