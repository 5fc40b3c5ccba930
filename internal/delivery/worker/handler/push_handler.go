// Package handler contains the worker's Pub/Sub push handlers.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"sopmaker/config"
	deliverycontext "sopmaker/internal/delivery/context"
	"sopmaker/internal/domain/entity"
	domainerrors "sopmaker/internal/domain/errors"
	"sopmaker/internal/domain/service"
	"sopmaker/internal/errors"
	"sopmaker/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"google.golang.org/api/idtoken"
)

// PubSubMessage represents the structure of a Pub/Sub push message
type PubSubMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// retryableError wraps an error to indicate it should trigger a Pub/Sub retry
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.err)
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// newRetryableError wraps an error as retryable
func newRetryableError(err error) error {
	return &retryableError{err: err}
}

// isRetryableError checks if an error is retryable
func isRetryableError(err error) bool {
	_, ok := errors.AsType[*retryableError](err)

	return ok
}

// TokenValidator checks a push request's OIDC token against an audience.
type TokenValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// PushHandler runs session store maintenance triggered by Pub/Sub push messages.
type PushHandler struct {
	verifyPushAuth bool
	validate       TokenValidator
	logger         *slog.Logger
	sessions       usecase.SessionUsecase
	roleSync       usecase.RoleSyncUsecase
}

// PushHandlerParams holds dependencies for the PushHandler
type PushHandlerParams struct {
	fx.In

	Config     *config.Config
	Logger     *slog.Logger
	SessionUC  usecase.SessionUsecase
	RoleSyncUC usecase.RoleSyncUsecase
}

// NewPushHandler creates a new Pub/Sub push handler
func NewPushHandler(params PushHandlerParams) *PushHandler {
	return &PushHandler{
		verifyPushAuth: params.Config.VerifyPushAuth(),
		validate:       idtoken.Validate,
		logger:         params.Logger,
		sessions:       params.SessionUC,
		roleSync:       params.RoleSyncUC,
	}
}

// HandlePush handles incoming Pub/Sub push messages
func (h *PushHandler) HandlePush(c echo.Context) error {
	ctx := c.Request().Context()

	if h.verifyPushAuth {
		if err := h.verifyPubSubToken(c.Request()); err != nil {
			h.logger.Warn("[Worker] Invalid Pub/Sub token", slog.Any("error", err))

			return c.NoContent(http.StatusUnauthorized)
		}
	}

	var pushMsg PubSubMessage
	if err := c.Bind(&pushMsg); err != nil {
		h.logger.Error("[Worker] Failed to parse push message", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	data, err := base64.StdEncoding.DecodeString(pushMsg.Message.Data)
	if err != nil {
		h.logger.Error("[Worker] Failed to decode message data", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	var event service.AuthEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.logger.Error("[Worker] Failed to parse auth event", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	// Priority: message attributes > event field > existing context
	requestID := h.extractRequestID(ctx, &pushMsg, &event)
	reqLogger := h.logger.With(slog.String("request_id", requestID))

	ctx = deliverycontext.WithRequestID(ctx, requestID)
	ctx = deliverycontext.WithLogger(ctx, reqLogger)

	reqLogger.Info("[Worker] Processing auth event",
		slog.String("type", event.Type),
		slog.String("message_id", pushMsg.Message.MessageID),
	)

	if err := h.process(ctx, &event); err != nil {
		reqLogger.Error("[Worker] Failed to process auth event",
			slog.String("type", event.Type),
			slog.Any("error", err),
			slog.Bool("retryable", isRetryableError(err)),
		)
		// 503 asks Pub/Sub to redeliver; anything else is acked to stop the retries
		if isRetryableError(err) {
			return c.NoContent(http.StatusServiceUnavailable)
		}

		return c.NoContent(http.StatusOK)
	}

	return c.NoContent(http.StatusOK)
}

func (h *PushHandler) extractRequestID(ctx context.Context, pushMsg *PubSubMessage, event *service.AuthEvent) string {
	if requestID, ok := pushMsg.Message.Attributes["request_id"]; ok && requestID != "" {
		return requestID
	}

	if event.RequestID != "" {
		return event.RequestID
	}

	if requestID := deliverycontext.GetRequestIDFromContext(ctx); requestID != "" {
		return requestID
	}

	return uuid.New().String()
}

func (h *PushHandler) process(ctx context.Context, event *service.AuthEvent) error {
	switch event.Type {
	case service.EventSessionCleanup:
		return h.cleanupSessions(ctx)
	case service.EventRoleSyncFailed:
		return h.reconcileRole(ctx, event)
	default:
		deliverycontext.GetLoggerOrDefault(ctx, h.logger).Debug("[Worker] Ignoring auth event", slog.String("type", event.Type))

		return nil
	}
}

func (h *PushHandler) cleanupSessions(ctx context.Context) error {
	deleted, err := h.sessions.CleanupExpiredSessions(ctx)
	if err != nil {
		return newRetryableError(errors.WithStack(err))
	}

	deliverycontext.GetLoggerOrDefault(ctx, h.logger).Info("[Worker] Expired sessions removed", slog.Int64("deleted", deleted))

	return nil
}

// reconcileRole writes the stores a partial sync missed. The role is resolved
// again from the store that was written, so a newer change is never overwritten
// by a stale event.
func (h *PushHandler) reconcileRole(ctx context.Context, event *service.AuthEvent) error {
	if event.UserID == "" {
		return errors.New("role.sync_failed event without user_id")
	}

	direction, err := reconcileDirection(event.Attributes[service.AttributeFailedStores])
	if err != nil {
		return err
	}

	result, err := h.roleSync.SyncRole(ctx, &usecase.SyncRoleInput{
		UserID:    event.UserID,
		Direction: direction,
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrIdentityUserNotFound) {
			return errors.Wrap(err, "user no longer exists")
		}

		return newRetryableError(errors.WithStack(err))
	}

	deliverycontext.GetLoggerOrDefault(ctx, h.logger).Info("[Worker] Role reconciled",
		slog.String("user_id", result.UserID),
		slog.String("role", result.Role.String()),
		slog.String("direction", string(direction)),
	)

	return nil
}

// reconcileDirection maps the failed store list to the direction that rewrites exactly those stores.
func reconcileDirection(failedStores string) (entity.SyncDirection, error) {
	var identity, session bool
	for _, store := range strings.Split(failedStores, ",") {
		switch entity.Store(strings.TrimSpace(store)) {
		case entity.StoreIdentityProvider:
			identity = true
		case entity.StoreSessionStore:
			session = true
		}
	}

	switch {
	case identity && session:
		return entity.SyncBoth, nil
	case identity:
		return entity.SyncToIdentityProvider, nil
	case session:
		return entity.SyncToSessionStore, nil
	default:
		return "", errors.Errorf("no known store in %q", failedStores)
	}
}

// verifyPubSubToken verifies the JWT token from Google Pub/Sub push requests
// Reference: https://cloud.google.com/pubsub/docs/push#authenticating_standard_push_requests
func (h *PushHandler) verifyPubSubToken(req *http.Request) error {
	authHeader := req.Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return errors.New("missing authorization header")
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return errors.New("invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, bearerPrefix)

	// The audience is the URL of this endpoint
	scheme := "https"
	if req.TLS == nil {
		scheme = "http"
	}
	audience := fmt.Sprintf("%s://%s%s", scheme, req.Host, req.URL.Path)

	payload, err := h.validate(req.Context(), token, audience)
	if err != nil {
		return errors.Wrap(err, "failed to validate token")
	}

	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return errors.Errorf("invalid issuer: %s", payload.Issuer)
	}

	if emailVerified, ok := payload.Claims["email_verified"].(bool); ok && !emailVerified {
		return errors.New("email not verified")
	}

	return nil
}
