package impl

import (
	"context"
	"log/slog"
	"maps"
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

	"go.uber.org/fx"
)

// Role sync outcomes reported to metrics.
const (
	syncOutcomeSuccess = "success"
	syncOutcomePartial = "partial"
	syncOutcomeFailed  = "failed"
)

// roleSyncService implements the RoleSyncUsecase interface.
type roleSyncService struct {
	roleRepo        repository.RoleRepository
	identityAdmin   service.IdentityAdmin
	publisher       service.EventPublisher
	metrics         service.MetricsRecorder
	providerTimeout time.Duration
	logger          *slog.Logger
}

// RoleSyncServiceParams holds dependencies for RoleSyncService, injected by Fx.
type RoleSyncServiceParams struct {
	fx.In

	RoleRepo      repository.RoleRepository
	IdentityAdmin service.IdentityAdmin
	Publisher     service.EventPublisher
	Metrics       service.MetricsRecorder
	Config        *config.Config
	Logger        *slog.Logger
}

// NewRoleSyncService is the constructor for roleSyncService.
func NewRoleSyncService(params RoleSyncServiceParams) usecase.RoleSyncUsecase {
	return &roleSyncService{
		roleRepo:        params.RoleRepo,
		identityAdmin:   params.IdentityAdmin,
		publisher:       params.Publisher,
		metrics:         params.Metrics,
		providerTimeout: params.Config.ProviderTimeout(),
		logger:          params.Logger,
	}
}

func (srv *roleSyncService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// SyncRole writes the role to every store the direction targets, identity provider first.
// Stores already written are not rolled back when a later one fails.
func (srv *roleSyncService) SyncRole(ctx context.Context, input *usecase.SyncRoleInput) (*entity.RoleSyncResult, error) {
	targets := input.Direction.Targets()
	if len(targets) == 0 {
		return nil, domainerrors.ErrInvalidSyncDirection.WithDetails(string(input.Direction))
	}
	if input.Role != nil && !input.Role.IsValid() {
		return nil, domainerrors.ErrInvalidRole.WithDetails(input.Role.String())
	}

	ctx, cancel := context.WithTimeout(ctx, srv.providerTimeout)
	defer cancel()

	identityUser, err := srv.loadIdentityUser(ctx, input.UserID, input.Direction)
	if err != nil {
		return nil, err
	}

	role, err := srv.targetRole(ctx, input, identityUser)
	if err != nil {
		return nil, err
	}

	var succeeded []entity.Store
	for i, store := range targets {
		if err := srv.writeStore(ctx, store, input.UserID, role, identityUser); err != nil {
			syncErr := &domainerrors.RoleSyncError{
				UserID:    input.UserID,
				Role:      role,
				Partial:   len(succeeded) > 0,
				Succeeded: succeeded,
				Failed:    []entity.Store{store},
				Skipped:   targets[i+1:],
				Err:       err,
			}
			srv.recordSync(input.Direction, syncErr)
			srv.log(ctx).Error("Role sync failed", slog.String("userID", input.UserID), slog.String("store", string(store)), slog.Any("error", err))
			if syncErr.Partial {
				srv.publishRoleSyncFailed(ctx, syncErr)
			}

			return nil, syncErr
		}
		succeeded = append(succeeded, store)
	}

	srv.recordSync(input.Direction, nil)
	srv.publishRoleSynced(ctx, input.UserID, role, input.Direction)
	srv.log(ctx).Info("Role synchronized", slog.String("userID", input.UserID), slog.String("role", role.String()), slog.String("direction", string(input.Direction)))

	return &entity.RoleSyncResult{
		UserID:    input.UserID,
		Role:      role,
		Direction: input.Direction,
		Updated:   succeeded,
	}, nil
}

// loadIdentityUser returns nil when the subject is unknown to the identity provider
// and the direction does not write there.
func (srv *roleSyncService) loadIdentityUser(ctx context.Context, userID string, direction entity.SyncDirection) (*entity.IdentityUser, error) {
	identityUser, err := srv.identityAdmin.GetUser(ctx, userID)
	if err == nil {
		return identityUser, nil
	}

	if errors.Is(err, domainerrors.ErrIdentityUserNotFound) && !direction.Includes(entity.StoreIdentityProvider) {
		srv.log(ctx).Debug("Subject unknown to identity provider", slog.String("userID", userID))

		return nil, nil
	}

	return nil, errors.Wrap(err, "failed to read identity provider user")
}

// targetRole is the explicit role or, when absent, the role resolved from the source store.
// Pushing to the identity provider alone treats the session store as the source.
func (srv *roleSyncService) targetRole(ctx context.Context, input *usecase.SyncRoleInput, identityUser *entity.IdentityUser) (entity.Role, error) {
	if input.Role != nil {
		return *input.Role, nil
	}

	stored, err := findStoredRole(ctx, srv.roleRepo, input.UserID)
	if err != nil {
		return "", err
	}

	if input.Direction == entity.SyncToIdentityProvider && stored != nil {
		return *stored, nil
	}

	var claims map[string]any
	if identityUser != nil {
		claims = identityUser.CustomClaims
	}

	return entity.ResolveRole(claims, stored), nil
}

func (srv *roleSyncService) writeStore(ctx context.Context, store entity.Store, userID string, role entity.Role, identityUser *entity.IdentityUser) error {
	switch store {
	case entity.StoreIdentityProvider:
		claims := mergeRoleClaims(identityUser.CustomClaims, role)

		return errors.Wrap(srv.identityAdmin.SetCustomClaims(ctx, userID, claims), "failed to set identity provider claims")
	case entity.StoreSessionStore:
		return errors.Wrap(srv.roleRepo.Upsert(ctx, userID, role), "failed to upsert stored role")
	default:
		return errors.Errorf("unknown store %q", store)
	}
}

// mergeRoleClaims sets the role claim on a copy of existing, keeping unrelated keys.
// A roles array that resolves to a different role is dropped.
func mergeRoleClaims(existing map[string]any, role entity.Role) map[string]any {
	claims := make(map[string]any, len(existing)+1)
	maps.Copy(claims, existing)
	claims[entity.ClaimRole] = role.String()

	if _, ok := claims[entity.ClaimRoles]; ok {
		if entity.ResolveRole(map[string]any{entity.ClaimRoles: claims[entity.ClaimRoles]}, nil) != role {
			delete(claims, entity.ClaimRoles)
		}
	}

	return claims
}

func (srv *roleSyncService) recordSync(direction entity.SyncDirection, syncErr *domainerrors.RoleSyncError) {
	outcome := syncOutcomeSuccess
	if syncErr != nil {
		outcome = syncOutcomeFailed
		if syncErr.Partial {
			outcome = syncOutcomePartial
		}
	}

	srv.metrics.RecordRoleSync(string(direction), outcome)
}

func (srv *roleSyncService) publishRoleSynced(ctx context.Context, userID string, role entity.Role, direction entity.SyncDirection) {
	event := &service.AuthEvent{
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		Type:       service.EventRoleSynced,
		UserID:     userID,
		Role:       role.String(),
		Attributes: map[string]string{"direction": string(direction)},
		OccurredAt: time.Now().UTC(),
	}

	if err := srv.publisher.PublishAuthEvent(ctx, event); err != nil {
		srv.log(ctx).Warn("Failed to publish role synced event", slog.String("userID", userID), slog.Any("error", err))
	}
}

// publishRoleSyncFailed asks the worker to retry the stores that were not written.
func (srv *roleSyncService) publishRoleSyncFailed(ctx context.Context, syncErr *domainerrors.RoleSyncError) {
	failed := make([]string, 0, len(syncErr.Failed)+len(syncErr.Skipped))
	for _, store := range append(append([]entity.Store{}, syncErr.Failed...), syncErr.Skipped...) {
		failed = append(failed, string(store))
	}

	event := &service.AuthEvent{
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		Type:       service.EventRoleSyncFailed,
		UserID:     syncErr.UserID,
		Role:       syncErr.Role.String(),
		Attributes: map[string]string{service.AttributeFailedStores: strings.Join(failed, ",")},
		OccurredAt: time.Now().UTC(),
	}

	// Detached, the sync deadline may already have passed.
	if err := srv.publisher.PublishAuthEvent(context.WithoutCancel(ctx), event); err != nil {
		srv.log(ctx).Warn("Failed to publish role sync failure", slog.String("userID", syncErr.UserID), slog.Any("error", err))
	}
}

// GetRole reads the stored role, defaulting to viewer.
func (srv *roleSyncService) GetRole(ctx context.Context, userID string) (entity.Role, error) {
	stored, err := findStoredRole(ctx, srv.roleRepo, userID)
	if err != nil {
		return "", err
	}

	return entity.ResolveRole(nil, stored), nil
}
