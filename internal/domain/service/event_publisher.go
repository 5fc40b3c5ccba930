package service

import (
	"context"
	"time"
)

// Auth event types.
const (
	EventUserCreated    = "user.created"
	EventRoleSynced     = "role.synced"
	EventRoleSyncFailed = "role.sync_failed"
	// EventSessionCleanup is published on a schedule to purge expired sessions.
	EventSessionCleanup = "session.cleanup"
)

// AttributeFailedStores lists, comma separated, the stores a role.sync_failed event still has to write.
const AttributeFailedStores = "failed_stores"

// AuthEvent is published when an account or its role changes.
type AuthEvent struct {
	RequestID  string            `json:"request_id,omitempty"` // For distributed tracing
	Type       string            `json:"type"`
	UserID     string            `json:"user_id"`
	Email      string            `json:"email,omitempty"`
	Role       string            `json:"role,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishAuthEvent publishes an auth event for downstream consumers
	PublishAuthEvent(ctx context.Context, event *AuthEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
