package pubsub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sopmaker/config"
	"sopmaker/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLocalHTTPPublisher_PublishAuthEvent(t *testing.T) {
	var got PushMessage
	var gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequestID = r.Header.Get("X-Request-Id")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	publisher := NewLocalHTTPPublisher(srv.URL, discardLogger())
	event := &service.AuthEvent{
		RequestID:  "req-1",
		Type:       service.EventRoleSynced,
		UserID:     "uid-1",
		Role:       "editor",
		OccurredAt: time.Now().UTC(),
	}

	require.NoError(t, publisher.PublishAuthEvent(context.Background(), event))
	assert.Equal(t, "req-1", gotRequestID)
	assert.Equal(t, "role.synced", got.Message.Attributes["type"])
	assert.NotEmpty(t, got.Message.MessageID)

	raw, err := base64.StdEncoding.DecodeString(got.Message.Data)
	require.NoError(t, err)

	var decoded service.AuthEvent
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "uid-1", decoded.UserID)
	assert.Equal(t, "editor", decoded.Role)
}

func TestLocalHTTPPublisher_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewLocalHTTPPublisher(srv.URL, discardLogger()).
		PublishAuthEvent(context.Background(), &service.AuthEvent{Type: service.EventUserCreated})
	assert.Error(t, err)
}

func TestNewEventPublisher(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.PubSubConfig
		wantErr bool
	}{
		{name: "unset uses noop", cfg: nil},
		{name: "local", cfg: &config.PubSubConfig{Provider: ProviderLocal, LocalEndpoint: "http://localhost:9000"}},
		{name: "local without endpoint", cfg: &config.PubSubConfig{Provider: ProviderLocal}, wantErr: true},
		{name: "google without project", cfg: &config.PubSubConfig{Provider: ProviderGoogle}, wantErr: true},
		{name: "unknown provider", cfg: &config.PubSubConfig{Provider: "kafka"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := fxtest.NewLifecycle(t)
			publisher, err := NewEventPublisher(PublisherParams{
				Lc:     lc,
				Config: &config.Config{PubSub: tt.cfg},
				Logger: discardLogger(),
			})
			if tt.wantErr {
				assert.Error(t, err)

				return
			}
			require.NoError(t, err)
			assert.NotNil(t, publisher)
			if tt.cfg == nil {
				assert.NoError(t, publisher.PublishAuthEvent(context.Background(), &service.AuthEvent{Type: "noop"}))
			}
		})
	}
}

func TestEventAttributes(t *testing.T) {
	attrs := eventAttributes(&service.AuthEvent{
		Type:       service.EventUserCreated,
		UserID:     "uid",
		Attributes: map[string]string{"provider": "firebase"},
	})

	assert.Equal(t, "user.created", attrs["type"])
	assert.Equal(t, "firebase", attrs["provider"])
	_, hasRequestID := attrs["request_id"]
	assert.False(t, hasRequestID)
}
