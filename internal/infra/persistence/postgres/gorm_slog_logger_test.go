package postgres

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"sopmaker/config"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestRedactSQL(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "refresh token lookup",
			sql:  `SELECT * FROM "refresh_tokens" WHERE token_hash = 'abc123' AND user_id = 'uid-1'`,
			want: `SELECT * FROM "refresh_tokens" WHERE token_hash = '[redacted]' AND user_id = '[redacted]'`,
		},
		{
			name: "credential insert with escaped quote",
			sql:  `INSERT INTO "user_authentications" ("password_hash") VALUES ('$2a$10$it''s')`,
			want: `INSERT INTO "user_authentications" ("password_hash") VALUES ('[redacted]')`,
		},
		{
			name: "sop query untouched",
			sql:  `SELECT * FROM "sops" WHERE owner_id = 'uid-1'`,
			want: `SELECT * FROM "sops" WHERE owner_id = 'uid-1'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, redactSQL(tt.sql))
		})
	}
}

func TestGormSlogLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	l := newGormSlogLogger(base, &config.Config{})

	sqlFn := func() (string, int64) {
		return `DELETE FROM "refresh_tokens" WHERE token_hash = 'secret'`, 1
	}

	l.Trace(context.Background(), time.Now(), sqlFn, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	l.Trace(context.Background(), time.Now(), sqlFn, errors.New("conn reset"))
	assert.Contains(t, buf.String(), "GORM query failed")
	assert.NotContains(t, buf.String(), "secret")

	buf.Reset()
	l.LogMode(logger.Silent).Trace(context.Background(), time.Now(), sqlFn, errors.New("conn reset"))
	assert.Empty(t, buf.String())
}
