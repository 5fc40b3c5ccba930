package metrics

import (
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	c := newCollector(prometheus.NewRegistry())

	c.RecordGuardDecision("admin", "forbidden")
	c.RecordGuardDecision("admin", "forbidden")
	c.RecordTokenExchange("success")
	c.RecordSessionRefresh("rotated")
	c.RecordRoleSync("both", "partial")

	assert.InDelta(t, 2, testutil.ToFloat64(c.guardDecisions.WithLabelValues("admin", "forbidden")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.tokenExchanges.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.sessionRefreshs.WithLabelValues("rotated")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.roleSyncs.WithLabelValues("both", "partial")), 0)
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.RecordTokenExchange("invalid_token")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `sopmaker_token_exchange_total{outcome="invalid_token"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.RecordGuardDecision("public", "allow")
}

func TestCollector_RegisterDBStats(t *testing.T) {
	c := newCollector(prometheus.NewRegistry())
	db, err := sql.Open("pgx", "postgres://sopmaker@localhost:5432/sopmaker")
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	require.NoError(t, c.RegisterDBStats(db, "session_store"))
	assert.Error(t, c.RegisterDBStats(db, "session_store"))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `go_sql_max_open_connections{db_name="session_store"} 0`)
}
