// Package metrics collects the auth gateway's Prometheus metrics.
package metrics

import (
	"database/sql"
	"net/http"

	"sopmaker/internal/domain/service"
	"sopmaker/internal/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services and middleware report through.
type Recorder = service.MetricsRecorder

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	registry        *prometheus.Registry
	guardDecisions  *prometheus.CounterVec
	tokenExchanges  *prometheus.CounterVec
	sessionRefreshs *prometheus.CounterVec
	roleSyncs       *prometheus.CounterVec
}

// NewCollector registers the metrics on a fresh registry together with the Go and process collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return newCollector(reg)
}

func newCollector(reg *prometheus.Registry) *Collector {
	c := &Collector{
		registry: reg,
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sopmaker_route_guard_decisions_total",
			Help: "Route guard decisions by route class and outcome",
		}, []string{"class", "decision"}),
		tokenExchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sopmaker_token_exchange_total",
			Help: "Identity token exchanges by outcome",
		}, []string{"outcome"}),
		sessionRefreshs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sopmaker_session_refresh_total",
			Help: "Session refresh attempts by outcome",
		}, []string{"outcome"}),
		roleSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sopmaker_role_sync_total",
			Help: "Role synchronizations by direction and outcome",
		}, []string{"direction", "outcome"}),
	}

	reg.MustRegister(c.guardDecisions, c.tokenExchanges, c.sessionRefreshs, c.roleSyncs)

	return c
}

func (c *Collector) RecordGuardDecision(class, decision string) {
	c.guardDecisions.WithLabelValues(class, decision).Inc()
}

func (c *Collector) RecordTokenExchange(outcome string) {
	c.tokenExchanges.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordSessionRefresh(outcome string) {
	c.sessionRefreshs.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordRoleSync(direction, outcome string) {
	c.roleSyncs.WithLabelValues(direction, outcome).Inc()
}

// RegisterDBStats exports the pool statistics of db under the given name.
func (c *Collector) RegisterDBStats(db *sql.DB, name string) error {
	if err := c.registry.Register(collectors.NewDBStatsCollector(db, name)); err != nil {
		return errors.Wrapf(err, "register %s pool metrics", name)
	}

	return nil
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Nop discards every measurement. Tests use it where metrics are irrelevant.
type Nop struct{}

func (Nop) RecordGuardDecision(string, string) {}
func (Nop) RecordTokenExchange(string)         {}
func (Nop) RecordSessionRefresh(string)        {}
func (Nop) RecordRoleSync(string, string)      {}
