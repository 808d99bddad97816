// Package metrics exports engine activity as Prometheus metrics.
//
// Collector is an engine.Observer; attach it with engine.WithObserver or
// session.WithObserver and serve Handler on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/nback/internal/engine"
	"github.com/roach88/nback/internal/ir"
)

// Namespace for all metrics.
const metricsNamespace = "nback"

// Collector holds the Prometheus metrics for one or more engines.
//
// Thread-safety: all operations are thread-safe via Prometheus's internal
// locking.
type Collector struct {
	// TicksTotal counts generated stimuli.
	TicksTotal prometheus.Counter

	// ClaimsTotal counts claims by outcome.
	// Labels: channel (sound, position), result (hit, strike, already_claimed)
	ClaimsTotal *prometheus.CounterVec

	// OpportunitiesTotal counts ticks that were opportunities under the
	// collector's policy.
	// Labels: channel (sound, position)
	OpportunitiesTotal *prometheus.CounterVec

	// CurrentTick is the index of the latest tick.
	CurrentTick prometheus.Gauge

	policy engine.OpportunityPolicy
}

// NewCollector creates the metrics and registers them with reg.
// policy must match the observed engines' policy.
func NewCollector(reg prometheus.Registerer, policy engine.OpportunityPolicy) *Collector {
	f := promauto.With(reg)
	return &Collector{
		TicksTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ticks_total",
			Help:      "Number of stimuli generated.",
		}),
		ClaimsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "claims_total",
			Help:      "Number of match claims by channel and result.",
		}, []string{"channel", "result"}),
		OpportunitiesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "opportunities_total",
			Help:      "Number of match opportunities by channel.",
		}, []string{"channel"}),
		CurrentTick: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "current_tick",
			Help:      "Index of the latest tick.",
		}),
		policy: policy,
	}
}

// ObserveTick implements engine.Observer.
func (c *Collector) ObserveTick(t ir.Tick) {
	c.TicksTotal.Inc()
	c.CurrentTick.Set(float64(t.Index))

	for _, ch := range engine.Channels {
		match := t.SoundMatch
		if ch == engine.Position {
			match = t.PositionMatch
		}
		if (c.policy == engine.OpportunityOnComparable && t.Comparable) ||
			(c.policy == engine.OpportunityOnMatch && match) {
			c.OpportunitiesTotal.WithLabelValues(ch.String()).Inc()
		}
	}
}

// ObserveClaim implements engine.Observer.
func (c *Collector) ObserveClaim(cl ir.Claim) {
	c.ClaimsTotal.WithLabelValues(cl.Channel, cl.Result).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
