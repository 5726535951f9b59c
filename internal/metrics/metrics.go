package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vidhub/backend/internal/models"
	"github.com/vidhub/backend/internal/relations"
)

// Recorder counts auth and relationship events on its own registry.
type Recorder struct {
	registry *prometheus.Registry
	auth     *prometheus.CounterVec
	toggles  *prometheus.CounterVec
}

// NewRecorder registers the service collectors plus the Go runtime and process collectors.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		auth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vidhub",
			Name:      "auth_events_total",
			Help:      "Auth manager operations by outcome.",
		}, []string{"operation", "outcome"}),
		toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vidhub",
			Name:      "relation_toggles_total",
			Help:      "Relationship edge toggles by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}

	registry.MustRegister(
		r.auth,
		r.toggles,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveAuth implements auth.Observer.
func (r *Recorder) ObserveAuth(operation, outcome string) {
	r.auth.WithLabelValues(operation, outcome).Inc()
}

// ObserveToggle implements relations.Observer.
func (r *Recorder) ObserveToggle(kind models.EdgeKind, outcome relations.Outcome) {
	r.toggles.WithLabelValues(string(kind), string(outcome)).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
