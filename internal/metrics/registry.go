package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/siohaza/teevote/internal/callbacks"
)

// Registry holds every metric the server exports. It is registered as a
// match callback.
type Registry struct {
	callbacks.DefaultCallbacks

	// Players
	PlayersConnected prometheus.Gauge
	ConnectsTotal    *prometheus.CounterVec

	// Votes
	VotesCalledTotal   *prometheus.CounterVec
	VotesRejectedTotal *prometheus.CounterVec
	VotesResolvedTotal *prometheus.CounterVec
	VoteBallotsTotal   *prometheus.CounterVec
	VoteActive         prometheus.Gauge

	// Tuning
	TuningResetsTotal     *prometheus.CounterVec
	TuningBroadcastsTotal prometheus.Counter

	// Transport
	MessagesReceivedTotal *prometheus.CounterVec
	MessagesSentTotal     *prometheus.CounterVec
	TickDuration          prometheus.Histogram

	registry *prometheus.Registry
}

func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initPlayerMetrics()
	r.initVoteMetrics()
	r.initTuningMetrics()
	r.initTransportMetrics()

	return r
}

func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
