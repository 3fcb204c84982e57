package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPlayerMetrics() {
	r.PlayersConnected = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "teevote_players_connected",
			Help: "Number of clients currently holding a slot",
		},
	)

	r.ConnectsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "teevote_connects_total",
			Help: "Connection attempts by result",
		},
		[]string{"result"},
	)
}

func (r *Registry) initVoteMetrics() {
	r.VotesCalledTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "teevote_votes_called_total",
			Help: "Votes started, by kind",
		},
		[]string{"kind"},
	)

	r.VotesRejectedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "teevote_votes_rejected_total",
			Help: "Call-vote requests refused, by reason",
		},
		[]string{"reason"},
	)

	r.VotesResolvedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "teevote_votes_resolved_total",
			Help: "Votes ended, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	r.VoteBallotsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "teevote_vote_ballots_total",
			Help: "Ballots accepted, by choice",
		},
		[]string{"choice"},
	)

	r.VoteActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "teevote_vote_active",
			Help: "1 while a vote is running",
		},
	)
}

func (r *Registry) initTuningMetrics() {
	r.TuningResetsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "teevote_tuning_resets_total",
			Help: "Tuning resets, by cause",
		},
		[]string{"cause"},
	)

	r.TuningBroadcastsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "teevote_tuning_broadcasts_total",
			Help: "Tune params messages sent to all clients",
		},
	)
}

func (r *Registry) initTransportMetrics() {
	r.MessagesReceivedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "teevote_messages_received_total",
			Help: "Game messages decoded, by type",
		},
		[]string{"type"},
	)

	r.MessagesSentTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "teevote_messages_sent_total",
			Help: "Game messages sent, by type",
		},
		[]string{"type"},
	)

	r.TickDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "teevote_tick_duration_seconds",
			Help:    "Time spent in one simulation tick",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.02, 0.05},
		},
	)
}
