// Package metrics exposes the service's prometheus instruments.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ActiveRooms      prometheus.Gauge
	BoundConnections prometheus.Gauge
	IntentsReceived  *prometheus.CounterVec
	RoundsPlayed     prometheus.Counter
	RoundDuration    prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveRooms: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "partyseq",
			Name:      "active_rooms",
			Help:      "Number of live rooms in the registry.",
		}),
		BoundConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "partyseq",
			Name:      "bound_connections",
			Help:      "Websocket connections bound to a room player.",
		}),
		IntentsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "partyseq",
			Name:      "intents_received_total",
			Help:      "Client intents received, by type.",
		}, []string{"type"}),
		RoundsPlayed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "partyseq",
			Name:      "rounds_played_total",
			Help:      "Rounds resolved across all rooms.",
		}),
		RoundDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "partyseq",
			Name:      "round_duration_seconds",
			Help:      "Wall time from round start to arbitration.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
}

func (m *Metrics) ObserveRound(started time.Time) {
	m.RoundsPlayed.Inc()
	m.RoundDuration.Observe(time.Since(started).Seconds())
}
