package machine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "machine_transitions_total",
		Help: "Accepted transitions by machine kind, source state and target state",
	}, []string{"kind", "from", "to"})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "machine_rejections_total",
		Help: "Rejected events by machine kind, current state and event",
	}, []string{"kind", "state", "event"})

	machinesAlive = promauto.NewGaugeVec(prometheus.GaugeOpts{ //nolint:gochecknoglobals
		Name: "machine_alive",
		Help: "Running machine actors by kind",
	}, []string{"kind"})

	responsesDropped = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "machine_responses_dropped_total",
		Help: "Responses discarded because the outbox was full",
	}, []string{"kind"})
)
