package fleet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fleetMembers = promauto.NewGaugeVec(prometheus.GaugeOpts{ //nolint:gochecknoglobals
		Name: "fleet_members",
		Help: "Machines currently owned by a fleet, by kind.",
	}, []string{"kind"})

	broadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "fleet_broadcasts_total",
		Help: "Events fanned out to a fleet, by kind and event.",
	}, []string{"kind", "event"})
)
