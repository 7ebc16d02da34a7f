package actor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Labelled metrics carry "subsystem" and "actor" labels.

var latencyBuckets = []float64{ //nolint:gochecknoglobals
	0.0001, // 100µs
	0.001,  // 1ms
	0.01,   // 10ms
	0.1,    // 100ms
	1,      // 1s
	10,     // 10s
}

var (
	actorStarted = promauto.NewCounter(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "actor_started_total",
		Help: "The total number of actors started",
	})

	actorStopped = promauto.NewCounter(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "actor_stopped_total",
		Help: "The total number of actors stopped",
	})

	actorPanics = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "actor_panics_total",
		Help: "The total number of panics recovered inside actors",
	}, []string{"subsystem", "actor"})

	aliveActors = promauto.NewGaugeVec(prometheus.GaugeOpts{ //nolint:gochecknoglobals
		Name: "actor_alive",
		Help: "The number of actors currently running",
	}, []string{"subsystem", "actor"})

	// enqueuedMessages is sampled periodically, not on every submit.
	enqueuedMessages = promauto.NewGaugeVec(prometheus.GaugeOpts{ //nolint:gochecknoglobals
		Name: "actor_enqueued_messages",
		Help: "The number of messages waiting in actor mailboxes",
	}, []string{"subsystem", "actor"})

	submitCount = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "actor_submitted_messages_total",
		Help: "The total number of messages submitted",
	}, []string{"subsystem", "actor"})

	rejectedSubmits = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "actor_rejected_submits_total",
		Help: "The total number of messages refused because the actor had stopped",
	}, []string{"subsystem", "actor"})

	submitTime = promauto.NewHistogramVec(prometheus.HistogramOpts{ //nolint:gochecknoglobals
		Name:    "actor_submit_seconds",
		Help:    "The time spent waiting for room in the mailbox",
		Buckets: latencyBuckets,
	}, []string{"subsystem", "actor"})

	receiveTime = promauto.NewHistogramVec(prometheus.HistogramOpts{ //nolint:gochecknoglobals
		Name:    "actor_receive_seconds",
		Help:    "The time requesters spent waiting for a reply",
		Buckets: latencyBuckets,
	}, []string{"subsystem", "actor"})

	processedMessages = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "actor_processed_messages_total",
		Help: "The total number of messages processed",
	}, []string{"subsystem", "actor"})

	processingTime = promauto.NewHistogramVec(prometheus.HistogramOpts{ //nolint:gochecknoglobals
		Name:    "actor_processing_seconds",
		Help:    "The time spent processing a message",
		Buckets: latencyBuckets,
	}, []string{"subsystem", "actor"})
)
