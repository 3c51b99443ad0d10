// Package metrics holds the prometheus collectors of the relay and serves them over HTTP.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister registers every collector with reg exactly once.
// A nil reg means the prometheus default registerer.
func MustRegister(reg prometheus.Registerer) {
	once.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(collectors...)
	})
}

func init() {
	register(
		updatesReceivedTotal,
		eventsHandledTotal,
		adminNoticesTotal,
		handlerLatencyMs,
		sequencerRejectedTotal,
		directoryPrunedTotal,
	)
}

var (
	updatesReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relaybot_updates_received_total",
			Help: "Telegram updates received by payload kind.",
		},
		[]string{"kind"},
	)

	eventsHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relaybot_events_handled_total",
			Help: "Dispatched events by route and result.",
		},
		[]string{"route", "result"},
	)

	adminNoticesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relaybot_admin_notices_total",
			Help: "Admin notice deliveries by result (delivered/failed/unconfirmed).",
		},
		[]string{"result"},
	)

	handlerLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relaybot_handler_latency_ms",
			Help:    "Event handling latency in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"route"},
	)

	sequencerRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relaybot_sequencer_rejected_total",
			Help: "Events dropped because the sequencer was closed or the submit was cancelled.",
		},
	)

	directoryPrunedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relaybot_directory_pruned_total",
			Help: "Contacts removed by the expiry sweep.",
		},
	)
)

func norm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return s
}

// IncUpdate counts a received update of the given kind (text, command, media...).
func IncUpdate(kind string) {
	updatesReceivedTotal.WithLabelValues(norm(kind)).Inc()
}

// ObserveEvent records the outcome of one dispatched event.
func ObserveEvent(route, result string, notified, notifyFailed, notifyUnknown int, took time.Duration) {
	eventsHandledTotal.WithLabelValues(norm(route), norm(result)).Inc()
	handlerLatencyMs.WithLabelValues(norm(route)).Observe(float64(took.Milliseconds()))
	if notified > 0 {
		adminNoticesTotal.WithLabelValues("delivered").Add(float64(notified))
	}
	if notifyFailed > 0 {
		adminNoticesTotal.WithLabelValues("failed").Add(float64(notifyFailed))
	}
	if notifyUnknown > 0 {
		adminNoticesTotal.WithLabelValues("unconfirmed").Add(float64(notifyUnknown))
	}
}

// IncSequencerRejected counts an event that never reached a handler.
func IncSequencerRejected() {
	sequencerRejectedTotal.Inc()
}

// AddPruned counts contacts removed by the expiry sweep.
func AddPruned(n int) {
	if n > 0 {
		directoryPrunedTotal.Add(float64(n))
	}
}
