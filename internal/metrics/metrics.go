// Package metrics exposes Prometheus collectors for the booking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "eventbook"

// Registry is the process-wide registry served on /metrics.
var Registry = prometheus.NewRegistry()

// Registrations counts register attempts by outcome:
// success, duplicate, full, not_found, error.
var Registrations = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Event registration attempts by outcome",
	},
	[]string{"outcome"},
)

// Signups counts signup attempts by outcome: success, conflict, invalid, error.
var Signups = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Signup attempts by outcome",
	},
	[]string{"outcome"},
)

// Logins counts login attempts by outcome: success, rejected, error.
var Logins = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Login attempts by outcome",
	},
	[]string{"outcome"},
)

// EventsCreated counts successfully created events.
var EventsCreated = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_created_total",
		Help:      "Events created by managers",
	},
)

// HTTPRequests counts handled requests by method, route template and status.
var HTTPRequests = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status code",
	},
	[]string{"method", "route", "status"},
)

// HTTPDuration observes request latency by route template.
var HTTPDuration = promauto.With(Registry).NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}
