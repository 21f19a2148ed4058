package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trainerbook_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trainerbook_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// BookingsTotal counts create/cancel/reschedule outcomes. result is "ok" or an error category.
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trainerbook_bookings_total",
			Help: "Booking operations by outcome",
		},
		[]string{"operation", "result"},
	)

	SideEffectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trainerbook_side_effects_total",
			Help: "After-commit tasks by outcome",
		},
		[]string{"task", "status"},
	)

	AvailabilityRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trainerbook_availability_requests_total",
			Help: "Availability lookups, split by whether the calendar busy-list was used",
		},
		[]string{"calendar"},
	)

	TxRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trainerbook_tx_retries_total",
			Help: "Transactions retried after a serialization failure or deadlock",
		},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trainerbook_emails_sent_total",
			Help: "Total number of emails delivered or dead-lettered",
		},
		[]string{"status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trainerbook_email_queue_length",
			Help: "Current length of email queue",
		},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trainerbook_events_published_total",
			Help: "Domain events published to the broker",
		},
		[]string{"type", "status"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBooking(operation, result string) {
	BookingsTotal.WithLabelValues(operation, result).Inc()
}

func RecordSideEffect(task, status string) {
	SideEffectsTotal.WithLabelValues(task, status).Inc()
}

func RecordAvailability(calendarUsed bool) {
	label := "skipped"
	if calendarUsed {
		label = "used"
	}
	AvailabilityRequestsTotal.WithLabelValues(label).Inc()
}

func RecordTxRetry() {
	TxRetriesTotal.Inc()
}

func RecordEmail(status string) {
	EmailsSentTotal.WithLabelValues(status).Inc()
}

func RecordEvent(eventType, status string) {
	EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}
