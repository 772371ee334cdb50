// Package metrics collects and exposes Prometheus metrics for the
// reservation service.
package metrics

import (
    "net/http"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector gathers booking counters and latencies. It satisfies the
// booking service's Metrics interface.
type Collector struct {
    created       prometheus.Counter
    conflicts     prometheus.Counter
    statusChanges *prometheus.CounterVec
    createLatency prometheus.Histogram
}

// NewCollector builds a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
    c := &Collector{
        created: prometheus.NewCounter(prometheus.CounterOpts{
            Name: "reservation_bookings_created_total",
            Help: "Reservations committed by the booking workflow.",
        }),
        conflicts: prometheus.NewCounter(prometheus.CounterOpts{
            Name: "reservation_booking_conflicts_total",
            Help: "Booking attempts rejected because the slot was taken.",
        }),
        statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
            Name: "reservation_status_changes_total",
            Help: "Status transitions applied, by target status.",
        }, []string{"status"}),
        createLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
            Name:    "reservation_create_latency_seconds",
            Help:    "Wall time of the booking workflow in seconds.",
            Buckets: prometheus.DefBuckets,
        }),
    }

    reg.MustRegister(
        c.created,
        c.conflicts,
        c.statusChanges,
        c.createLatency,
    )

    return c
}

// RecordCreated counts a successfully committed reservation.
func (c *Collector) RecordCreated() {
    c.created.Inc()
}

// RecordConflict counts a booking rejected due to an overlapping slot.
func (c *Collector) RecordConflict() {
    c.conflicts.Inc()
}

// RecordStatusChange counts a lifecycle transition into status.
func (c *Collector) RecordStatusChange(status string) {
    c.statusChanges.WithLabelValues(status).Inc()
}

// ObserveCreateLatency records how long one booking attempt took.
func (c *Collector) ObserveCreateLatency(d time.Duration) {
    c.createLatency.Observe(d.Seconds())
}

// Handler returns the HTTP handler Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
    return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
