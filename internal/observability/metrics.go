package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	flushesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sitetime",
		Subsystem: "tracker",
		Name:      "flushes_total",
		Help:      "Completed intervals committed to the activity summary.",
	})
	flushedMillis = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sitetime",
		Subsystem: "tracker",
		Name:      "flushed_milliseconds_total",
		Help:      "Wall-clock milliseconds attributed to addresses.",
	})
	resolveFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sitetime",
		Subsystem: "tracker",
		Name:      "resolve_failures_total",
		Help:      "Activation or focus events whose address could not be resolved.",
	})
	trackingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sitetime",
		Subsystem: "tracker",
		Name:      "tracking",
		Help:      "1 while an address is being tracked, 0 while idle.",
	})
	saveFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sitetime",
		Subsystem: "storage",
		Name:      "save_failures_total",
		Help:      "Failed attempts to persist the activity summary.",
	})
)

func init() {
	prometheus.MustRegister(flushesTotal, flushedMillis, resolveFailures, trackingGauge, saveFailures)
}

// RecordFlush counts one committed interval of elapsedMs.
func RecordFlush(elapsedMs int64) {
	flushesTotal.Inc()
	if elapsedMs > 0 {
		flushedMillis.Add(float64(elapsedMs))
	}
}

// RecordResolveFailure counts an event that could not be attributed to an address.
func RecordResolveFailure() {
	resolveFailures.Inc()
}

// SetTracking flips the tracking gauge.
func SetTracking(tracking bool) {
	if tracking {
		trackingGauge.Set(1)
		return
	}
	trackingGauge.Set(0)
}

// RecordSaveFailure counts a failed Store.Save.
func RecordSaveFailure() {
	saveFailures.Inc()
}
