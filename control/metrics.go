// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collectors for descriptor lifecycle and I/O.
// Everything is labelled by descriptor type; no per-fd labels.

package control

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/momentics/linuxfd/api"
)

var (
	metricDescriptorsOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "linuxfd",
		Subsystem: "descriptor",
		Name:      "open",
		Help:      "Number of descriptors currently held, per type",
	}, []string{"type"})
	metricDescriptorsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linuxfd",
		Subsystem: "descriptor",
		Name:      "created_total",
		Help:      "Total number of descriptors created, per type",
	}, []string{"type"})
	metricDescriptorsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linuxfd",
		Subsystem: "descriptor",
		Name:      "closed_total",
		Help:      "Total number of descriptors released, per type",
	}, []string{"type"})
	metricErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linuxfd",
		Subsystem: "descriptor",
		Name:      "errors_total",
		Help:      "Total number of failed operations, per type, operation and error code",
	}, []string{"type", "op", "code"})
	metricReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linuxfd",
		Subsystem: "descriptor",
		Name:      "reads_total",
		Help:      "Total number of successful reads, per type",
	}, []string{"type"})

	metricInotifyWatches = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "linuxfd",
		Subsystem: "inotify",
		Name:      "watches",
		Help:      "Number of registered inotify watches across all watch sets",
	})
	metricInotifyEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "linuxfd",
		Subsystem: "inotify",
		Name:      "events_total",
		Help:      "Total number of decoded inotify events",
	})
	metricInotifyPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "linuxfd",
		Subsystem: "inotify",
		Name:      "watches_purged_total",
		Help:      "Total number of watches dropped after the kernel invalidated them",
	})
	metricTimerExpirations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "linuxfd",
		Subsystem: "timerfd",
		Name:      "expirations_total",
		Help:      "Total number of timer expirations observed through reads",
	})
)

// Opened records a freshly created descriptor.
func Opened(t api.Type, fd int) {
	metricDescriptorsCreated.WithLabelValues(t.String()).Inc()
	metricDescriptorsOpen.WithLabelValues(t.String()).Inc()
	inventory.add(t, fd)
}

// Released records a descriptor that has been closed.
func Released(t api.Type, fd int) {
	metricDescriptorsClosed.WithLabelValues(t.String()).Inc()
	metricDescriptorsOpen.WithLabelValues(t.String()).Dec()
	inventory.remove(fd)
}

// ObserveError counts a failed operation and returns err unchanged so it
// can wrap return statements.
func ObserveError(t api.Type, op string, err error) error {
	if err != nil {
		metricErrors.WithLabelValues(t.String(), op, api.CodeOf(err).String()).Inc()
	}
	return err
}

// ObserveRead counts a successful read.
func ObserveRead(t api.Type) {
	metricReads.WithLabelValues(t.String()).Inc()
}

// ObserveExpirations adds a timerfd expiration count.
func ObserveExpirations(n uint64) {
	metricTimerExpirations.Add(float64(n))
}

// ObserveWatches adjusts the registered watch gauge by delta.
func ObserveWatches(delta int) {
	metricInotifyWatches.Add(float64(delta))
}

// ObserveEvents counts decoded inotify events.
func ObserveEvents(n int) {
	metricInotifyEvents.Add(float64(n))
}

// ObservePurge counts a watch dropped on IN_IGNORED.
func ObservePurge() {
	metricInotifyPurged.Inc()
}
