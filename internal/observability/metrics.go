package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	smpCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smpctl",
			Subsystem: "smp",
			Name:      "calls_total",
			Help:      "SMP calls by group, command and outcome.",
		},
		[]string{"group", "command", "outcome"},
	)
	smpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "smpctl",
			Subsystem: "smp",
			Name:      "call_duration_seconds",
			Help:      "SMP call duration from send to classified result.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"group", "command", "outcome"},
	)
	retries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smpctl",
			Subsystem: "retry",
			Name:      "failed_attempts_total",
			Help:      "Unanswered attempts of retried operations.",
		},
		[]string{"operation"},
	)
	reportSections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smpctl",
			Subsystem: "report",
			Name:      "sections_total",
			Help:      "Device report sections by result.",
		},
		[]string{"section", "success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(smpCalls, smpDuration, retries, reportSections)
	})
}

func RecordCall(group, command, outcome string, duration time.Duration) {
	RegisterMetrics()
	smpCalls.WithLabelValues(group, command, outcome).Inc()
	smpDuration.WithLabelValues(group, command, outcome).Observe(duration.Seconds())
}

func RecordRetry(operation string) {
	RegisterMetrics()
	retries.WithLabelValues(operation).Inc()
}

func RecordReportSection(section string, success bool) {
	RegisterMetrics()
	label := "false"
	if success {
		label = "true"
	}
	reportSections.WithLabelValues(section, label).Inc()
}

// WriteTextfile dumps the default registry in the node_exporter textfile
// format. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	RegisterMetrics()
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("observability: write textfile %s: %w", path, err)
	}
	return nil
}
