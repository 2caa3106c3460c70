package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "article_sync"

// Metrics holds the per-run gauges. A run is a short-lived batch job, so the
// registry is dumped to a node-exporter textfile instead of being scraped.
type Metrics struct {
	registry *prometheus.Registry

	fetchedBytes     prometheus.Gauge
	rowsParsed       prometheus.Gauge
	recordsRetained  prometheus.Gauge
	recordsPublished prometheus.Gauge
	runDuration      prometheus.Gauge
	lastRunTimestamp prometheus.Gauge
	lastSuccess      prometheus.Gauge
	runOutcome       *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "fetched_bytes",
			Help:      "Size of the decoded source body of the last run.",
		}),
		rowsParsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "rows_parsed",
			Help:      "Data rows read from the source sheet.",
		}),
		recordsRetained: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "records_retained",
			Help:      "Rows kept after discarding untitled rows.",
		}),
		recordsPublished: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "records_published",
			Help:      "Records with the published status.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_success",
			Help:      "1 if the last run exited successfully.",
		}),
		runOutcome: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "run_outcome",
			Help:      "Outcome of the last run, one series per outcome set to 1.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.fetchedBytes,
		m.rowsParsed,
		m.recordsRetained,
		m.recordsPublished,
		m.runDuration,
		m.lastRunTimestamp,
		m.lastSuccess,
		m.runOutcome,
	)
	return m
}

func (m *Metrics) ObserveFetch(bytes int) {
	m.fetchedBytes.Set(float64(bytes))
}

func (m *Metrics) ObserveParse(rows, retained int) {
	m.rowsParsed.Set(float64(rows))
	m.recordsRetained.Set(float64(retained))
}

func (m *Metrics) ObservePublish(published int) {
	m.recordsPublished.Set(float64(published))
}

// ObserveRun records the final state of the run.
func (m *Metrics) ObserveRun(outcome string, success bool, started, finished time.Time) {
	m.runDuration.Set(finished.Sub(started).Seconds())
	m.lastRunTimestamp.Set(float64(finished.Unix()))
	if success {
		m.lastSuccess.Set(1)
	} else {
		m.lastSuccess.Set(0)
	}
	m.runOutcome.Reset()
	m.runOutcome.WithLabelValues(outcome).Set(1)
}

// WriteTextfile атомарно записывает метрики в формате text exposition.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
