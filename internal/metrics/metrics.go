// Package metrics collects Prometheus metrics for a pipeline run.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors of one pipeline run. Each run owns its registry.
type Metrics struct {
	Registry *prometheus.Registry

	RecordsExtracted *prometheus.CounterVec
	RecordsSkipped   *prometheus.CounterVec
	RowsLoaded       *prometheus.CounterVec
	RowsFailed       *prometheus.CounterVec
	PhaseDuration    *prometheus.HistogramVec
}

// New creates and registers the run collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RecordsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sparkify_etl_records_extracted_total",
			Help: "Cumulative number of records extracted from input files.",
		}, []string{"source"}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sparkify_etl_records_skipped_total",
			Help: "Cumulative number of input files or lines skipped as invalid.",
		}, []string{"source"}),
		RowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sparkify_etl_rows_loaded_total",
			Help: "Cumulative number of rows written to the warehouse.",
		}, []string{"table"}),
		RowsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sparkify_etl_rows_failed_total",
			Help: "Cumulative number of rows whose write failed and was skipped.",
		}, []string{"table"}),
		PhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sparkify_etl_phase_duration_seconds",
			Help:    "Duration of pipeline phases.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"phase"}),
	}
	m.Registry.MustRegister(
		m.RecordsExtracted,
		m.RecordsSkipped,
		m.RowsLoaded,
		m.RowsFailed,
		m.PhaseDuration,
	)
	return m
}

// WriteFile writes the registry in text exposition format to path, for
// collection by a node-exporter textfile collector.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	return nil
}
