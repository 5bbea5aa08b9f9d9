package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sonify"

// Metrics holds the Prometheus counters, histograms, and gauges for the sonification engine.
type Metrics struct {
	// Sample bank metrics.
	SampleDownloadProgress prometheus.Gauge
	SamplesLoaded          *prometheus.CounterVec // labels: voice, outcome={success,error}
	SampleFetchDuration    prometheus.Histogram
	SampleCache            *prometheus.CounterVec // labels: result={hit,miss}
	NotesTriggered         *prometheus.CounterVec // labels: voice
	SinkErrors             *prometheus.CounterVec // labels: voice

	// Part lifecycle metrics.
	PartRebuilds *prometheus.CounterVec // labels: voice
	PartsActive  prometheus.Gauge

	// Transport metrics.
	TransportBPM     prometheus.Gauge
	TransportPlaying prometheus.Gauge

	// Dataset metrics.
	DatasetStations     prometheus.Gauge
	DatasetLoadDuration prometheus.Histogram
}

// NewMetrics creates and registers all engine metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.SampleDownloadProgress,
		m.SamplesLoaded,
		m.SampleFetchDuration,
		m.SampleCache,
		m.NotesTriggered,
		m.SinkErrors,
		m.PartRebuilds,
		m.PartsActive,
		m.TransportBPM,
		m.TransportPlaying,
		m.DatasetStations,
		m.DatasetLoadDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests
// can build as many engines as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SampleDownloadProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sample_download_progress",
			Help:      "Fraction of sample files whose download finished, in [0,1].",
		}),
		SamplesLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_loaded_total",
			Help:      "Sample files processed by voice and outcome.",
		}, []string{"voice", "outcome"}),
		SampleFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sample_fetch_duration_seconds",
			Help:      "Duration of a single sample download and decode.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		SampleCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sample_cache_total",
			Help:      "Decoded sample cache lookups by result.",
		}, []string{"result"}),
		NotesTriggered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notes_triggered_total",
			Help:      "Notes forwarded to the audio sink by voice.",
		}, []string{"voice"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Audio sink trigger failures by voice.",
		}, []string{"voice"}),
		PartRebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "part_rebuilds_total",
			Help:      "Parts built for the current station by voice.",
		}, []string{"voice"}),
		PartsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "parts_active",
			Help:      "Parts currently registered on the transport.",
		}),
		TransportBPM: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transport_bpm",
			Help:      "Current transport tempo.",
		}),
		TransportPlaying: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transport_playing",
			Help:      "1 when the transport is started, 0 otherwise.",
		}),
		DatasetStations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_stations",
			Help:      "Stations in the loaded dataset.",
		}),
		DatasetLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_load_duration_seconds",
			Help:      "Duration of a dataset fetch and normalization.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}
