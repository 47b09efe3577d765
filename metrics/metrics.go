// Package metrics exposes Prometheus metrics for the fetch/convert pipeline
// and for the HTTP server in serve mode.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ResourcesDownloaded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paj_resources_downloaded_total",
			Help: "Workbooks downloaded successfully",
		},
	)

	DownloadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paj_download_bytes_total",
			Help: "Bytes downloaded from the provider",
		},
	)

	DownloadFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paj_download_failures_total",
			Help: "Workbook downloads that failed",
		},
	)

	DatasetsConverted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paj_datasets_converted_total",
			Help: "Datasets written to the target directory",
		},
	)

	ConvertDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "paj_convert_duration_seconds",
			Help:    "Duration of one full conversion run",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)
)

func init() {
	prometheus.MustRegister(ResourcesDownloaded)
	prometheus.MustRegister(DownloadBytes)
	prometheus.MustRegister(DownloadFailures)
	prometheus.MustRegister(DatasetsConverted)
	prometheus.MustRegister(ConvertDuration)
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
}
