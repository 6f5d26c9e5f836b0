// Package metrics provides Prometheus metrics for a mirror run.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BgWv3/procore-doc-downloader/internal/logging"
)

var (
	// API request metrics
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docmirror_api_requests_total",
			Help: "Total number of platform API requests",
		},
		[]string{"endpoint", "status"},
	)

	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docmirror_api_request_duration_seconds",
			Help:    "Platform API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Rate limit metrics
	rateLimitWaitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docmirror_rate_limit_waits_total",
			Help: "Total waits caused by 429 responses",
		},
	)

	rateLimitWaitSeconds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docmirror_rate_limit_wait_seconds_total",
			Help: "Total seconds spent waiting on rate limits",
		},
	)

	// Transfer metrics
	fileDownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docmirror_file_downloads_total",
			Help: "Total number of file downloads",
		},
		[]string{"status"},
	)

	bytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docmirror_bytes_downloaded_total",
			Help: "Total bytes written to the mirror",
		},
	)

	filesSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docmirror_files_skipped_total",
			Help: "Files skipped because they are deleted or have no downloadable version",
		},
	)

	// Storage metrics
	storageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docmirror_storage_operation_duration_seconds",
			Help:    "Storage backend operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation", "status"},
	)

	// Traversal metrics
	foldersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docmirror_folders_total",
			Help: "Total folders visited",
		},
		[]string{"result"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest records a platform API request.
func RecordAPIRequest(endpoint string, status int, duration time.Duration) {
	apiRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	apiRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRateLimitWait records a wait caused by a rate limited response.
func RecordRateLimitWait(wait time.Duration) {
	rateLimitWaitsTotal.Inc()
	rateLimitWaitSeconds.Add(wait.Seconds())
}

// RecordFileDownload records a file download.
func RecordFileDownload(bytes int64, success bool) {
	bytesDownloaded.Add(float64(bytes))
	status := "success"
	if !success {
		status = "error"
	}
	fileDownloadsTotal.WithLabelValues(status).Inc()
}

// RecordFileSkipped records a file that had nothing to download.
func RecordFileSkipped() {
	filesSkippedTotal.Inc()
}

// RecordStorageOperation records a storage backend operation.
func RecordStorageOperation(backend, operation string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	storageOperationDuration.WithLabelValues(backend, operation, status).Observe(duration.Seconds())
}

// RecordFolder records a visited folder. result is "listed" or "failed".
func RecordFolder(result string) {
	foldersTotal.WithLabelValues(result).Inc()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("metrics server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("metrics server error", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		server.Close()
	}()
}
