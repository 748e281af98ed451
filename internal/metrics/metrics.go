package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SourceSearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mangascout_source_searches_total",
		Help: "Total number of searches sent to a source, by outcome",
	}, []string{"source", "outcome"})

	SourceSearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mangascout_source_search_duration_seconds",
		Help:    "Duration of a single source search in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	ExtractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mangascout_extractions_total",
		Help: "Total number of chapter image extractions, by outcome",
	}, []string{"source", "outcome"})

	ImagesDownloadedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mangascout_images_downloaded_total",
		Help: "Total number of chapter images fetched, by outcome",
	}, []string{"outcome"})

	HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mangascout_api_requests_total",
		Help: "Total number of HTTP requests to the API",
	}, []string{"method", "path", "status"})

	HttpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mangascout_api_request_duration_seconds",
		Help:    "Duration of API requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})
)

// Outcome labels an operation result.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
