// Package metrics 定义 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_recommendations_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"strategy", "outcome"}, // outcome: ok, not_found, error
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinematch_recommendation_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	MatrixFitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinematch_matrix_fit_duration_seconds",
			Help:    "Time spent vectorizing the full catalog",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"strategy"},
	)

	PosterLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_poster_lookups_total",
			Help: "Poster lookups by outcome",
		},
		[]string{"outcome"}, // found, not_found, error, cached, disabled
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_cache_hits_total",
			Help: "Cache hits by cache name",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_cache_misses_total",
			Help: "Cache misses by cache name",
		},
		[]string{"cache"},
	)

	CatalogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinematch_catalog_movies",
			Help: "Number of movies in the loaded catalog",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)
)
