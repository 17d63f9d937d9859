package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barscan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "barscan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Decode metrics
	decodeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barscan_decode_requests_total",
			Help: "Total number of decode requests by outcome",
		},
		[]string{"source", "outcome"}, // source: http, pdf, websocket; outcome: found, none, invalid, timeout, error
	)

	decodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "barscan_decode_duration_seconds",
			Help:    "Time spent detecting and decoding one image",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)

	regionsDetected = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "barscan_regions_detected",
			Help:    "Number of candidate regions proposed per image",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
		},
	)

	barcodesDecoded = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "barscan_barcodes_decoded",
			Help:    "Number of barcodes decoded per image",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
		},
	)

	anglesTried = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "barscan_angles_tried",
			Help:    "Rotation attempts spent per image across all regions",
			Buckets: []float64{1, 2, 4, 8, 12, 24, 48, 96, 192, 384},
		},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "barscan_rate_limit_hits_total",
			Help: "Total number of rejected requests due to rate limiting",
		},
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "barscan_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "barscan_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barscan_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)
