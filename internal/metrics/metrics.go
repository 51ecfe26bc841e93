package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audition",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"method", "path", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "audition",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "audition",
		Name:      "http_in_flight_requests",
		Help:      "Current number of in-flight HTTP requests",
	})

	answerUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audition",
		Name:      "answer_uploads_total",
		Help:      "Answer uploads by result",
	}, []string{"result"})

	answerBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "audition",
		Name:      "answer_upload_bytes",
		Help:      "Size of uploaded answer audio in bytes",
		Buckets:   prometheus.ExponentialBuckets(16<<10, 2, 10),
	})

	transcriptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audition",
		Name:      "transcriptions_total",
		Help:      "Transcription jobs by final status",
	}, []string{"status"})

	transcriptionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "audition",
		Name:      "transcription_duration_seconds",
		Help:      "Time spent in speech-to-text per answer",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
	})

	sessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audition",
		Name:      "sessions_total",
		Help:      "Audition sessions by lifecycle event",
	}, []string{"event"})
)

// Middleware records request metrics labelled with the route template, so
// ids in paths do not explode cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		httpLatency.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

func AnswerUploaded(size int64) {
	answerUploads.WithLabelValues("ok").Inc()
	answerBytes.Observe(float64(size))
}

func AnswerRejected() { answerUploads.WithLabelValues("error").Inc() }

func Transcribed(status string, took time.Duration) {
	transcriptions.WithLabelValues(status).Inc()
	transcriptionLatency.Observe(took.Seconds())
}

// SessionEvent counts "started", "completed" and "expired".
func SessionEvent(event string) { sessions.WithLabelValues(event).Inc() }

// Handler exposes the default Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
