package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMiddleware_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/api/opportunities/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := value(t, httpRequests.WithLabelValues("GET", "/api/opportunities/:id", "204"))
	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/opportunities/"+id, nil))
		require.Equal(t, http.StatusNoContent, w.Code)
	}
	after := value(t, httpRequests.WithLabelValues("GET", "/api/opportunities/:id", "204"))
	assert.Equal(t, 2.0, after-before)
}

func TestDomainCounters(t *testing.T) {
	before := value(t, transcriptions.WithLabelValues("failed"))
	Transcribed("failed", time.Second)
	assert.Equal(t, 1.0, value(t, transcriptions.WithLabelValues("failed"))-before)

	before = value(t, answerUploads.WithLabelValues("ok"))
	AnswerUploaded(1024)
	assert.Equal(t, 1.0, value(t, answerUploads.WithLabelValues("ok"))-before)

	SessionEvent("started")
	assert.GreaterOrEqual(t, value(t, sessions.WithLabelValues("started")), 1.0)
}

func TestHandler(t *testing.T) {
	AnswerRejected()
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "audition_answer_uploads_total")
}
