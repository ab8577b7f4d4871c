package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IngestFinished("indexed")
		m.ObserveStage("extract", time.Now())
		m.ChunkEmbedded()
		m.ChunkFailed()
		m.SearchFinished("text", "ok", 3)
		m.StrategiesExhausted("ocr")
	})
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()
	m.IngestFinished("indexed")
	m.IngestFinished("indexed")
	m.IngestFinished("partially_indexed")
	m.ChunkEmbedded()
	m.ChunkFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ingestTotal.WithLabelValues("indexed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestTotal.WithLabelValues("partially_indexed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chunksEmbedded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chunkEmbedFailure))
}

func TestExporterHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(m.ExporterHandler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `sikoma_http_requests_total{code="200",method="GET",route="/ping"} 1`)
}
