package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, service string) (*gin.Engine, *prometheus.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	promMw, err := NewPrometheusMiddleware(service, registry)
	require.NoError(t, err)

	r := gin.New()
	r.Use(promMw.Handler())
	return r, registry
}

func family(t *testing.T, g prometheus.Gatherer, name string) *dto.MetricFamily {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestPrometheusMiddleware_BasicMetrics(t *testing.T) {
	r, registry := newRouter(t, "test")
	r.GET("/test", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	r.GET("/error", func(c *gin.Context) { c.JSON(500, gin.H{"error": "test error"}) })

	assert.Equal(t, 200, get(r, "/test").Code)
	assert.Equal(t, 500, get(r, "/error").Code)

	duration := family(t, registry, "test_http_request_duration_seconds")
	require.NotNil(t, duration, "Duration metric not found")
	assert.Equal(t, "Длительность HTTP-запросов.", duration.GetHelp())
	assert.Len(t, duration.Metric, 2)

	errs := family(t, registry, "test_http_request_errors_total")
	require.NotNil(t, errs, "Errors metric not found")
	require.Len(t, errs.Metric, 1)
	assert.Equal(t, float64(1), errs.Metric[0].GetCounter().GetValue())
}

func TestPrometheusMiddleware_DuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewPrometheusMiddleware("dup", registry)
	require.NoError(t, err)
	_, err = NewPrometheusMiddleware("dup", registry)
	assert.Error(t, err)
}

func TestPrometheusMiddleware_InflightRequests(t *testing.T) {
	r, registry := newRouter(t, "test")
	entered := make(chan struct{})
	release := make(chan struct{})
	r.GET("/slow", func(c *gin.Context) {
		close(entered)
		<-release
		c.JSON(200, gin.H{"ok": true})
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		get(r, "/slow")
	}()

	<-entered
	inflight := family(t, registry, "test_http_requests_inflight")
	require.NotNil(t, inflight, "Inflight metric not found")
	assert.Equal(t, float64(1), inflight.Metric[0].GetGauge().GetValue())

	close(release)
	<-done
	inflight = family(t, registry, "test_http_requests_inflight")
	assert.Equal(t, float64(0), inflight.Metric[0].GetGauge().GetValue())
}

func TestPrometheusMiddleware_UnmatchedPath(t *testing.T) {
	r, registry := newRouter(t, "test")
	assert.Equal(t, 404, get(r, "/nope/123").Code)

	errs := family(t, registry, "test_http_request_errors_total")
	require.NotNil(t, errs)
	require.Len(t, errs.Metric, 1)
	for _, lp := range errs.Metric[0].Label {
		if lp.GetName() == "path" {
			assert.Equal(t, "unmatched", lp.GetValue())
		}
	}
}

func TestPrometheusMiddleware_ErrorCounting(t *testing.T) {
	r, registry := newRouter(t, "error_test")
	for _, code := range []int{400, 401, 404, 500, 200} {
		code := code
		r.GET("/"+http.StatusText(code), func(c *gin.Context) { c.Status(code) })
	}
	for _, code := range []int{400, 401, 404, 500, 200, 200} {
		get(r, "/"+http.StatusText(code))
	}

	errs := family(t, registry, "error_test_http_request_errors_total")
	require.NotNil(t, errs)
	var total float64
	for _, m := range errs.Metric {
		total += m.GetCounter().GetValue()
	}
	assert.Equal(t, float64(4), total)
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	r, registry := newRouter(t, "test")
	RegisterMetricsEndpoint(r, registry)
	r.GET("/api/test", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	assert.Equal(t, 200, get(r, "/api/test").Code)

	w := get(r, "/metrics")
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Body.String(), "# HELP test_http_request_duration_seconds")
}

func TestRequestLogger_TraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRequestLogger("/healthz").Handler())

	var captured string
	r.GET("/test", func(c *gin.Context) {
		traceID, exists := c.Get("trace_id")
		require.True(t, exists, "trace_id should be set in context")
		captured = traceID.(string)
		c.JSON(200, gin.H{"trace_id": captured})
	})

	w := get(r, "/test")
	assert.Equal(t, 200, w.Code)
	assert.NotEmpty(t, captured)
	assert.Contains(t, w.Body.String(), captured)
}

func TestMiddleware_Integration(t *testing.T) {
	r, registry := newRouter(t, "integration_test")
	r.Use(NewRequestLogger().Handler())
	r.GET("/api/v1/test", func(c *gin.Context) {
		traceID, _ := c.Get("trace_id")
		c.JSON(200, gin.H{"status": "ok", "trace_id": traceID})
	})

	for i := 0; i < 5; i++ {
		assert.Equal(t, 200, get(r, "/api/v1/test").Code)
	}

	duration := family(t, registry, "integration_test_http_request_duration_seconds")
	require.NotNil(t, duration)
	var count uint64
	for _, m := range duration.Metric {
		count += m.GetHistogram().GetSampleCount()
	}
	assert.Equal(t, uint64(5), count, "Should have recorded 5 requests")
}

// BenchmarkPrometheusMiddleware измеряет overhead middleware
func BenchmarkPrometheusMiddleware(b *testing.B) {
	gin.SetMode(gin.ReleaseMode)
	promMw, err := NewPrometheusMiddleware("bench", prometheus.NewRegistry())
	if err != nil {
		b.Fatal(err)
	}
	r := gin.New()
	r.Use(promMw.Handler())
	r.GET("/bench", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			get(r, "/bench")
		}
	})
}

func TestPrometheusMiddleware_WebSocketUpgrades(t *testing.T) {
	r, registry := newRouter(t, "test")
	r.GET("/ws", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Upgrade", "websocket")
	r.ServeHTTP(w, req)
	get(r, "/ws")

	upgrades := family(t, registry, "test_http_websocket_upgrades_total")
	require.NotNil(t, upgrades)
	assert.Equal(t, 1.0, upgrades.Metric[0].GetCounter().GetValue())
}
