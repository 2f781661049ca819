package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

// PrometheusMiddleware пишет HTTP-метрики сервиса:
//
//	<service>_http_request_duration_seconds{method,path,status}
//	<service>_http_requests_inflight
//	<service>_http_request_errors_total{method,path,status}
//	<service>_http_websocket_upgrades_total
type PrometheusMiddleware struct {
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
	errors   *prometheus.CounterVec
	upgrades prometheus.Counter
}

// NewPrometheusMiddleware регистрирует метрики в reg. Вторая регистрация
// того же service в одном реестре возвращает ошибку.
func NewPrometheusMiddleware(service string, reg prometheus.Registerer) (*PrometheusMiddleware, error) {
	labels := []string{"method", "path", "status"}
	pm := &PrometheusMiddleware{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Name:      "http_request_duration_seconds",
			Help:      "Длительность HTTP-запросов.",
			Buckets:   latencyBuckets,
		}, labels),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Name:      "http_requests_inflight",
			Help:      "Запросы в обработке.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "http_request_errors_total",
			Help:      "Ответы со статусом 4xx и 5xx.",
		}, labels),
		upgrades: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: service,
			Name:      "http_websocket_upgrades_total",
			Help:      "Запросы на подключение к забегу по WebSocket.",
		}),
	}
	for _, c := range []prometheus.Collector{pm.duration, pm.inflight, pm.errors, pm.upgrades} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return pm, nil
}

// Handler возвращает middleware для router.Use. Соединение /ws держит
// обработчик до отключения клиента, поэтому в гистограмму оно попадает
// с длительностью всей сессии.
func (pm *PrometheusMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			pm.upgrades.Inc()
		}
		pm.inflight.Inc()
		start := time.Now()
		c.Next()
		elapsed := time.Since(start).Seconds()
		pm.inflight.Dec()

		code := c.Writer.Status()
		lv := []string{c.Request.Method, routeLabel(c), strconv.Itoa(code)}
		pm.duration.WithLabelValues(lv...).Observe(elapsed)
		if code >= 400 {
			pm.errors.WithLabelValues(lv...).Inc()
		}
	}
}

// routeLabel берёт шаблон маршрута, а не сырой путь, чтобы кардинальность
// меток не зависела от клиентов.
func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}

// RegisterMetricsEndpoint вешает GET /metrics с содержимым g.
func RegisterMetricsEndpoint(r gin.IRoutes, g prometheus.Gatherer) {
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}
