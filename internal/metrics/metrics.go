package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	// ReportOperations считает операции с отчетами по результату
	ReportOperations *prometheus.CounterVec
}

// New создает метрики в собственном реестре вместе со стандартными метриками процесса и Go
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scouting",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests, labeled by method, route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scouting",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		ReportOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scouting",
			Subsystem: "reports",
			Name:      "operations_total",
			Help:      "Report operations, labeled by operation and result.",
		}, []string{"operation", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestsTotal,
		m.RequestDuration,
		m.ReportOperations,
	)

	return m
}

// ObserveReport учитывает результат операции с отчетом
func (m *Metrics) ObserveReport(operation, result string) {
	m.ReportOperations.WithLabelValues(operation, result).Inc()
}

// statusCoder ошибка, знающая свой HTTP статус
type statusCoder interface {
	StatusCode() int
}

// Middleware считает запросы и их длительность по шаблону маршрута
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				var sc statusCoder
				if errors.As(err, &he) {
					status = he.Code
				} else if errors.As(err, &sc) {
					status = sc.StatusCode()
				} else if status < http.StatusBadRequest {
					status = http.StatusInternalServerError
				}
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method

			m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// Handler отдает метрики в формате Prometheus
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
