package middleware

import (
	"strconv"
	"time"

	applogger "SetupScan/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "setupscan_http_requests_total",
		Help: "HTTP requests by route, method and status code",
	}, []string{"route", "method", "code"})

	// event streams stay open for a whole scan, hence the long tail
	requestSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "setupscan_http_request_seconds",
		Help:    "HTTP request duration",
		Buckets: []float64{0.005, 0.025, 0.1, 0.25, 1, 2.5, 10, 60, 300, 1800},
	}, []string{"route", "method", "class"})

	responseBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "setupscan_http_response_bytes",
		Help:    "HTTP response body size",
		Buckets: prometheus.ExponentialBuckets(256, 4, 8),
	}, []string{"route", "class"})

	inFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "setupscan_http_in_flight",
		Help: "Requests currently being served, open event streams included",
	}, []string{"route"})
)

// Metrics records per-route request metrics. Requests for skipPath are not recorded.
// Server errors are logged at error level and slow non-streaming requests at warn.
func Metrics(l *applogger.Logger, slow time.Duration, skipPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			if route == skipPath {
				return next(c)
			}
			method := c.Request().Method

			gauge := inFlight.WithLabelValues(route)
			gauge.Inc()
			defer gauge.Dec()
			start := time.Now()

			if err := next(c); err != nil {
				// resolve the final status before labelling
				c.Error(err)
			}

			res := c.Response()
			took := time.Since(start)
			class := statusClass(res.Status)
			requestCount.WithLabelValues(route, method, strconv.Itoa(res.Status)).Inc()
			requestSeconds.WithLabelValues(route, method, class).Observe(took.Seconds())
			responseBytes.WithLabelValues(route, class).Observe(float64(res.Size))

			if l == nil {
				return nil
			}
			fields := []applogger.Field{
				applogger.String("route", route),
				applogger.String("method", method),
				applogger.Int("status", res.Status),
				applogger.Duration("took", took),
			}
			switch {
			case res.Status >= 500:
				l.Error("http request failed", fields...)
			case slow > 0 && took >= slow && !streaming(c):
				l.Warn("http request slow", fields...)
			}
			return nil
		}
	}
}

func streaming(c echo.Context) bool {
	return c.Response().Header().Get(echo.HeaderContentType) == "text/event-stream" ||
		c.Request().Header.Get(echo.HeaderUpgrade) != ""
}

func statusClass(code int) string {
	if code < 100 || code >= 600 {
		return "5xx"
	}
	return strconv.Itoa(code/100) + "xx"
}
