package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "grihome",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "grihome",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "grihome",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	searches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "grihome",
			Subsystem: "properties",
			Name:      "searches_total",
			Help:      "Total number of property searches.",
		},
		[]string{"city"},
	)

	adPurchases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "grihome",
			Subsystem: "ads",
			Name:      "purchases_total",
			Help:      "Total number of ad slot purchases.",
		},
		[]string{"outcome"},
	)

	adRevenue = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "grihome",
			Subsystem: "ads",
			Name:      "revenue_total",
			Help:      "Total billed amount for ad slot purchases.",
		},
	)

	otpIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "grihome",
			Subsystem: "auth",
			Name:      "otp_issued_total",
			Help:      "Total number of one-time codes issued.",
		},
		[]string{"channel"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		searches,
		adPurchases,
		adRevenue,
		otpIssued,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordSearch counts a property search by city ("any" when unscoped).
func RecordSearch(city string) {
	if city == "" {
		city = "any"
	}
	searches.WithLabelValues(strings.ToLower(city)).Inc()
}

// RecordAdPurchase counts a purchase attempt and accumulates billed revenue.
func RecordAdPurchase(total float64, success bool) {
	outcome := "rejected"
	if success {
		outcome = "booked"
		adRevenue.Add(total)
	}
	adPurchases.WithLabelValues(outcome).Inc()
}

// RecordOTPIssued counts issued one-time codes per channel.
func RecordOTPIssued(channel string) {
	if channel == "" {
		channel = "unknown"
	}
	otpIssued.WithLabelValues(channel).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Hijack lets websocket upgrades pass through the instrumented writer.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// canonicalPath collapses IDs so the label set stays small: the first two
// path segments identify the resource, anything deeper is an ID.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/api"
	}
	if len(parts) == 2 {
		return "/api/" + parts[1]
	}
	return "/api/" + parts[1] + "/:id"
}
