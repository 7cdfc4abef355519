package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Departures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pickup", Name: "departures_total", Help: "Recorded departures",
	})
	DepartureRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pickup", Name: "departure_rejections_total", Help: "Rejected departure scans by reason",
	}, []string{"reason"})
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pickup", Name: "http_requests_total", Help: "HTTP requests by route and status",
	}, []string{"method", "route", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pickup", Name: "http_request_duration_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pickup", Name: "notifications_total", Help: "Guardian notifications by outcome",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(Departures, DepartureRejections, HTTPRequests, HTTPDuration, Notifications)
}

func Handler() http.Handler { return promhttp.Handler() }

// Reject counts one rejected departure scan.
func Reject(reason string) { DepartureRejections.WithLabelValues(reason).Inc() }

// ObserveHTTP records one finished request.
func ObserveHTTP(method, route, status string, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}
