package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BrowserLaunches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pageshot_browser_launches_total",
		Help: "Browser launch attempts by result.",
	}, []string{"result"})

	SessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pageshot_sessions_opened_total",
		Help: "Page sessions opened.",
	})

	SessionsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pageshot_sessions_closed_total",
		Help: "Page sessions closed.",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pageshot_sessions_active",
		Help: "Page sessions currently open.",
	})

	Actions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pageshot_actions_total",
		Help: "Scripted actions executed by kind and result.",
	}, []string{"kind", "result"})

	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pageshot_requests_total",
		Help: "Screenshot requests by outcome phase.",
	}, []string{"outcome"})

	RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pageshot_request_duration_seconds",
		Help:    "Screenshot request latency.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
