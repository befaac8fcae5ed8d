package metrics

import (
	"context"
	"net/http"

	"github.com/ErlanBelekov/snapdocs/internal/health"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Auth metrics

	SignupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapdocs",
		Name:      "signups_total",
		Help:      "Signup attempts, by outcome.",
	}, []string{"outcome"})

	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapdocs",
		Name:      "logins_total",
		Help:      "Login attempts, by outcome.",
	}, []string{"outcome"})

	TokenVerificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapdocs",
		Name:      "token_verifications_total",
		Help:      "Bearer token verifications, by outcome.",
	}, []string{"outcome"})

	PasswordPolicyViolationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapdocs",
		Name:      "password_policy_violations_total",
		Help:      "Rejected passwords, by failed rule.",
	}, []string{"rule"})

	// Document metrics

	UploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapdocs",
		Name:      "uploads_total",
		Help:      "Upload attempts, by outcome.",
	}, []string{"outcome"})

	UploadSizeBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "snapdocs",
		Name:      "upload_size_bytes",
		Help:      "Size of accepted uploads.",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
	})

	// Revocation purger

	RevocationsPurgedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "snapdocs",
		Name:      "revocations_purged_total",
		Help:      "Expired revoked-token rows deleted by the purger.",
	})

	PurgeCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "snapdocs",
		Name:      "revocation_purge_duration_seconds",
		Help:      "Time taken for one purge cycle.",
		Buckets:   prometheus.DefBuckets,
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "snapdocs",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"service", "method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapdocs",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"service", "method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		SignupsTotal,
		LoginsTotal,
		TokenVerificationsTotal,
		PasswordPolicyViolationsTotal,
		UploadsTotal,
		UploadSizeBytes,
		RevocationsPurgedTotal,
		PurgeCycleDuration,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// HealthChecker is implemented by *health.Checker.
type HealthChecker interface {
	Liveness(ctx context.Context) health.HealthResult
	Readiness(ctx context.Context) health.HealthResult
}

// NewServer serves /metrics and the orchestrator probes on the internal port.
func NewServer(addr string, checker HealthChecker) *http.Server {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/livez", func(c *gin.Context) {
		c.JSON(http.StatusOK, checker.Liveness(c.Request.Context()))
	})
	r.GET("/readyz", func(c *gin.Context) {
		res := checker.Readiness(c.Request.Context())
		status := http.StatusOK
		if res.Status != health.StatusUp {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, res)
	})
	return &http.Server{Addr: addr, Handler: r}
}
