package api

import (
	"net/http"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/handler"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/auth"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/redis"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

func init() {
	prometheus.MustRegister(RequestCounter, RequestDuration)
}

// SetupRouter mounts every route behind recovery, logging and metrics.
// Credential endpoints are throttled by limiter; account endpoints require a
// live session token.
func SetupRouter(h *handler.Handler, tokens *auth.TokenManager, redisClient redis.RedisClient, limiter *RateLimiter) *mux.Router {
	r := mux.NewRouter()
	r.Use(recoveryMiddleware, securityHeadersMiddleware, loggingMiddleware, metricsMiddleware)

	h.RegisterPublicRoutes(r, limiter.Middleware)
	h.RegisterProtectedRoutes(r, auth.AuthMiddleware(tokens, redisClient))
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Endpoint not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}
