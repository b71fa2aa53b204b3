package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// Счётчик вызовов методов репозитория
	RepositoryCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repository_calls_total",
			Help: "Total number of repository method calls",
		},
		[]string{"method", "status"},
	)

	// Гистограмма времени выполнения запросов
	RepositoryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repository_duration_seconds",
			Help:    "Duration of repository method calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	GatewayNotifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_notifications_total",
			Help: "Payment gateway notifications by outcome",
		},
		[]string{"outcome", "reason"},
	)

	GatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Duration of outbound payment gateway calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	OrdersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders persisted in pending state",
		},
	)

	SalesRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sales_recorded_total",
			Help: "Completed orders counted against product stock",
		},
	)

	OrderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Applied order status transitions",
		},
		[]string{"from", "to"},
	)

	PaymentsOnClosedOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_payments_on_closed_orders_total",
			Help: "Payment confirmations received for failed or cancelled orders",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		RepositoryCalls,
		RepositoryDuration,
		GatewayNotifications,
		GatewayRequestDuration,
		OrdersCreated,
		SalesRecorded,
		OrderTransitions,
		PaymentsOnClosedOrders,
	)
}

// TrackRepositoryCall opens a span for a repository method and returns a
// finisher that records the call outcome on the span and in the repository
// metrics. Pass the method's final error to the finisher.
func TrackRepositoryCall(ctx context.Context, tracerName, method string) (context.Context, trace.Span, func(error)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, method)
	start := time.Now()

	return ctx, span, func(err error) {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		RepositoryCalls.WithLabelValues(method, status).Inc()
		RepositoryDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		span.End()
	}
}
