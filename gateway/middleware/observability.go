package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"hesper/observability"
)

// Observability instruments handlers with a span, request metrics, and a
// debug log line per request.
type Observability struct {
	logger *slog.Logger
	tracer trace.Tracer
}

// NewObservability builds the instrumentation middleware for the named
// service.
func NewObservability(serviceName string, logger *slog.Logger) *Observability {
	if logger == nil {
		logger = slog.Default()
	}
	if serviceName == "" {
		serviceName = "hesper-gateway"
	}
	return &Observability{
		logger: logger,
		tracer: otel.Tracer(serviceName),
	}
}

// Middleware wraps next with tracing and metrics for the named route.
func (o *Observability) Middleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := o.tracer.Start(r.Context(), route, trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
			))
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r.WithContext(ctx))
			span.SetAttributes(attribute.Int("http.status_code", recorder.status))
			span.End()

			duration := time.Since(start)
			observability.Gateway().Observe(route, recorder.status, duration)
			o.logger.Debug("request handled",
				"route", route,
				"method", r.Method,
				"status", recorder.status,
				"duration_ms", duration.Milliseconds(),
			)
		})
	}
}

// MetricsHandler serves the process-wide Prometheus registry.
func (o *Observability) MetricsHandler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
