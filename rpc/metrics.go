package rpc

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("langbridge.rpc")

var (
	// processSpawns counts process spawn attempts.
	// Labels: status (success, error)
	processSpawns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "langbridge",
		Subsystem: "rpc",
		Name:      "process_spawns_total",
		Help:      "Total external service process spawn attempts",
	}, []string{"status"})

	// callsTotal counts remote calls by outcome.
	// Labels: service, method, status (success, remote_error, transport_error, disposed)
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "langbridge",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total remote service calls",
	}, []string{"service", "method", "status"})

	callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "langbridge",
		Subsystem: "rpc",
		Name:      "call_duration_seconds",
		Help:      "Remote service call latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"service", "method"})
)

func recordSpawn(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	processSpawns.WithLabelValues(status).Inc()
}

func recordCall(service, method, status string, duration time.Duration) {
	callsTotal.WithLabelValues(service, method, status).Inc()
	callDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

func startCallSpan(ctx context.Context, client, service, method string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "rpc."+service+"."+method,
		trace.WithAttributes(
			attribute.String("rpc.client", client),
			attribute.String("rpc.service", service),
			attribute.String("rpc.method", method),
		),
	)
}

func endCallSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
