// Package telemetry wires up the execution engine's tracing and metrics:
// OTel spans nested run -> task -> state, and a pair of Prometheus
// collectors recording task outcomes. The engine opens the run and task
// spans and records hit and miss outcomes; it does not call StartState,
// and it does not record the error or interrupted results.
package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const tracerName = "github.com/banksean/toastrun/engine"

// Tracer returns the engine's tracer, taken from the global OTel provider
// configured by NewTracerProvider (or the no-op default if tracing was
// never configured).
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// NewTracerProvider builds an OTLP/gRPC exporting tracer provider and
// installs it as the global provider. Callers are responsible for calling
// Shutdown on the returned provider before the process exits.
func NewTracerProvider(ctx context.Context, collectorEndpoint string) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(collectorEndpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName("toastrun"),
	))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// StartRun opens the top-level span for one invocation of the engine.
func StartRun(ctx context.Context) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "toastrun.run")
}

// StartTask opens a span for one task's execution, nested under the run
// span already in ctx.
func StartTask(ctx context.Context, taskName, fingerprint string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "toastrun.task", trace.WithAttributes(
		attribute.String("toastrun.task.name", taskName),
		attribute.String("toastrun.task.fingerprint", fingerprint),
	))
}

// StartState opens a span for a single state-machine transition, nested
// under the task span already in ctx.
func StartState(ctx context.Context, state string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "toastrun.task."+state)
}

// Metrics bundles the Prometheus collectors the engine updates as it runs.
type Metrics struct {
	TasksTotal   *prometheus.CounterVec
	TaskDuration *prometheus.HistogramVec
}

// NewMetrics constructs and registers the engine's collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toastrun",
			Name:      "tasks_total",
			Help:      "Number of tasks completed, by result.",
		}, []string{"result"}),
		TaskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "toastrun",
			Name:      "task_duration_seconds",
			Help:      "Wall-clock time spent executing a task, by task name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"}),
	}
	reg.MustRegister(m.TasksTotal, m.TaskDuration)
	return m
}

// Result labels used with TasksTotal.
const (
	ResultHit         = "hit"
	ResultMiss        = "miss"
	ResultError       = "error"
	ResultInterrupted = "interrupted"
)
