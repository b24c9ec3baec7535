// Package otel wires OpenTelemetry tracing and metrics for Boardroom.
// Export goes over OTLP/gRPC to the endpoint named by the standard
// OTEL_EXPORTER_OTLP_ENDPOINT variable; without it, telemetry stays
// no-op and the service runs normally.
package otel

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFunc flushes and shuts down the installed providers.
type ShutdownFunc func(ctx context.Context) error

// InitTracer installs global trace and meter providers exporting over
// OTLP/gRPC. When no collector endpoint is configured it leaves the
// no-op globals in place and returns a nil-op shutdown.
func InitTracer(serviceName string) ShutdownFunc {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		slog.Info("otel disabled, no collector endpoint configured", "service", serviceName)
		return func(context.Context) error { return nil }
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		slog.Warn("otel resource init failed, telemetry disabled", "error", err)
		return func(context.Context) error { return nil }
	}

	traceExp, err := otlptracegrpc.New(ctx)
	if err != nil {
		slog.Warn("otel trace exporter init failed, telemetry disabled", "error", err)
		return func(context.Context) error { return nil }
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricExp, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		slog.Warn("otel metric exporter init failed, traces only", "error", err)
		return tp.Shutdown
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	slog.Info("otel exporting enabled", "service", serviceName)
	return func(ctx context.Context) error {
		return errors.Join(mp.Shutdown(ctx), tp.Shutdown(ctx))
	}
}
