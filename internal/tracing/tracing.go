package tracing

import (
	"context"
	"log/slog"

	"kogma/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Init installs the global tracer provider described by cfg. Without an
// endpoint nothing is installed. The returned func flushes pending spans.
func Init(ctx context.Context, logger *slog.Logger, cfg config.Tracing) (func(context.Context) error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Endpoint == "" {
		logger.Info("tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(Sampler(cfg.SampleRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	logger.Info("tracing initialized",
		"endpoint", cfg.Endpoint, "service", cfg.ServiceName, "env", cfg.Environment, "ratio", cfg.SampleRatio)
	return tp.Shutdown, nil
}

// Sampler keeps the caller's sampling decision and samples ratio of new
// root traces.
func Sampler(ratio float64) trace.Sampler {
	switch {
	case ratio >= 1:
		return trace.ParentBased(trace.AlwaysSample())
	case ratio <= 0:
		return trace.ParentBased(trace.NeverSample())
	default:
		return trace.ParentBased(trace.TraceIDRatioBased(ratio))
	}
}
