// Package telemetry provides optional OpenTelemetry tracing for postrender runs.
// Tracing is off unless enabled; the OTLP HTTP exporter reads its endpoint and
// headers from the standard OTEL_EXPORTER_OTLP_* environment variables.
package telemetry

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Sampler names accepted in Config.SamplerType.
const (
	SamplerAlways = "always"
	SamplerNever  = "never"
	SamplerRatio  = "ratio"
)

// Batching for runs that last a few seconds.
const (
	exportBatchSize    = 128
	exportBatchTimeout = 500 * time.Millisecond
)

// Config represents the configuration for the telemetry system
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	// SamplerType is one of always, never or ratio. Empty means always.
	SamplerType  string
	SamplerRatio float64
}

// Validate checks the sampler settings. A disabled config is always valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	var result *multierror.Error
	switch c.SamplerType {
	case "", SamplerAlways, SamplerNever:
	case SamplerRatio:
		if c.SamplerRatio < 0 || c.SamplerRatio > 1 {
			result = multierror.Append(result, errors.Errorf("sampler ratio %v is outside [0, 1]", c.SamplerRatio))
		}
	default:
		result = multierror.Append(result, errors.Errorf("unknown sampler %q", c.SamplerType))
	}
	if c.ServiceName == "" {
		result = multierror.Append(result, errors.New("service name must not be empty"))
	}
	return result.ErrorOrNil()
}

func noopShutdown(context.Context) error { return nil }

// InitTracer installs a global tracer provider and returns its shutdown function,
// which flushes pending spans. When tracing is disabled the shutdown is a no-op
// and the global no-op provider stays in place.
func InitTracer(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return noopShutdown, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid tracing configuration")
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create resource")
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create trace exporter")
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(getSampler(cfg)),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithMaxExportBatchSize(exportBatchSize),
			sdktrace.WithBatchTimeout(exportBatchTimeout),
		),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Provider shutdown also shuts down the exporter behind the batcher.
	return func(ctx context.Context) error {
		return errors.Wrap(provider.Shutdown(ctx), "failed to shut down tracer provider")
	}, nil
}

func getSampler(cfg Config) sdktrace.Sampler {
	switch cfg.SamplerType {
	case SamplerNever:
		return sdktrace.NeverSample()
	case SamplerRatio:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplerRatio))
	default:
		return sdktrace.AlwaysSample()
	}
}
