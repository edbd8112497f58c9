// Package tracing sets up OpenTelemetry tracing for conversions.
//
// Tracing is off by default. When enabled, every conversion produces one
// root span with a child span per stage (load, encode, publish), exported
// as JSON to the given writer when the provider is shut down:
//
//	tp, err := tracing.Init(tracing.Config{Enabled: true}, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	defer tracing.Shutdown(context.Background(), tp)
package tracing

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajitpratap0/csvfits/pkg/errors"
)

// ServiceName identifies csvfits in exported spans
const ServiceName = "csvfits"

// Config contains tracing configuration
type Config struct {
	// Enabled turns on span export
	Enabled bool
	// ServiceVersion is recorded as a resource attribute
	ServiceVersion string
}

// Init installs a global tracer provider exporting to w and returns it.
// With tracing disabled it returns nil and leaves the no-op provider in
// place.
func Init(cfg Config, w io.Writer) (*sdktrace.TracerProvider, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create trace resource")
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create trace exporter")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Shutdown flushes pending spans. A nil provider is a no-op.
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	if err := tp.Shutdown(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to flush traces")
	}
	return nil
}

// Tracer returns the named tracer from the global provider
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// EndSpan records err on span, if any, and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.type", string(errors.TypeOf(err))))
	}
	span.End()
}
