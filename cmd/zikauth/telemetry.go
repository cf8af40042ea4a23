package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// telemetryEnv configures OTLP export. An empty endpoint keeps the SDK providers
// local: spans are sampled and dropped, metrics are only read by extra readers.
type telemetryEnv struct {
	Endpoint       string        `env:"ZIK_OTLP_ENDPOINT"`
	Insecure       bool          `env:"ZIK_OTLP_INSECURE"`
	MetricInterval time.Duration `env:"ZIK_OTLP_METRIC_INTERVAL" envDefault:"15s"`
}

type telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	shutdownFns    []func(context.Context) error
}

// newTelemetry builds the tracer and meter providers and installs them as the
// otel globals. extra readers are attached to the meter provider as well.
func newTelemetry(ctx context.Context, cfg telemetryEnv, extra ...sdkmetric.Reader) (*telemetry, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	metricOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range extra {
		metricOpts = append(metricOpts, sdkmetric.WithReader(r))
	}

	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		target, insecure, err := otlpTarget(endpoint, cfg.Insecure)
		if err != nil {
			return nil, err
		}

		tOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(target)}
		mOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(target)}
		if insecure {
			tOpts = append(tOpts, otlptracegrpc.WithInsecure())
			mOpts = append(mOpts, otlpmetricgrpc.WithInsecure())
		}

		traceExp, err := otlptracegrpc.New(ctx, tOpts...)
		if err != nil {
			return nil, fmt.Errorf("otlp trace exporter: %w", err)
		}
		metricExp, err := otlpmetricgrpc.New(ctx, mOpts...)
		if err != nil {
			_ = traceExp.Shutdown(ctx)
			return nil, fmt.Errorf("otlp metric exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(traceExp))
		metricOpts = append(metricOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(cfg.MetricInterval)),
		))
	}

	tp := sdktrace.NewTracerProvider(traceOpts...)
	mp := sdkmetric.NewMeterProvider(metricOpts...)
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	return &telemetry{
		tracerProvider: tp,
		meterProvider:  mp,
		shutdownFns:    []func(context.Context) error{tp.Shutdown, mp.Shutdown},
	}, nil
}

// Shutdown flushes and stops the providers in reverse order of creation.
func (t *telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(t.shutdownFns) - 1; i >= 0; i-- {
		if err := t.shutdownFns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// otlpTarget reduces an endpoint URL to the host:port the gRPC exporters dial.
// Plain http endpoints are dialed without TLS.
func otlpTarget(endpoint string, insecureOverride bool) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid ZIK_OTLP_ENDPOINT %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid ZIK_OTLP_ENDPOINT %q: missing host", endpoint)
	}
	return u.Host, insecureOverride || u.Scheme != "https", nil
}
