// Package telemetry bootstraps OpenTelemetry export: a tracer provider and a
// meter provider shipping OTLP over gRPC or HTTP to a collector.
package telemetry

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	exception "github.com/tigerroll/setwave/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

const moduleName = "telemetry"

// instrumentationName scopes the spans and instruments this package creates.
const instrumentationName = "github.com/tigerroll/setwave/pkg/batch"

// defaultServiceName is reported when no service name is configured.
const defaultServiceName = "setwave"

// ProviderParams defines the dependencies for the provider constructors.
type ProviderParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    *config.Config
}

// protocolOf normalizes the configured OTLP transport; anything other than
// "http" selects gRPC.
func protocolOf(cfg config.TelemetryConfig) string {
	if strings.EqualFold(cfg.Protocol, "http") {
		return "http"
	}
	return "grpc"
}

// newResource describes this process to the collector.
func newResource(cfg config.TelemetryConfig) (*resource.Resource, error) {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	return resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	))
}

func newTraceExporter(ctx context.Context, cfg config.TelemetryConfig) (sdktrace.SpanExporter, error) {
	if protocolOf(cfg) == "http" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.New(ctx, opts...)
}

func newMetricExporter(ctx context.Context, cfg config.TelemetryConfig) (sdkmetric.Exporter, error) {
	if protocolOf(cfg) == "http" {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	}
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return otlpmetricgrpc.New(ctx, opts...)
}

// NewTracerProvider builds the OTLP-exporting tracer provider, installs it as
// the global provider, and flushes it on shutdown.
func NewTracerProvider(p ProviderParams) (*sdktrace.TracerProvider, error) {
	telemetryCfg := p.Config.Setwave.Telemetry

	res, err := newResource(telemetryCfg)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to build the telemetry resource", err, false, false)
	}

	exporter, err := newTraceExporter(context.Background(), telemetryCfg)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to create the OTLP trace exporter", err, false, false)
	}

	sampleRatio := telemetryCfg.SampleRatio
	if sampleRatio <= 0 || sampleRatio > 1 {
		sampleRatio = 1.0
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio))),
	)
	otel.SetTracerProvider(provider)

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		},
	})

	logger.Infof("OTLP trace export enabled (endpoint: '%s', protocol: '%s', sample ratio: %.2f).",
		telemetryCfg.Endpoint, protocolOf(telemetryCfg), sampleRatio)
	return provider, nil
}

// NewMeterProvider builds the OTLP-exporting meter provider, installs it as
// the global provider, and flushes it on shutdown.
func NewMeterProvider(p ProviderParams) (*sdkmetric.MeterProvider, error) {
	telemetryCfg := p.Config.Setwave.Telemetry

	res, err := newResource(telemetryCfg)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to build the telemetry resource", err, false, false)
	}

	exporter, err := newMetricExporter(context.Background(), telemetryCfg)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to create the OTLP metric exporter", err, false, false)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	)
	otel.SetMeterProvider(provider)

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		},
	})

	logger.Infof("OTLP metric export enabled (endpoint: '%s', protocol: '%s').",
		telemetryCfg.Endpoint, protocolOf(telemetryCfg))
	return provider, nil
}
