package otel

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

func newTraceProvider(ctx context.Context, c *OpenTelemetryConfig, res *resource.Resource) (*trace.TracerProvider, error) {
	if !c.Traces {
		return nil, nil
	}

	var err error
	var traceExporter trace.SpanExporter
	switch {
	case c.Exporter == ExporterStdout:
		traceExporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case c.Protocol == ProtocolGRPC:
		traceExporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(c.Endpoint),
		)
	default:
		traceExporter, err = otlptracehttp.New(ctx,
			otlptracehttp.WithInsecure(),
			otlptracehttp.WithEndpointURL(ensureHTTPEndpoint("traces", c.Endpoint)),
		)
	}
	if err != nil {
		return nil, err
	}

	return trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithBatcher(traceExporter, trace.WithBatchTimeout(time.Second)),
	), nil
}

func newMeterProvider(ctx context.Context, c *OpenTelemetryConfig, res *resource.Resource) (*metric.MeterProvider, error) {
	if !c.Metrics {
		return nil, nil
	}

	var err error
	var metricExporter metric.Exporter
	switch {
	case c.Exporter == ExporterStdout:
		metricExporter, err = stdoutmetric.New()
	case c.Protocol == ProtocolGRPC:
		metricExporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithInsecure(),
			otlpmetricgrpc.WithEndpoint(c.Endpoint),
		)
	default:
		metricExporter, err = otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithInsecure(),
			otlpmetrichttp.WithEndpointURL(ensureHTTPEndpoint("metrics", c.Endpoint)),
		)
	}
	if err != nil {
		return nil, err
	}

	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExporter,
			metric.WithInterval(15*time.Second))),
	), nil
}

func ensureHTTPEndpoint(exporterType string, endpoint string) string {
	fullEndpoint := endpoint
	if !strings.HasPrefix(endpoint, "http") {
		fullEndpoint = "http://" + endpoint
	}
	if !strings.HasSuffix(fullEndpoint, "/v1/"+exporterType) {
		fullEndpoint = strings.TrimSuffix(fullEndpoint, "/") + "/v1/" + exporterType
	}
	return fullEndpoint
}
