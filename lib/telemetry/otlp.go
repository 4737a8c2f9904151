package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	exporterTimeout = time.Second * 3
	metricInterval  = time.Second * 5

	protocolGrpc = "grpc"
	protocolHttp = "http"
)

// exporterConfig names one OTLP endpoint. Protocol defaults to http.
type exporterConfig struct {
	Protocol string            `json:"protocol"`
	Endpoint string            `json:"endpoint"`
	Headers  map[string]string `json:"headers"`
}

type config struct {
	Otlp struct {
		Traces  exporterConfig `json:"traces"`
		Metrics exporterConfig `json:"metrics"`
	} `json:"otlp"`
}

func (e exporterConfig) protocol() string {
	if e.Protocol == "" {
		return protocolHttp
	}
	return e.Protocol
}

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
}

func newTraceProvider(ctx context.Context, r *resource.Resource, c config) (*trace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, exporterTimeout)
	defer cancel()

	ec := c.Otlp.Traces
	var exporter trace.SpanExporter
	var err error
	switch ec.protocol() {
	case protocolGrpc:
		exporter, err = otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(ec.Endpoint),
			otlptracegrpc.WithHeaders(ec.Headers),
		)
	case protocolHttp:
		exporter, err = otlptracehttp.New(
			ctx,
			otlptracehttp.WithEndpointURL(ec.Endpoint),
			otlptracehttp.WithHeaders(ec.Headers),
		)
	default:
		return nil, fmt.Errorf("unknown trace exporter protocol %q", ec.Protocol)
	}
	if err != nil {
		return nil, err
	}

	slog.Info(
		"trace exporter initialized",
		"protocol", ec.protocol(),
		"endpoint", ec.Endpoint,
	)
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
	), nil
}

func newMetricProvider(ctx context.Context, r *resource.Resource, c config) (*metric.MeterProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, exporterTimeout)
	defer cancel()

	ec := c.Otlp.Metrics
	var exporter metric.Exporter
	var err error
	switch ec.protocol() {
	case protocolGrpc:
		exporter, err = otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(ec.Endpoint),
			otlpmetricgrpc.WithHeaders(ec.Headers),
		)
	case protocolHttp:
		exporter, err = otlpmetrichttp.New(
			ctx,
			otlpmetrichttp.WithEndpointURL(ec.Endpoint),
			otlpmetrichttp.WithHeaders(ec.Headers),
		)
	default:
		return nil, fmt.Errorf("unknown metric exporter protocol %q", ec.Protocol)
	}
	if err != nil {
		return nil, err
	}

	slog.Info(
		"metric exporter initialized",
		"protocol", ec.protocol(),
		"endpoint", ec.Endpoint,
	)
	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(metricInterval))),
		metric.WithResource(r),
	), nil
}
