// Package otel bootstraps the OpenTelemetry metrics pipeline. The planner
// records its counters against the global meter; this package decides where
// those measurements go. Disabled, everything stays a no-op.
package otel

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config holds the metrics pipeline configuration.
type Config struct {
	Enabled        bool
	ServiceName    string
	ExportInterval time.Duration
	MetricWriter   io.Writer // periodic JSON metric dumps (optional)
	Endpoint       string    // OTLP/HTTP endpoint (optional)
	Insecure       bool      // plain HTTP for the OTLP endpoint
}

// Provider owns the meter provider lifecycle.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	config        Config
}

// New creates a provider and, when enabled, installs it as the global meter
// provider. Disabled, instruments resolve against the default no-op meter.
func New(cfg Config) (*Provider, error) {
	p := &Provider{config: cfg}

	if !cfg.Enabled {
		return p, nil
	}
	if cfg.ExportInterval <= 0 {
		cfg.ExportInterval = time.Minute
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var readers []sdkmetric.Reader

	if cfg.MetricWriter != nil {
		fileExporter, err := stdoutmetric.New(
			stdoutmetric.WithWriter(cfg.MetricWriter),
			stdoutmetric.WithPrettyPrint(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create file metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(fileExporter,
			sdkmetric.WithInterval(cfg.ExportInterval),
		))
	}

	if cfg.Endpoint != "" {
		otlpOpts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
		}
		if cfg.Insecure {
			otlpOpts = append(otlpOpts, otlpmetrichttp.WithInsecure())
		}

		otlpExporter, err := otlpmetrichttp.New(context.Background(), otlpOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(otlpExporter,
			sdkmetric.WithInterval(cfg.ExportInterval),
		))
	}

	if len(readers) == 0 {
		return nil, fmt.Errorf("metrics enabled but no writer or endpoint configured")
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}
	p.meterProvider = sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(p.meterProvider)

	return p, nil
}

// Flush forces an export of all pending measurements.
func (p *Provider) Flush(ctx context.Context) error {
	if p.meterProvider == nil {
		return nil
	}
	if err := p.meterProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("metric flush failed: %w", err)
	}
	return nil
}

// Shutdown stops the export pipeline. Call on process exit.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.meterProvider == nil {
		return nil
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("metric shutdown failed: %w", err)
	}
	return nil
}

// Enabled returns whether the pipeline is active.
func (p *Provider) Enabled() bool {
	return p.meterProvider != nil
}
