// Package telemetry sets up OpenTelemetry metrics exported in the Prometheus format.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Config controls telemetry initialization.
type Config struct {
	ServiceName string
	Enabled     bool
}

// Providers holds the initialized metric providers.
type Providers struct {
	Meter metric.Meter

	serviceName   string
	enabled       bool
	meterProvider *sdkmetric.MeterProvider
}

// Init creates the metric providers. When telemetry is disabled, a noop meter is returned.
func Init(ctx context.Context, c *Config) (*Providers, error) {
	if !c.Enabled {
		return &Providers{
			Meter:       noop.NewMeterProvider().Meter(c.ServiceName),
			serviceName: c.ServiceName,
		}, nil
	}

	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", c.ServiceName))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	return &Providers{
		Meter:         mp.Meter(c.ServiceName),
		serviceName:   c.ServiceName,
		enabled:       true,
		meterProvider: mp,
	}, nil
}

// IsEnabled reports whether metrics are collected and exported.
func (p *Providers) IsEnabled() bool {
	return p.enabled
}

// ServiceName returns the name the metrics are reported under.
func (p *Providers) ServiceName() string {
	return p.serviceName
}

// Shutdown flushes and stops the meter provider.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p.meterProvider == nil {
		return nil
	}
	return p.meterProvider.Shutdown(ctx)
}
