// Package telemetry observes rendition pipelines through logs and
// OpenTelemetry metrics.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const scope = "photorend"

// Telemetry owns the meter provider for the process.
type Telemetry struct {
	meter    metric.Meter
	shutdown []func(ctx context.Context) error
}

// Setup exports metrics over OTLP/gRPC when OTEL_ENABLED=true, to the
// collector at OTEL_COLLECTOR_GRPC_ENDPOINT. Otherwise metrics are dropped.
func Setup(ctx context.Context) (*Telemetry, error) {
	if os.Getenv("OTEL_ENABLED") != "true" {
		return &Telemetry{meter: noop.NewMeterProvider().Meter(scope)}, nil
	}

	conn, err := grpc.NewClient(
		os.Getenv("OTEL_COLLECTOR_GRPC_ENDPOINT"),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc connection to collector: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String(scope)))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("otlp metric exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))),
	)
	otel.SetMeterProvider(provider)

	return &Telemetry{
		meter: provider.Meter(scope),
		shutdown: []func(ctx context.Context) error{
			provider.Shutdown,
			func(context.Context) error { return conn.Close() },
		},
	}, nil
}

// Meter returns the process meter.
func (t *Telemetry) Meter() metric.Meter { return t.meter }

// Shutdown flushes pending metrics and closes the collector connection.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	for _, fn := range t.shutdown {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}
