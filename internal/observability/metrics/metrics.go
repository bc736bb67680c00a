package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	eventsApplied metric.Int64Counter
	balanceFaults metric.Int64Counter
	recomputeRuns metric.Int64Counter
	recomputeDays metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "gastrack"
	}
	meter := provider.Meter(name)

	eventsApplied, err := meter.Int64Counter("gastrack_ledger_events_total")
	if err != nil {
		return nil, err
	}
	balanceFaults, err := meter.Int64Counter("gastrack_balance_faults_total")
	if err != nil {
		return nil, err
	}
	recomputeRuns, err := meter.Int64Counter("gastrack_recompute_runs_total")
	if err != nil {
		return nil, err
	}
	recomputeDays, err := meter.Int64Counter("gastrack_recompute_days_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		eventsApplied: eventsApplied,
		balanceFaults: balanceFaults,
		recomputeRuns: recomputeRuns,
		recomputeDays: recomputeDays,
	}, nil
}

// RecordEvent counts one event delivery by kind and outcome.
func (m *Metrics) RecordEvent(ctx context.Context, kind, status string) {
	if m == nil {
		return
	}
	m.eventsApplied.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", strings.ToLower(strings.TrimSpace(kind))),
		attribute.String("status", strings.ToLower(strings.TrimSpace(status))),
	))
}

// RecordBalanceFault counts a merge that broke the balance identity.
func (m *Metrics) RecordBalanceFault(ctx context.Context) {
	if m == nil {
		return
	}
	m.balanceFaults.Add(ctx, 1)
}

// RecordRecomputeRun counts one recompute sweep by outcome.
func (m *Metrics) RecordRecomputeRun(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.recomputeRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", strings.ToLower(strings.TrimSpace(outcome))),
	))
}

// RecordRecomputeDays counts reconciled days by status.
func (m *Metrics) RecordRecomputeDays(ctx context.Context, status string, days int64) {
	if m == nil || days <= 0 {
		return
	}
	m.recomputeDays.Add(ctx, days, metric.WithAttributes(
		attribute.String("status", strings.ToLower(strings.TrimSpace(status))),
	))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "grpc":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", protocol)
	}
}
