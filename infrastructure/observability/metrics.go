package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"heatscore/config"
)

// MetricsProvider manages OpenTelemetry metrics for the scoring worker.
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	scoringRunsCounter    metric.Int64Counter
	runDurationHist       metric.Float64Histogram
	scoresPersistedCount  metric.Int64Counter
	externalCallsCounter  metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider.
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{config: cfg}
}

// Initialize sets up the OpenTelemetry meter provider and instruments.
// With OTel disabled all recording methods become no-ops.
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Debug("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
	default:
		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	}
	if err != nil {
		return fmt.Errorf("failed to create metrics exporter: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(30*time.Second))),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("heatscore")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("OpenTelemetry metrics initialized")
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.scoringRunsCounter, err = mp.meter.Int64Counter(
		"heatscore.scoring_runs",
		metric.WithDescription("Completed scoring runs by outcome"),
	)
	if err != nil {
		return err
	}

	mp.runDurationHist, err = mp.meter.Float64Histogram(
		"heatscore.run_duration_seconds",
		metric.WithDescription("Duration of scoring runs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	mp.scoresPersistedCount, err = mp.meter.Int64Counter(
		"heatscore.scores_persisted",
		metric.WithDescription("Heat score records written"),
	)
	if err != nil {
		return err
	}

	mp.externalCallsCounter, err = mp.meter.Int64Counter(
		"heatscore.external_calls",
		metric.WithDescription("Calls to external services by target"),
	)
	return err
}

// RecordRun records one finished scoring run.
func (mp *MetricsProvider) RecordRun(ctx context.Context, success bool, duration time.Duration) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	if mp.scoringRunsCounter == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	mp.scoringRunsCounter.Add(ctx, 1, attrs)
	mp.runDurationHist.Record(ctx, duration.Seconds(), attrs)
}

// RecordPersisted records how many score rows a run wrote.
func (mp *MetricsProvider) RecordPersisted(ctx context.Context, count int) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	if mp.scoresPersistedCount == nil {
		return
	}
	mp.scoresPersistedCount.Add(ctx, int64(count))
}

// RecordExternalCall counts one call to a named external target.
func (mp *MetricsProvider) RecordExternalCall(ctx context.Context, target string) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	if mp.externalCallsCounter == nil {
		return
	}
	mp.externalCallsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("target", target)))
}

// Shutdown flushes and stops the meter provider.
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.meterProvider == nil {
		return nil
	}
	return mp.meterProvider.Shutdown(ctx)
}
