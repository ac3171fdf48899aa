package monitoring

import (
	"context"
	"fmt"
	"net/http"

	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "ranklist/review-pipeline"

// PipelineMetrics records review pipeline counters through an OpenTelemetry
// meter backed by a dedicated Prometheus registry.
type PipelineMetrics struct {
	provider    *sdkmetric.MeterProvider
	handler     http.Handler
	transitions metric.Int64Counter
	claims      metric.Int64Counter
	reaped      metric.Int64Counter
}

func NewPipelineMetrics(serviceName string) (*PipelineMetrics, error) {
	reg := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(meterName, metric.WithInstrumentationAttributes(
		attribute.String("service", serviceName),
	))

	transitions, err := meter.Int64Counter("submission_transitions_total",
		metric.WithDescription("Submission state transitions by resulting status"),
	)
	if err != nil {
		return nil, fmt.Errorf("create transitions counter: %w", err)
	}
	claims, err := meter.Int64Counter("submission_claims_total",
		metric.WithDescription("Claim attempts by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create claims counter: %w", err)
	}
	reaped, err := meter.Int64Counter("submission_claims_reaped_total",
		metric.WithDescription("Stale claims returned to the queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("create reaped counter: %w", err)
	}

	return &PipelineMetrics{
		provider:    provider,
		handler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		transitions: transitions,
		claims:      claims,
		reaped:      reaped,
	}, nil
}

func (m *PipelineMetrics) RecordTransition(ctx context.Context, listID string, status entities.SubmissionStatus) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("list_id", listID),
		attribute.String("status", string(status)),
	))
}

func (m *PipelineMetrics) RecordClaim(ctx context.Context, listID string, outcome string) {
	m.claims.Add(ctx, 1, metric.WithAttributes(
		attribute.String("list_id", listID),
		attribute.String("outcome", outcome),
	))
}

func (m *PipelineMetrics) RecordReaped(ctx context.Context, count int) {
	if count <= 0 {
		return
	}
	m.reaped.Add(ctx, int64(count))
}

// Handler serves the Prometheus text exposition for this registry.
func (m *PipelineMetrics) Handler() http.Handler {
	return m.handler
}

func (m *PipelineMetrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
