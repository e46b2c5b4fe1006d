package ingest

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics holds the OpenTelemetry instruments updated by sync runs.
// A nil *Metrics records nothing.
type Metrics struct {
	pages         metric.Int64Counter
	upserted      metric.Int64Counter
	duplicates    metric.Int64Counter
	parseFailures metric.Int64Counter
	runs          metric.Int64Counter
	runDuration   metric.Float64Histogram
}

// NewMetrics creates the sync instruments on meter. A nil meter uses a no-op provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("cvesync")
	}

	m := &Metrics{}
	var err error

	if m.pages, err = meter.Int64Counter("cvesync.pages",
		metric.WithDescription("NVD pages fetched successfully"),
		metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("create pages counter: %w", err)
	}
	if m.upserted, err = meter.Int64Counter("cvesync.records.upserted",
		metric.WithDescription("CVE records written to storage"),
		metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("create upserted counter: %w", err)
	}
	if m.duplicates, err = meter.Int64Counter("cvesync.records.duplicates",
		metric.WithDescription("Repeated CVE ids dropped within a run"),
		metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("create duplicates counter: %w", err)
	}
	if m.parseFailures, err = meter.Int64Counter("cvesync.parse_failures",
		metric.WithDescription("Date fields stored as Unknown"),
		metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("create parse failure counter: %w", err)
	}
	if m.runs, err = meter.Int64Counter("cvesync.runs",
		metric.WithDescription("Sync runs finished, by mode and outcome"),
		metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("create runs counter: %w", err)
	}
	if m.runDuration, err = meter.Float64Histogram("cvesync.run.duration",
		metric.WithDescription("Sync run duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("create run duration histogram: %w", err)
	}

	return m, nil
}

func (m *Metrics) page(ctx context.Context) {
	if m == nil {
		return
	}
	m.pages.Add(ctx, 1)
}

func (m *Metrics) batch(ctx context.Context, upserted, duplicates int) {
	if m == nil {
		return
	}
	m.upserted.Add(ctx, int64(upserted))
	m.duplicates.Add(ctx, int64(duplicates))
}

// ParseFailure counts one field that could not be normalized
func (m *Metrics) ParseFailure(ctx context.Context, field string) {
	if m == nil {
		return
	}
	m.parseFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("field", field)))
}

func (m *Metrics) run(ctx context.Context, mode string, outcome string, seconds float64) {
	if m == nil {
		return
	}
	opts := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	)
	m.runs.Add(ctx, 1, opts)
	m.runDuration.Record(ctx, seconds, opts)
}
