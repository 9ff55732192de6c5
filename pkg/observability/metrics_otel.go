package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds instruments exported over OTLP alongside the
// Prometheus collectors. Instruments come from the global meter, so they
// are no-ops until InitOTel installs a provider.
type OTelMetrics struct {
	exportsTotal metric.Int64Counter
	exportRows   metric.Int64Histogram
	exportBytes  metric.Int64Histogram
}

// NewOTelMetrics creates the instruments on the global meter provider
func NewOTelMetrics() (*OTelMetrics, error) {
	return NewOTelMetricsWith(otel.GetMeterProvider())
}

// NewOTelMetricsWith creates the instruments on provider
func NewOTelMetricsWith(provider metric.MeterProvider) (*OTelMetrics, error) {
	meter := provider.Meter(tracerName)
	m := &OTelMetrics{}
	var err error

	m.exportsTotal, err = meter.Int64Counter(
		"backer.export.requests",
		metric.WithDescription("Subscriber exports by destination and outcome"),
		metric.WithUnit("{export}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create export counter: %w", err)
	}

	m.exportRows, err = meter.Int64Histogram(
		"backer.export.rows",
		metric.WithDescription("Subscribers per export"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create export rows histogram: %w", err)
	}

	m.exportBytes, err = meter.Int64Histogram(
		"backer.export.size",
		metric.WithDescription("Rendered export size"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create export size histogram: %w", err)
	}

	return m, nil
}

// RecordExport records one export attempt. Nil-safe.
func (m *OTelMetrics) RecordExport(ctx context.Context, destination string, rows, size int, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("destination", destination),
		attribute.String("status", status),
	)
	m.exportsTotal.Add(ctx, 1, attrs)
	if err == nil {
		m.exportRows.Record(ctx, int64(rows), attrs)
		m.exportBytes.Record(ctx, int64(size), attrs)
	}
}
