package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricTurns        = "chat.turns"
	metricTurnDuration = "chat.turn.duration"
)

// TurnMetrics counts chat turns by outcome and records their duration.
type TurnMetrics struct {
	turns    metric.Int64Counter
	duration metric.Float64Histogram
}

func NewTurnMetrics(meter metric.Meter) (*TurnMetrics, error) {
	turns, err := meter.Int64Counter(metricTurns,
		metric.WithDescription("Chat turns by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s counter: %w", metricTurns, err)
	}
	duration, err := meter.Float64Histogram(metricTurnDuration,
		metric.WithDescription("Chat turn duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s histogram: %w", metricTurnDuration, err)
	}
	return &TurnMetrics{turns: turns, duration: duration}, nil
}

func (m *TurnMetrics) RecordTurn(ctx context.Context, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.turns.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(d.Milliseconds()), attrs)
}
