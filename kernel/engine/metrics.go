package engine

import (
	"context"
	"time"

	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/resourcestore/kernel/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type orchestratorMetrics struct {
	fetches metric.Int64Counter
	latency metric.Float64Histogram
}

func newOrchestratorMetrics() *orchestratorMetrics {
	meter := otel.Meter("resourcestore/engine")
	m := &orchestratorMetrics{}
	var err error
	if m.fetches, err = meter.Int64Counter("resourcestore.orchestrator.fetches",
		metric.WithDescription("Adapter calls made by the orchestrator"),
		metric.WithUnit("{call}")); err != nil {
		pfxlog.Logger().WithError(err).Warn("unable to create fetch counter")
	}
	if m.latency, err = meter.Float64Histogram("resourcestore.orchestrator.fetch.duration",
		metric.WithDescription("Latency of adapter calls"),
		metric.WithUnit("ms")); err != nil {
		pfxlog.Logger().WithError(err).Warn("unable to create fetch latency histogram")
	}
	return m
}

func (m *orchestratorMetrics) recordFetch(ctx context.Context, action model.Action, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := string(model.StatusSuccess)
	if err != nil {
		result = string(model.StatusError)
	}
	attrs := metric.WithAttributes(
		attribute.String("action", string(action.Type)),
		attribute.String("resource_type", string(action.ResourceType)),
		attribute.String("result", result),
	)
	if m.fetches != nil {
		m.fetches.Add(ctx, 1, attrs)
	}
	if m.latency != nil {
		m.latency.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	}
}
