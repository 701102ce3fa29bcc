package cache

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics exports cache activity as OpenTelemetry counters. A nil *Metrics
// records nothing.
type Metrics struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	evictions metric.Int64Counter
}

// NewMetrics registers the cache counters on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	hits, err := meter.Int64Counter("dashcli.cache.hits",
		metric.WithDescription("Result cache lookups that found an entry"))
	if err != nil {
		return nil, err
	}
	misses, err := meter.Int64Counter("dashcli.cache.misses",
		metric.WithDescription("Result cache lookups that found nothing"))
	if err != nil {
		return nil, err
	}
	evictions, err := meter.Int64Counter("dashcli.cache.evictions",
		metric.WithDescription("Entries dropped to stay within the cache bound"))
	if err != nil {
		return nil, err
	}
	return &Metrics{hits: hits, misses: misses, evictions: evictions}, nil
}

func (m *Metrics) hit(ctx context.Context, name string) {
	if m != nil {
		m.hits.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", name)))
	}
}

func (m *Metrics) miss(ctx context.Context, name string) {
	if m != nil {
		m.misses.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", name)))
	}
}

func (m *Metrics) evict(ctx context.Context, name string) {
	if m != nil {
		m.evictions.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", name)))
	}
}
