package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// GraphQLMetrics holds custom metrics for GraphQL request handling and the
// per-request batch loader.
type GraphQLMetrics struct {
	requestDuration metric.Float64Histogram
	requestCounter  metric.Int64Counter
	errorCounter    metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
	queryDepth      metric.Int64Histogram
	rejectedCounter metric.Int64Counter
	batchDispatches metric.Int64Counter
	batchKeys       metric.Int64Histogram
	batchCacheHits  metric.Int64Counter
}

// InitGraphQLMetrics registers the service's GraphQL instruments on the
// global meter provider.
func InitGraphQLMetrics() (*GraphQLMetrics, error) {
	meter := otel.Meter("socialgraph")

	requestDuration, err := meter.Float64Histogram(
		"graphql.request.duration",
		metric.WithDescription("Duration of GraphQL requests in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	requestCounter, err := meter.Int64Counter(
		"graphql.requests.total",
		metric.WithDescription("Total number of GraphQL requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}

	errorCounter, err := meter.Int64Counter(
		"graphql.errors.total",
		metric.WithDescription("Total number of GraphQL requests that returned errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"graphql.requests.active",
		metric.WithDescription("Number of in-flight GraphQL requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active requests counter: %w", err)
	}

	queryDepth, err := meter.Int64Histogram(
		"graphql.query.depth",
		metric.WithDescription("Selection depth of GraphQL operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create query depth histogram: %w", err)
	}

	rejectedCounter, err := meter.Int64Counter(
		"graphql.requests.rejected",
		metric.WithDescription("Requests rejected before execution, by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rejected requests counter: %w", err)
	}

	batchDispatches, err := meter.Int64Counter(
		"graphql.batch.dispatches",
		metric.WithDescription("Number of batched store calls issued by relation kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch dispatch counter: %w", err)
	}

	batchKeys, err := meter.Int64Histogram(
		"graphql.batch.keys",
		metric.WithDescription("Number of parent keys carried by a batched store call"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch keys histogram: %w", err)
	}

	batchCacheHits, err := meter.Int64Counter(
		"graphql.batch.cache_hits",
		metric.WithDescription("Loads served from the per-request batch cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch cache hits counter: %w", err)
	}

	return &GraphQLMetrics{
		requestDuration: requestDuration,
		requestCounter:  requestCounter,
		errorCounter:    errorCounter,
		activeRequests:  activeRequests,
		queryDepth:      queryDepth,
		rejectedCounter: rejectedCounter,
		batchDispatches: batchDispatches,
		batchKeys:       batchKeys,
		batchCacheHits:  batchCacheHits,
	}, nil
}

// RecordRequest records a finished GraphQL request with its duration and
// outcome.
func (m *GraphQLMetrics) RecordRequest(ctx context.Context, duration time.Duration, hasErrors bool, operationType string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("operation_type", operationType),
		attribute.Bool("has_errors", hasErrors),
	}

	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	m.requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	if hasErrors {
		m.errorCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation_type", operationType),
		))
	}
}

// RequestStarted marks a request in flight. The returned func marks it done.
func (m *GraphQLMetrics) RequestStarted(ctx context.Context) func() {
	if m == nil {
		return func() {}
	}
	m.activeRequests.Add(ctx, 1)
	return func() { m.activeRequests.Add(ctx, -1) }
}

// RecordQueryDepth records the measured selection depth of an operation.
func (m *GraphQLMetrics) RecordQueryDepth(ctx context.Context, depth int64, operationType string) {
	if m == nil {
		return
	}
	m.queryDepth.Record(ctx, depth, metric.WithAttributes(
		attribute.String("operation_type", operationType),
	))
}

// RecordRejection counts a request rejected before execution. Reason is one
// of "syntax", "validation", or "depth".
func (m *GraphQLMetrics) RecordRejection(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.rejectedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordBatchDispatch counts one batched store call and the number of parent
// keys it carried.
func (m *GraphQLMetrics) RecordBatchDispatch(ctx context.Context, relationKind string, keys int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("relation_kind", relationKind))
	m.batchDispatches.Add(ctx, 1, attrs)
	m.batchKeys.Record(ctx, keys, attrs)
}

// RecordBatchCacheHits counts loads served from the per-request cache.
func (m *GraphQLMetrics) RecordBatchCacheHits(ctx context.Context, relationKind string, hits int64) {
	if m == nil || hits <= 0 {
		return
	}
	m.batchCacheHits.Add(ctx, hits, metric.WithAttributes(
		attribute.String("relation_kind", relationKind),
	))
}
