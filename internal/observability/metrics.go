package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	prometheusexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

const (
	meterScope         = "github.com/scholarnet/reco/internal/observability"
	defaultServiceName = "reco-api"
)

// latencyHistogramBoundaries are Prometheus-style buckets (seconds) for
// request and embedding duration histograms.
var latencyHistogramBoundaries = []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5}

// RecoMetrics records recommendation serving metrics with bounded cardinality.
type RecoMetrics interface {
	RecordRequest(ctx context.Context, feedType string, cacheHit bool, duration time.Duration)
	RecordFeedback(ctx context.Context, feedbackType string)
	RecordCacheInvalidation(ctx context.Context)
}

// EmbeddingMetrics records embedding pipeline metrics (provider, backfill).
type EmbeddingMetrics interface {
	RecordEmbeddingCreated(ctx context.Context, contentType string)
	RecordProviderError(ctx context.Context, contentType string)
	RecordEmbeddingDuration(ctx context.Context, duration time.Duration, status string)
	RecordBackfill(ctx context.Context, contentType string, processed, failed int)
}

// MeterProviderShutdown is the subset of the SDK MeterProvider needed for shutdown.
type MeterProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// MeterProviderConfig holds configuration for creating the MeterProvider and metrics.
type MeterProviderConfig struct {
	// ServiceName is used in the resource (default: reco-api).
	ServiceName string
}

// NewMeterProvider creates a MeterProvider with a Prometheus exporter and
// returns the provider, an HTTP handler for /metrics, and the metric sets
// bound to the provider's Meter. Caller must call provider.Shutdown on exit.
// When metrics are disabled, pass nil for the metric sets at call sites.
func NewMeterProvider(_ context.Context, cfg MeterProviderConfig) (
	provider MeterProviderShutdown,
	metricsHandler http.Handler,
	recoMetrics RecoMetrics,
	embeddingMetrics EmbeddingMetrics,
	err error,
) {
	serviceNameVal := cfg.ServiceName
	if serviceNameVal == "" {
		serviceNameVal = defaultServiceName
	}

	// A single resource avoids Schema URL conflicts when merging with resource.Default().
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceNameVal),
	)

	reg := prometheus.NewRegistry()

	exporter, err := prometheusexporter.New(
		prometheusexporter.WithRegisterer(reg),
	)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	// Attribute cardinality is bounded by the Normalize* funcs in names.go;
	// every attribute value is a closed enum or "other".
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
		sdkmetric.WithView(
			sdkmetric.NewView(
				sdkmetric.Instrument{Name: MetricNameRequestDuration},
				sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: latencyHistogramBoundaries}},
			),
			sdkmetric.NewView(
				sdkmetric.Instrument{Name: MetricNameEmbeddingDuration},
				sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: latencyHistogramBoundaries}},
			),
		),
	)
	provider = mp
	meter := mp.Meter(meterScope)

	recoMetrics, err = NewRecoMetrics(meter)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("create reco metrics: %w", err)
	}

	embeddingMetrics, err = NewEmbeddingMetrics(meter)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("create embedding metrics: %w", err)
	}

	metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	return provider, metricsHandler, recoMetrics, embeddingMetrics, nil
}

// recoMetricsImpl implements RecoMetrics.
type recoMetricsImpl struct {
	requests        metric.Int64Counter
	requestDuration metric.Float64Histogram
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
	invalidations   metric.Int64Counter
	feedback        metric.Int64Counter
}

// NewRecoMetrics creates RecoMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewRecoMetrics(meter metric.Meter) (RecoMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	requests, err := meter.Int64Counter(
		MetricNameRequests,
		metric.WithDescription("Total recommendation requests by feed type"),
	)
	if err != nil {
		return nil, fmt.Errorf("create requests counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram(
		MetricNameRequestDuration,
		metric.WithDescription("Recommendation request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create request duration histogram: %w", err)
	}

	cacheHits, err := meter.Int64Counter(
		MetricNameCacheHits,
		metric.WithDescription("Recommendation cache lookups served from cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cache hits counter: %w", err)
	}

	cacheMisses, err := meter.Int64Counter(
		MetricNameCacheMisses,
		metric.WithDescription("Recommendation cache lookups that recomputed"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cache misses counter: %w", err)
	}

	invalidations, err := meter.Int64Counter(
		MetricNameCacheInvalidations,
		metric.WithDescription("Recommendation cache invalidations from feedback"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cache invalidations counter: %w", err)
	}

	feedback, err := meter.Int64Counter(
		MetricNameFeedback,
		metric.WithDescription("Feedback submissions by type"),
	)
	if err != nil {
		return nil, fmt.Errorf("create feedback counter: %w", err)
	}

	return &recoMetricsImpl{
		requests:        requests,
		requestDuration: requestDuration,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		invalidations:   invalidations,
		feedback:        feedback,
	}, nil
}

func (m *recoMetricsImpl) RecordRequest(ctx context.Context, feedType string, cacheHit bool, duration time.Duration) {
	feedAttr := attribute.String(AttrFeedType, NormalizeFeedType(feedType))

	m.requests.Add(ctx, 1, metric.WithAttributes(feedAttr))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(feedAttr))

	if cacheHit {
		m.cacheHits.Add(ctx, 1, metric.WithAttributes(feedAttr))
	} else {
		m.cacheMisses.Add(ctx, 1, metric.WithAttributes(feedAttr))
	}
}

func (m *recoMetricsImpl) RecordFeedback(ctx context.Context, feedbackType string) {
	m.feedback.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrFeedbackType, NormalizeFeedbackType(feedbackType)),
	))
}

func (m *recoMetricsImpl) RecordCacheInvalidation(ctx context.Context) {
	m.invalidations.Add(ctx, 1)
}

// embeddingMetricsImpl implements EmbeddingMetrics.
type embeddingMetricsImpl struct {
	created           metric.Int64Counter
	providerErrors    metric.Int64Counter
	duration          metric.Float64Histogram
	backfillProcessed metric.Int64Counter
}

// NewEmbeddingMetrics creates EmbeddingMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewEmbeddingMetrics(meter metric.Meter) (EmbeddingMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	created, err := meter.Int64Counter(
		MetricNameEmbeddingsCreated,
		metric.WithDescription("Embeddings generated and persisted, by content type"),
	)
	if err != nil {
		return nil, fmt.Errorf("create embeddings created counter: %w", err)
	}

	providerErrors, err := meter.Int64Counter(
		MetricNameEmbeddingErrors,
		metric.WithDescription("Embedding provider failures, by content type"),
	)
	if err != nil {
		return nil, fmt.Errorf("create provider errors counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameEmbeddingDuration,
		metric.WithDescription("Embedding provider call duration (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding duration histogram: %w", err)
	}

	backfillProcessed, err := meter.Int64Counter(
		MetricNameBackfillProcessed,
		metric.WithDescription("Backfill items handled, by content type and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("create backfill counter: %w", err)
	}

	return &embeddingMetricsImpl{
		created:           created,
		providerErrors:    providerErrors,
		duration:          duration,
		backfillProcessed: backfillProcessed,
	}, nil
}

func (e *embeddingMetricsImpl) RecordEmbeddingCreated(ctx context.Context, contentType string) {
	e.created.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrContentType, NormalizeContentType(contentType)),
	))
}

func (e *embeddingMetricsImpl) RecordProviderError(ctx context.Context, contentType string) {
	e.providerErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrContentType, NormalizeContentType(contentType)),
	))
}

func (e *embeddingMetricsImpl) RecordEmbeddingDuration(ctx context.Context, duration time.Duration, status string) {
	if status != "ok" {
		status = "error"
	}

	e.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrStatus, status),
	))
}

func (e *embeddingMetricsImpl) RecordBackfill(ctx context.Context, contentType string, processed, failed int) {
	typeAttr := attribute.String(AttrContentType, NormalizeContentType(contentType))

	if processed > 0 {
		e.backfillProcessed.Add(ctx, int64(processed), metric.WithAttributes(
			typeAttr, attribute.String(AttrStatus, "ok"),
		))
	}

	if failed > 0 {
		e.backfillProcessed.Add(ctx, int64(failed), metric.WithAttributes(
			typeAttr, attribute.String(AttrStatus, "error"),
		))
	}
}
