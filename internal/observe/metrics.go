// Package observe provides application-wide observability primitives for the
// transcription orchestrator: OpenTelemetry metrics, distributed tracing, and
// structured logging glue.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all orchestrator metrics.
const meterName = "github.com/MrWong99/transcriptorch"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// PrimaryPassDuration tracks the latency of the full-file primary
	// transcription pass.
	PrimaryPassDuration metric.Float64Histogram

	// SegmentProviderDuration tracks the latency of a single provider's
	// segment re-transcription call during fan-out.
	SegmentProviderDuration metric.Float64Histogram

	// JudgeDuration tracks LLM judge arbitration latency per segment.
	JudgeDuration metric.Float64Histogram

	// MergeDuration tracks the time spent merging decisions back into the
	// final transcript.
	MergeDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("stage", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// JudgeDecisions counts judge decisions by outcome. Use with attribute:
	//   attribute.String("chosen_source", ...)
	JudgeDecisions metric.Int64Counter

	// SegmentsAnalyzed counts uncertain segments emitted by the confidence
	// analyzer, per run.
	SegmentsAnalyzed metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("stage", ...)
	ProviderErrors metric.Int64Counter

	// JudgeFallbacks counts how often the deterministic fallback was used
	// instead of a parsed LLM response.
	JudgeFallbacks metric.Int64Counter

	// --- Gauges ---

	// ActiveRuns tracks the number of orchestration runs currently in flight.
	ActiveRuns metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) spanning
// sub-second provider calls up to multi-minute whole-file transcription.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.PrimaryPassDuration, err = m.Float64Histogram("orchestrator.primary_pass.duration",
		metric.WithDescription("Latency of the full-file primary transcription pass."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SegmentProviderDuration, err = m.Float64Histogram("orchestrator.segment_provider.duration",
		metric.WithDescription("Latency of a single provider's segment re-transcription call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.JudgeDuration, err = m.Float64Histogram("orchestrator.judge.duration",
		metric.WithDescription("Latency of LLM judge arbitration per segment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.MergeDuration, err = m.Float64Histogram("orchestrator.merge.duration",
		metric.WithDescription("Time spent merging decisions into the final transcript."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.ProviderRequests, err = m.Int64Counter("orchestrator.provider.requests",
		metric.WithDescription("Total provider API requests by provider, stage, and status."),
	); err != nil {
		return nil, err
	}
	if met.JudgeDecisions, err = m.Int64Counter("orchestrator.judge.decisions",
		metric.WithDescription("Total judge decisions by chosen source."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsAnalyzed, err = m.Int64Counter("orchestrator.segments.analyzed",
		metric.WithDescription("Total uncertain segments emitted by the confidence analyzer."),
	); err != nil {
		return nil, err
	}

	if met.ProviderErrors, err = m.Int64Counter("orchestrator.provider.errors",
		metric.WithDescription("Total provider errors by provider and stage."),
	); err != nil {
		return nil, err
	}
	if met.JudgeFallbacks, err = m.Int64Counter("orchestrator.judge.fallbacks",
		metric.WithDescription("Total times the deterministic fallback replaced an LLM judge decision."),
	); err != nil {
		return nil, err
	}

	if met.ActiveRuns, err = m.Int64UpDownCounter("orchestrator.active_runs",
		metric.WithDescription("Number of orchestration runs currently in flight."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, stage, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("stage", stage),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, stage string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("stage", stage),
		),
	)
}

// RecordJudgeDecision is a convenience method that records a judge decision
// counter increment keyed by the chosen source ("deepgram", "assemblyai",
// "whisper", or "synthesized").
func (m *Metrics) RecordJudgeDecision(ctx context.Context, chosenSource string) {
	m.JudgeDecisions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("chosen_source", chosenSource)),
	)
}
