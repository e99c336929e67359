// Package observe provides application-wide observability primitives for
// Lectern: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
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

// meterName is the instrumentation scope name used for all Lectern metrics.
const meterName = "github.com/profai/lectern"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// AnswerDuration tracks answer-generation latency.
	AnswerDuration metric.Float64Histogram

	// SynthesisDuration tracks text-to-speech synthesis latency per utterance.
	SynthesisDuration metric.Float64Histogram

	// TranscodeDuration tracks audio transcoding latency per utterance.
	TranscodeDuration metric.Float64Histogram

	// VisemeDuration tracks viseme extraction latency per utterance.
	VisemeDuration metric.Float64Histogram

	// PipelineDuration tracks end-to-end response assembly latency.
	PipelineDuration metric.Float64Histogram

	// --- Counters ---

	// Utterances counts fully assembled utterances. Use with attribute:
	//   attribute.String("source", ...)
	Utterances metric.Int64Counter

	// FallbackResponses counts empty-query fallback responses served.
	FallbackResponses metric.Int64Counter

	// StageErrors counts pipeline stage failures. Use with attribute:
	//   attribute.String("stage", ...)
	StageErrors metric.Int64Counter

	// BreakerTransitions counts answer-backend circuit breaker state
	// changes. Use with attributes:
	//   attribute.String("breaker", ...), attribute.String("state", ...)
	BreakerTransitions metric.Int64Counter

	// --- Gauges ---

	// InFlight tracks the number of pipeline runs currently executing.
	// Under the single-flight gate this is at most 1; the gauge exists to
	// make a stuck run visible.
	InFlight metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// external-tool and provider latencies in the assembly pipeline.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.AnswerDuration, err = m.Float64Histogram("lectern.answer.duration",
		metric.WithDescription("Latency of answer generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("lectern.synthesis.duration",
		metric.WithDescription("Latency of text-to-speech synthesis per utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscodeDuration, err = m.Float64Histogram("lectern.transcode.duration",
		metric.WithDescription("Latency of audio transcoding per utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.VisemeDuration, err = m.Float64Histogram("lectern.viseme.duration",
		metric.WithDescription("Latency of viseme extraction per utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("lectern.pipeline.duration",
		metric.WithDescription("End-to-end response assembly latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Utterances, err = m.Int64Counter("lectern.utterances",
		metric.WithDescription("Total fully assembled utterances by answer source."),
	); err != nil {
		return nil, err
	}
	if met.FallbackResponses, err = m.Int64Counter("lectern.fallback.responses",
		metric.WithDescription("Total empty-query fallback responses served."),
	); err != nil {
		return nil, err
	}
	if met.StageErrors, err = m.Int64Counter("lectern.stage.errors",
		metric.WithDescription("Total pipeline stage failures by stage."),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("lectern.breaker.transitions",
		metric.WithDescription("Total answer-backend circuit breaker state changes."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.InFlight, err = m.Int64UpDownCounter("lectern.pipeline.in_flight",
		metric.WithDescription("Number of pipeline runs currently executing."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("lectern.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
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

// RecordStageError is a convenience method that records a stage failure
// counter increment.
func (m *Metrics) RecordStageError(ctx context.Context, stage string) {
	m.StageErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordBreakerTransition is a convenience method that records an answer
// backend's circuit breaker entering a new state.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, breaker, state string) {
	m.BreakerTransitions.Add(ctx, 1,
		metric.WithAttributes(Attr("breaker", breaker), Attr("state", state)),
	)
}

// RecordUtterance is a convenience method that records one fully assembled
// utterance.
func (m *Metrics) RecordUtterance(ctx context.Context, source string) {
	m.Utterances.Add(ctx, 1,
		metric.WithAttributes(attribute.String("source", source)),
	)
}
