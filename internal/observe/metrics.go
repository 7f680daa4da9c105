// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics and distributed tracing for the streaming
// transcription pipeline.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so metrics can be scraped
// via the standard /metrics endpoint. A package-level default [Metrics]
// instance ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/auralis-dev/auralis"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ProbeDuration tracks per-language detection probe latency.
	ProbeDuration metric.Float64Histogram

	// ConnectDuration tracks WebSocket connect plus handshake latency.
	ConnectDuration metric.Float64Histogram

	// --- Counters ---

	// FramesSent counts audio frames transmitted to the backend. Use with
	// attribute: attribute.String("kind", "speech"|"heartbeat").
	FramesSent metric.Int64Counter

	// TranscriptEvents counts inbound transcript events. Use with attribute:
	//   attribute.String("kind", "interim"|"final"|"speech_final")
	TranscriptEvents metric.Int64Counter

	// LanguageVerdicts counts surfaced language detections. Use with
	// attributes:
	//   attribute.String("language", ...), attribute.String("method", ...)
	LanguageVerdicts metric.Int64Counter

	// Reconnects counts automatic reconnect attempts. Use with attribute:
	//   attribute.String("closure", "normal"|"abnormal")
	Reconnects metric.Int64Counter

	// --- Error counters ---

	// BackendErrors counts error messages received from the backend.
	BackendErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live voice sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ProbeDuration, err = m.Float64Histogram("auralis.langdetect.probe.duration",
		metric.WithDescription("Latency of per-language detection probes."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ConnectDuration, err = m.Float64Histogram("auralis.transport.connect.duration",
		metric.WithDescription("Latency of WebSocket connect and handshake."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.FramesSent, err = m.Int64Counter("auralis.audio.frames_sent",
		metric.WithDescription("Total audio frames transmitted by kind."),
	); err != nil {
		return nil, err
	}
	if met.TranscriptEvents, err = m.Int64Counter("auralis.transcript.events",
		metric.WithDescription("Total inbound transcript events by kind."),
	); err != nil {
		return nil, err
	}
	if met.LanguageVerdicts, err = m.Int64Counter("auralis.langdetect.verdicts",
		metric.WithDescription("Total surfaced language detections by language and method."),
	); err != nil {
		return nil, err
	}
	if met.Reconnects, err = m.Int64Counter("auralis.transport.reconnects",
		metric.WithDescription("Total automatic reconnect attempts by closure kind."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.BackendErrors, err = m.Int64Counter("auralis.backend.errors",
		metric.WithDescription("Total error messages received from the backend."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("auralis.active_sessions",
		metric.WithDescription("Number of live voice sessions."),
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

// RecordFrame records one transmitted audio frame of the given kind.
func (m *Metrics) RecordFrame(ctx context.Context, kind string) {
	m.FramesSent.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordTranscriptEvent records one inbound transcript event of the given
// kind.
func (m *Metrics) RecordTranscriptEvent(ctx context.Context, kind string) {
	m.TranscriptEvents.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordLanguageVerdict records one surfaced language detection.
func (m *Metrics) RecordLanguageVerdict(ctx context.Context, language, method string) {
	m.LanguageVerdicts.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("language", language),
			attribute.String("method", method),
		),
	)
}

// RecordReconnect records one automatic reconnect attempt.
func (m *Metrics) RecordReconnect(ctx context.Context, closure string) {
	m.Reconnects.Add(ctx, 1,
		metric.WithAttributes(attribute.String("closure", closure)),
	)
}
