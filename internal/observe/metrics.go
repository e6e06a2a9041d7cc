// Package observe provides observability primitives for chatwarden:
// OpenTelemetry metrics with a Prometheus scrape bridge, tracing helpers,
// and the HTTP instrumentation used by the operational endpoint.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all chatwarden metrics.
const meterName = "github.com/wardleworks/chatwarden"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// DispatchDuration tracks end-to-end completion latency, from Submit to
	// reply delivery.
	DispatchDuration metric.Float64Histogram

	// Dispatches counts completion requests. Use with attributes:
	//   attribute.String("platform", ...), attribute.String("model", ...), attribute.String("status", ...)
	Dispatches metric.Int64Counter

	// DispatchErrors counts failed dispatches by stage:
	//   attribute.String("stage", "credentials"|"provider"|"delivery")
	DispatchErrors metric.Int64Counter

	// TokensUsed accumulates reported token usage by platform and model.
	TokensUsed metric.Int64Counter

	// RuleMatches counts chat lines that fired at least one rule.
	RuleMatches metric.Int64Counter

	// MailSends counts transcript export attempts by status.
	MailSends metric.Int64Counter

	// ActiveSessions tracks the number of live AI conversations.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks operational-endpoint request time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// LLM round trips.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.DispatchDuration, err = m.Float64Histogram("chatwarden.dispatch.duration",
		metric.WithDescription("Latency from chat submission to AI reply delivery."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Dispatches, err = m.Int64Counter("chatwarden.dispatch.requests",
		metric.WithDescription("Total completion dispatches by platform, model, and status."),
	); err != nil {
		return nil, err
	}
	if met.DispatchErrors, err = m.Int64Counter("chatwarden.dispatch.errors",
		metric.WithDescription("Total dispatch failures by pipeline stage."),
	); err != nil {
		return nil, err
	}
	if met.TokensUsed, err = m.Int64Counter("chatwarden.tokens.used",
		metric.WithDescription("Total tokens reported by completion providers."),
	); err != nil {
		return nil, err
	}
	if met.RuleMatches, err = m.Int64Counter("chatwarden.rules.matches",
		metric.WithDescription("Chat lines that fired at least one rule."),
	); err != nil {
		return nil, err
	}
	if met.MailSends, err = m.Int64Counter("chatwarden.mail.sends",
		metric.WithDescription("Transcript export attempts by status."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("chatwarden.active_sessions",
		metric.WithDescription("Number of live AI conversations."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("chatwarden.http.request.duration",
		metric.WithDescription("Operational endpoint latency by method and path."),
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

// RecordDispatch records one completed dispatch with its outcome and latency.
func (m *Metrics) RecordDispatch(ctx context.Context, platform, model, status string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("platform", platform),
		attribute.String("model", model),
		attribute.String("status", status),
	)
	m.Dispatches.Add(ctx, 1, attrs)
	m.DispatchDuration.Record(ctx, seconds, attrs)
}

// RecordDispatchError records a dispatch failure at the named pipeline stage.
func (m *Metrics) RecordDispatchError(ctx context.Context, stage string) {
	m.DispatchErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordTokens accumulates reported token usage.
func (m *Metrics) RecordTokens(ctx context.Context, platform, model string, tokens int64) {
	if tokens <= 0 {
		return
	}
	m.TokensUsed.Add(ctx, tokens,
		metric.WithAttributes(
			attribute.String("platform", platform),
			attribute.String("model", model),
		),
	)
}

// RecordMailSend records one transcript export attempt.
func (m *Metrics) RecordMailSend(ctx context.Context, status string) {
	m.MailSends.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
