// Package metrics wires OpenTelemetry metric instruments, exported via
// a Prometheus bridge, into session.Metrics. One Metrics instance is
// shared across every live session; recordings carry no per-session
// attributes, so every value is a service-wide aggregate.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/lokutor-ai/transcribe-core"

var latencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8}

// Metrics implements session.Metrics and tracks service-wide counters
// for active sessions, model invocations, and finalization outcomes.
type Metrics struct {
	modelInvocations      metric.Int64Counter
	modelDuration         metric.Float64Histogram
	modelErrors           metric.Int64Counter
	malformedChunks       metric.Int64Counter
	finalsEmitted         metric.Int64Counter
	hallucinationsRejected metric.Int64Counter
	activeSessions        metric.Int64UpDownCounter
}

// New creates a fully initialized Metrics using mp. Returns an error if
// any instrument fails to register.
func New(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	if met.modelInvocations, err = m.Int64Counter("transcribe.model.invocations",
		metric.WithDescription("Total calls made to the STT model."),
	); err != nil {
		return nil, err
	}
	if met.modelDuration, err = m.Float64Histogram("transcribe.model.duration",
		metric.WithDescription("Latency of STT model invocations."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.modelErrors, err = m.Int64Counter("transcribe.model.errors",
		metric.WithDescription("Total STT model invocation errors."),
	); err != nil {
		return nil, err
	}
	if met.malformedChunks, err = m.Int64Counter("transcribe.chunks.malformed",
		metric.WithDescription("Audio chunks received containing non-finite samples."),
	); err != nil {
		return nil, err
	}
	if met.finalsEmitted, err = m.Int64Counter("transcribe.results.final",
		metric.WithDescription("Total final transcription results emitted."),
	); err != nil {
		return nil, err
	}
	if met.hallucinationsRejected, err = m.Int64Counter("transcribe.hallucinations.rejected",
		metric.WithDescription("Total model outputs rejected by the hallucination sink."),
	); err != nil {
		return nil, err
	}
	if met.activeSessions, err = m.Int64UpDownCounter("transcribe.sessions.active",
		metric.WithDescription("Number of currently open transcription sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// ModelInvoked implements session.Metrics.
func (m *Metrics) ModelInvoked(latency time.Duration) {
	ctx := context.Background()
	m.modelInvocations.Add(ctx, 1)
	m.modelDuration.Record(ctx, latency.Seconds())
}

// ModelError implements session.Metrics.
func (m *Metrics) ModelError() {
	m.modelErrors.Add(context.Background(), 1)
}

// MalformedChunk implements session.Metrics.
func (m *Metrics) MalformedChunk() {
	m.malformedChunks.Add(context.Background(), 1)
}

// FinalEmitted implements session.Metrics.
func (m *Metrics) FinalEmitted() {
	m.finalsEmitted.Add(context.Background(), 1)
}

// HallucinationRejected implements session.Metrics.
func (m *Metrics) HallucinationRejected() {
	m.hallucinationsRejected.Add(context.Background(), 1)
}

// SessionOpened increments the active-session gauge. Call when a
// connection is accepted, paired with a deferred SessionClosed.
func (m *Metrics) SessionOpened() {
	m.activeSessions.Add(context.Background(), 1)
}

// SessionClosed decrements the active-session gauge.
func (m *Metrics) SessionClosed() {
	m.activeSessions.Add(context.Background(), -1)
}

// InitProvider builds a Prometheus-backed MeterProvider, registers it
// as the global OTel provider, and returns that provider along with a
// shutdown function to call during graceful drain. The exporter
// registers with the default Prometheus registry, which is what
// promhttp.Handler serves on /metrics.
func InitProvider() (provider *sdkmetric.MeterProvider, shutdown func(context.Context) error, err error) {
	exporter, err := promexporter.New()
	if err != nil {
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(mp)
	return mp, mp.Shutdown, nil
}
