package metrics

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := New(mp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewCreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("New returned nil")
	}
}

func TestModelInvokedRecordsCountAndLatency(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.ModelInvoked(250 * time.Millisecond)
	m.ModelInvoked(500 * time.Millisecond)

	rm := collect(t, reader)

	count := findMetric(rm, "transcribe.model.invocations")
	if count == nil {
		t.Fatal("invocations metric not found")
	}
	sum, ok := count.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 || sum.DataPoints[0].Value != 2 {
		t.Errorf("unexpected invocations data: %+v", count.Data)
	}

	dur := findMetric(rm, "transcribe.model.duration")
	if dur == nil {
		t.Fatal("duration metric not found")
	}
	hist, ok := dur.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 || hist.DataPoints[0].Count != 2 {
		t.Errorf("unexpected duration data: %+v", dur.Data)
	}
}

func TestErrorAndRejectionCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.ModelError()
	m.MalformedChunk()
	m.MalformedChunk()
	m.FinalEmitted()
	m.HallucinationRejected()

	rm := collect(t, reader)

	cases := []struct {
		name string
		want int64
	}{
		{"transcribe.model.errors", 1},
		{"transcribe.chunks.malformed", 2},
		{"transcribe.results.final", 1},
		{"transcribe.hallucinations.rejected", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			sum, ok := met.Data.(metricdata.Sum[int64])
			if !ok || len(sum.DataPoints) == 0 {
				t.Fatalf("metric %q missing data points", tc.name)
			}
			if got := sum.DataPoints[0].Value; got != tc.want {
				t.Errorf("value = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestActiveSessionsGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	rm := collect(t, reader)
	met := findMetric(rm, "transcribe.sessions.active")
	if met == nil {
		t.Fatal("active sessions metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 {
		t.Fatal("missing data points")
	}
	if got := sum.DataPoints[0].Value; got != 1 {
		t.Errorf("active sessions = %d, want 1", got)
	}
}
