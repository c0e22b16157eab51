package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestStartSpanEndSpanRecordsDuration(t *testing.T) {
	tracer := NewTracer("test")

	_, span := tracer.StartSpan(context.Background(), "op")
	span.SetAttribute("rows", 42)
	tracer.EndSpan(span)

	if tracer.totalSpans != 1 {
		t.Fatalf("expected 1 recorded span, got %d", tracer.totalSpans)
	}
	if span.Duration < 0 {
		t.Fatal("expected a non-negative duration")
	}
	if span.Attributes["rows"] != 42 {
		t.Fatalf("expected the rows attribute to stick, got %v", span.Attributes["rows"])
	}
}

func TestStartSpanInheritsParentTraceID(t *testing.T) {
	tracer := NewTracer("test")

	ctx, parent := tracer.StartSpan(context.Background(), "parent")
	_, child := tracer.StartSpan(ctx, "child")

	if child.TraceID != parent.TraceID {
		t.Fatalf("expected child span to inherit the parent trace id, got %q vs %q", child.TraceID, parent.TraceID)
	}
	if child.ParentSpanID != parent.SpanID {
		t.Fatalf("expected child span's parent id to be the parent's span id, got %q vs %q", child.ParentSpanID, parent.SpanID)
	}
}

func TestMetricsPercentileOverLatencySamples(t *testing.T) {
	m := NewMetrics()
	for i := 1; i <= 100; i++ {
		m.RecordLatency(time.Duration(i) * time.Millisecond)
	}

	p50 := m.Percentile(0.5)
	p99 := m.Percentile(0.99)
	if p50 > p99 {
		t.Fatalf("expected p50 (%v) <= p99 (%v)", p50, p99)
	}
}

func TestExportMetricsSendsCountersGaugesAndAHistogramPointPerSample(t *testing.T) {
	var gotMetrics int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/metrics" {
			atomic.AddInt32(&gotMetrics, 1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tracer := NewTracer("test").WithExportEndpoint(server.URL)

	m := NewMetrics()
	m.IncrementEvents(10)
	m.RecordLatency(5 * time.Millisecond)
	m.RecordLatency(15 * time.Millisecond)

	tracer.ExportMetrics(m)

	if err := tracer.exporter.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if atomic.LoadInt32(&gotMetrics) != 1 {
		t.Fatalf("expected the exporter to POST one metrics batch, got %d", gotMetrics)
	}
}

func TestExportMetricsOnATracerWithNoExportEndpointIsANoOp(t *testing.T) {
	tracer := NewTracer("test")
	m := NewMetrics()
	m.RecordLatency(time.Millisecond)

	tracer.ExportMetrics(m)
}

func TestCloseStopsTheFlushLoopAndIsIdempotentOnATracerWithNoExporter(t *testing.T) {
	tracer := NewTracer("test")
	if err := tracer.Close(); err != nil {
		t.Fatalf("Close on a tracer with no export endpoint should be a no-op, got %v", err)
	}
	if err := tracer.Close(); err != nil {
		t.Fatalf("a second Close on a tracer with no export endpoint should also be a no-op, got %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	withExporter := NewTracer("test").WithExportEndpoint(server.URL)
	_, span := withExporter.StartSpan(context.Background(), "op")
	withExporter.EndSpan(span)

	if err := withExporter.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestWithExportEndpointForwardsEndedSpansToTheCollector(t *testing.T) {
	var gotTraces int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/traces" {
			atomic.AddInt32(&gotTraces, 1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tracer := NewTracer("test").WithExportEndpoint(server.URL)

	_, span := tracer.StartSpan(context.Background(), "mine")
	tracer.EndSpan(span)

	if err := tracer.exporter.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if atomic.LoadInt32(&gotTraces) != 1 {
		t.Fatalf("expected the exporter to POST one trace batch, got %d", gotTraces)
	}
}
