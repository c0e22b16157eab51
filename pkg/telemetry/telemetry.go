// Package telemetry provides observability primitives for the mining
// pipeline: a lightweight span tracer for the ingest/mine/refine/coarsen
// stages, and a metrics collector for counting invariants, splits, and
// merges as they happen.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Tracer records spans for one mining run. When an export endpoint is
// configured, completed spans are also forwarded to an Exporter.
type Tracer struct {
	mu sync.RWMutex

	serviceName string
	spans       []*Span
	activeSpans map[string]*Span

	exportEndpoint string
	exporter       *Exporter

	totalSpans int64
}

// NewTracer creates a new tracer.
func NewTracer(serviceName string) *Tracer {
	return &Tracer{
		serviceName: serviceName,
		spans:       make([]*Span, 0),
		activeSpans: make(map[string]*Span),
	}
}

// WithExportEndpoint sets an OTLP-style HTTP collector endpoint; every span
// ended on this tracer from then on is also handed to an Exporter targeting
// that endpoint.
func (t *Tracer) WithExportEndpoint(endpoint string) *Tracer {
	t.exportEndpoint = endpoint
	t.exporter = NewExporter(ExporterConfig{
		Endpoint:    endpoint,
		ServiceName: t.serviceName,
	})
	return t
}

// StartSpan begins a new trace span.
func (t *Tracer) StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	span := &Span{
		TraceID:    generateTraceID(),
		SpanID:     generateSpanID(),
		Name:       name,
		StartTime:  time.Now(),
		Attributes: make(map[string]interface{}),
		Events:     make([]SpanEvent, 0),
		Status:     SpanStatusOK,
	}

	if parentSpan := SpanFromContext(ctx); parentSpan != nil {
		span.TraceID = parentSpan.TraceID
		span.ParentSpanID = parentSpan.SpanID
	}

	t.mu.Lock()
	t.activeSpans[span.SpanID] = span
	t.mu.Unlock()

	return ContextWithSpan(ctx, span), span
}

// EndSpan completes a span, records it, and forwards it to the configured
// exporter if any.
func (t *Tracer) EndSpan(span *Span) {
	span.EndTime = time.Now()
	span.Duration = span.EndTime.Sub(span.StartTime)

	t.mu.Lock()
	delete(t.activeSpans, span.SpanID)
	t.spans = append(t.spans, span)
	exporter := t.exporter
	atomic.AddInt64(&t.totalSpans, 1)
	t.mu.Unlock()

	if exporter != nil {
		exporter.RecordSpan(t.toSpanData(span))
	}
}

// Close flushes and stops the tracer's exporter, if one was configured via
// WithExportEndpoint. A Tracer with no export endpoint has nothing to
// close. The CLI calls this once per pipeline run so that watch mode, which
// builds a fresh Tracer on every re-mine, doesn't leak one exporter flush
// goroutine per file change.
func (t *Tracer) Close() error {
	t.mu.RLock()
	exporter := t.exporter
	t.mu.RUnlock()
	if exporter == nil {
		return nil
	}
	if err := exporter.Flush(); err != nil {
		return err
	}
	return exporter.Close()
}

// ExportMetrics pushes a run's metrics through the configured exporter, if
// any: the event/invariant/split/merge/error counts as OTLP counters, the
// latency percentiles as gauges, and every individual stage-latency sample
// as a histogram point. Call it once a run (mine/export/watch tick) has
// finished.
func (t *Tracer) ExportMetrics(m *Metrics) {
	t.mu.RLock()
	exporter := t.exporter
	t.mu.RUnlock()
	if exporter == nil {
		return
	}

	s := m.Summary()
	counters := map[string]int64{
		"events_processed":      s.EventsProcessed,
		"invariants_mined":      s.InvariantsMined,
		"invariants_retired":    s.InvariantsRetired,
		"partitions_split":      s.PartitionsSplit,
		"partitions_merged":     s.PartitionsMerged,
		"counterexamples_found": s.CounterexamplesFound,
		"error_count":           s.ErrorCount,
	}
	for name, v := range counters {
		exporter.RecordCounter(name, v, nil)
	}

	gauges := map[string]time.Duration{
		"stage_latency_p50_ms": s.P50Latency,
		"stage_latency_p95_ms": s.P95Latency,
		"stage_latency_p99_ms": s.P99Latency,
	}
	for name, d := range gauges {
		exporter.RecordGauge(name, float64(d.Milliseconds()), nil)
	}

	for _, d := range m.Latencies() {
		exporter.RecordHistogram("stage_latency_ms", float64(d.Milliseconds()), nil)
	}
}

func (t *Tracer) toSpanData(span *Span) SpanData {
	status := ExportSpanStatus{Code: "OK"}
	if span.Status == SpanStatusError {
		status = ExportSpanStatus{Code: "ERROR", Message: span.StatusMsg}
	}
	return SpanData{
		TraceID:     span.TraceID,
		SpanID:      span.SpanID,
		ParentID:    span.ParentSpanID,
		Name:        span.Name,
		Kind:        "INTERNAL",
		StartTime:   span.StartTime.UnixNano(),
		EndTime:     span.EndTime.UnixNano(),
		Attributes:  span.Attributes,
		Status:      status,
		ServiceName: t.serviceName,
	}
}

// Span represents a trace span (unit of work).
type Span struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	Name         string
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	Attributes   map[string]interface{}
	Events       []SpanEvent
	Status       SpanStatus
	StatusMsg    string
}

// SetAttribute adds a key-value attribute to the span.
func (s *Span) SetAttribute(key string, value interface{}) {
	s.Attributes[key] = value
}

// AddEvent records a timestamped event within the span.
func (s *Span) AddEvent(name string, attrs map[string]interface{}) {
	s.Events = append(s.Events, SpanEvent{
		Name:       name,
		Timestamp:  time.Now(),
		Attributes: attrs,
	})
}

// SetStatus sets the span status.
func (s *Span) SetStatus(status SpanStatus, msg string) {
	s.Status = status
	s.StatusMsg = msg
}

// SpanEvent is a timestamped event within a span.
type SpanEvent struct {
	Name       string
	Timestamp  time.Time
	Attributes map[string]interface{}
}

// SpanStatus represents the outcome of a span.
type SpanStatus int

const (
	SpanStatusOK SpanStatus = iota
	SpanStatusError
)

type spanContextKey struct{}

// ContextWithSpan returns a context with the span attached.
func ContextWithSpan(ctx context.Context, span *Span) context.Context {
	return context.WithValue(ctx, spanContextKey{}, span)
}

// SpanFromContext retrieves the current span from context.
func SpanFromContext(ctx context.Context) *Span {
	if span, ok := ctx.Value(spanContextKey{}).(*Span); ok {
		return span
	}
	return nil
}

// Metrics aggregates counters for one mining run: how many invariants were
// mined and survived filtering, how many splits and merges the partition
// graph went through, and per-stage latency samples.
type Metrics struct {
	mu sync.RWMutex

	EventsProcessed       int64
	InvariantsMined       int64
	InvariantsRetired     int64
	PartitionsSplit       int64
	PartitionsMerged      int64
	CounterexamplesFound  int64
	ErrorCount            int64

	latencies []time.Duration
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		latencies: make([]time.Duration, 0, 1000),
	}
}

// RecordLatency records a stage-duration sample (e.g. one mine, refine, or
// coarsen pass).
func (m *Metrics) RecordLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) >= 1000 {
		m.latencies = m.latencies[1:]
	}
	m.latencies = append(m.latencies, d)
}

// IncrementEvents atomically increments the events-processed counter.
func (m *Metrics) IncrementEvents(n int64) {
	atomic.AddInt64(&m.EventsProcessed, n)
}

// IncrementInvariantsMined atomically increments the invariants-mined counter.
func (m *Metrics) IncrementInvariantsMined(n int64) {
	atomic.AddInt64(&m.InvariantsMined, n)
}

// IncrementInvariantsRetired atomically increments the invariants-retired counter.
func (m *Metrics) IncrementInvariantsRetired(n int64) {
	atomic.AddInt64(&m.InvariantsRetired, n)
}

// IncrementSplits atomically increments the partition-split counter.
func (m *Metrics) IncrementSplits(n int64) {
	atomic.AddInt64(&m.PartitionsSplit, n)
}

// IncrementMerges atomically increments the partition-merge counter.
func (m *Metrics) IncrementMerges(n int64) {
	atomic.AddInt64(&m.PartitionsMerged, n)
}

// IncrementCounterexamples atomically increments the counterexamples-found counter.
func (m *Metrics) IncrementCounterexamples(n int64) {
	atomic.AddInt64(&m.CounterexamplesFound, n)
}

// IncrementErrors atomically increments the error count.
func (m *Metrics) IncrementErrors() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// Latencies returns a copy of the recorded stage-duration samples, in the
// order they were recorded.
func (m *Metrics) Latencies() []time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]time.Duration, len(m.latencies))
	copy(out, m.latencies)
	return out
}

// Percentile calculates the p-th percentile of recorded stage latencies.
func (m *Metrics) Percentile(p float64) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.latencies) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)

	for i := 0; i < len(sorted); i++ {
		minIdx := i
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j] < sorted[minIdx] {
				minIdx = j
			}
		}
		sorted[i], sorted[minIdx] = sorted[minIdx], sorted[i]
	}

	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Summary returns a snapshot of collected metrics.
func (m *Metrics) Summary() MetricsSummary {
	return MetricsSummary{
		EventsProcessed:      atomic.LoadInt64(&m.EventsProcessed),
		InvariantsMined:      atomic.LoadInt64(&m.InvariantsMined),
		InvariantsRetired:    atomic.LoadInt64(&m.InvariantsRetired),
		PartitionsSplit:      atomic.LoadInt64(&m.PartitionsSplit),
		PartitionsMerged:     atomic.LoadInt64(&m.PartitionsMerged),
		CounterexamplesFound: atomic.LoadInt64(&m.CounterexamplesFound),
		ErrorCount:           atomic.LoadInt64(&m.ErrorCount),
		P50Latency:           m.Percentile(0.50),
		P95Latency:           m.Percentile(0.95),
		P99Latency:           m.Percentile(0.99),
	}
}

// MetricsSummary is a snapshot of metrics.
type MetricsSummary struct {
	EventsProcessed      int64         `json:"events_processed"`
	InvariantsMined      int64         `json:"invariants_mined"`
	InvariantsRetired    int64         `json:"invariants_retired"`
	PartitionsSplit      int64         `json:"partitions_split"`
	PartitionsMerged     int64         `json:"partitions_merged"`
	CounterexamplesFound int64         `json:"counterexamples_found"`
	ErrorCount           int64         `json:"error_count"`
	P50Latency           time.Duration `json:"p50_latency_ns"`
	P95Latency           time.Duration `json:"p95_latency_ns"`
	P99Latency           time.Duration `json:"p99_latency_ns"`
}

// ToJSON serializes the summary to JSON.
func (s MetricsSummary) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

func generateTraceID() string {
	return fmt.Sprintf("%016x%016x", time.Now().UnixNano(), time.Now().UnixNano()>>32)
}

func generateSpanID() string {
	return fmt.Sprintf("%016x", time.Now().UnixNano())
}

// InstrumentedOperation wraps an operation with tracing and metrics,
// recording its latency and, on failure, incrementing the error counter.
func InstrumentedOperation(ctx context.Context, tracer *Tracer, metrics *Metrics, name string, op func(ctx context.Context) error) error {
	ctx, span := tracer.StartSpan(ctx, name)
	start := time.Now()

	err := op(ctx)

	elapsed := time.Since(start)
	if metrics != nil {
		metrics.RecordLatency(elapsed)
	}

	if err != nil {
		span.SetStatus(SpanStatusError, err.Error())
		if metrics != nil {
			metrics.IncrementErrors()
		}
	}

	span.SetAttribute("duration_ms", elapsed.Milliseconds())
	tracer.EndSpan(span)

	return err
}
