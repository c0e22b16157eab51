package run

import (
	"context"
	"strings"
	"testing"

	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/pkg/telemetry"
)

func batch(caseID string, labels ...string) model.EventBatch {
	b := model.EventBatch{CaseID: caseID}
	for _, l := range labels {
		b.Events = append(b.Events, model.Event{Type: model.NewEventType(l)})
	}
	return b
}

func TestFromBatchesRunsTheFullPipeline(t *testing.T) {
	batches := []model.EventBatch{
		batch("1", "a", "b"),
		batch("2", "a", "b"),
		batch("3", "a", "c"),
	}

	result, err := FromBatches(context.Background(), telemetry.NewTracer("test"), nil, batches, Options{
		K: 2,
	})
	if err != nil {
		t.Fatalf("FromBatches: %v", err)
	}
	if result.Mined.Len() == 0 {
		t.Fatal("expected at least one mined invariant")
	}
	if len(result.Graph.Nodes()) == 0 {
		t.Fatal("expected a non-empty partition graph")
	}

	summary := Summary(result)
	if !strings.Contains(summary, "partitions=") || !strings.Contains(summary, "merges=") {
		t.Fatalf("expected a one-line summary with partitions/merges, got %q", summary)
	}
	if result.Metrics.EventsProcessed == 0 {
		t.Fatal("expected the metrics summary to count the processed events")
	}
	if result.Metrics.InvariantsMined == 0 {
		t.Fatal("expected the metrics summary to count mined invariants")
	}
}

func TestFromBatchesRejectsAllEmptyTraces(t *testing.T) {
	batches := []model.EventBatch{batch("1"), batch("2")}

	if _, err := FromBatches(context.Background(), telemetry.NewTracer("test"), nil, batches, Options{K: 2}); err == nil {
		t.Fatal("expected an error when every batch has zero events")
	}
}

func TestFromBatchesCoarsensOnlyWhenRequested(t *testing.T) {
	batches := []model.EventBatch{
		batch("1", "a", "b"),
		batch("2", "a", "b"),
	}

	withoutCoarsen, err := FromBatches(context.Background(), telemetry.NewTracer("test"), nil, batches, Options{K: 2})
	if err != nil {
		t.Fatalf("FromBatches: %v", err)
	}
	if withoutCoarsen.Coarsen.Merges != 0 {
		t.Fatalf("expected zero merges when Coarsen is false, got %d", withoutCoarsen.Coarsen.Merges)
	}
}
