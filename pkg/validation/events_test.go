package validation

import (
	"strings"
	"testing"

	"github.com/logminer/logminer/internal/model"
)

func TestCheckEventBatchesFlagsEmptyActivityLabel(t *testing.T) {
	batches := []model.EventBatch{
		{CaseID: "1", Events: []model.Event{{Type: model.EventType{Label: ""}}}},
	}

	issues := CheckEventBatches(batches)
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue for an empty activity label, got %d", len(issues))
	}
	if !HasCritical(issues) {
		t.Fatal("expected an empty activity label to be a critical (error-severity) issue")
	}
}

func TestCheckEventBatchesFlagsOverlongActivityLabel(t *testing.T) {
	batches := []model.EventBatch{
		{CaseID: "1", Events: []model.Event{{Type: model.NewEventType(strings.Repeat("x", MaxEventTypeLabelLength+1))}}},
	}

	issues := CheckEventBatches(batches)
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue for an overlong activity label, got %d", len(issues))
	}
}

func TestCheckEventBatchesPassesWellFormedEvents(t *testing.T) {
	batches := []model.EventBatch{
		{CaseID: "1", Events: []model.Event{{Type: model.NewEventType("submit")}}},
	}

	issues := CheckEventBatches(batches)
	if len(issues) != 0 {
		t.Fatalf("expected no issues for a well-formed event, got %v", issues)
	}
	if HasCritical(issues) {
		t.Fatal("expected no critical issues")
	}
}
