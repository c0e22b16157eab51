package validation

import (
	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/pkg/validation/quality"
)

// eventRowValidator checks each decoded event against the constraints an
// event-type label must satisfy before it reaches the trace graph.
func eventRowValidator() *quality.Validator {
	return quality.NewValidator().
		AddRule(quality.NewNotNullRule("activity")).
		AddRule(quality.NewLengthRule("activity").Max(MaxEventTypeLabelLength))
}

// EventQualityIssue is one row-level quality violation found in a decoded
// batch, identified by its case and position within that case.
type EventQualityIssue struct {
	CaseID   string
	Index    int
	Rule     string
	Message  string
	Severity quality.Severity
}

// CheckEventBatches runs the event-tuple quality rules (non-null,
// bounded-length activity labels) over every decoded event and returns one
// issue per violation, in batch/event order. It never mutates batches: the
// caller decides whether a violation is fatal.
func CheckEventBatches(batches []model.EventBatch) []EventQualityIssue {
	v := eventRowValidator()

	var issues []EventQualityIssue
	for _, b := range batches {
		for i, e := range b.Events {
			row := map[string]interface{}{"activity": e.Type.Label}
			for _, r := range v.ValidateRow(row) {
				issues = append(issues, EventQualityIssue{
					CaseID:   b.CaseID,
					Index:    i,
					Rule:     r.RuleName,
					Message:  r.Message,
					Severity: r.Severity,
				})
			}
		}
	}
	return issues
}

// HasCritical reports whether any issue is severe enough that the batch
// should not be mined as-is.
func HasCritical(issues []EventQualityIssue) bool {
	for _, iss := range issues {
		if iss.Severity >= quality.SeverityError {
			return true
		}
	}
	return false
}
