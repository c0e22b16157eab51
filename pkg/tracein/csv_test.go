package tracein

import (
	"strings"
	"testing"
)

func TestDecodeCSVGroupsRowsByCaseInOrder(t *testing.T) {
	data := "case_id,activity,timestamp\n" +
		"1,submit,2024-01-01T00:00:00Z\n" +
		"2,submit,2024-01-01T00:00:01Z\n" +
		"1,approve,2024-01-01T00:01:00Z\n"

	batches, err := DecodeCSV(strings.NewReader(data), DefaultCSVColumns())
	if err != nil {
		t.Fatalf("DecodeCSV: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(batches))
	}
	if batches[0].CaseID != "1" || batches[1].CaseID != "2" {
		t.Fatalf("expected case order [1, 2], got [%s, %s]", batches[0].CaseID, batches[1].CaseID)
	}
	if len(batches[0].Events) != 2 {
		t.Fatalf("expected case 1 to have 2 events, got %d", len(batches[0].Events))
	}
	if batches[0].Events[0].Type.Label != "submit" || batches[0].Events[1].Type.Label != "approve" {
		t.Fatalf("expected [submit, approve] in row order, got %v", batches[0].Events)
	}
	if batches[0].Events[0].Time == nil {
		t.Fatal("expected a parsed timestamp")
	}
}

func TestDecodeCSVHandlesQuotedFieldsContainingDelimiter(t *testing.T) {
	data := "case_id,activity,timestamp\n" +
		"1,\"submit, initial\",\n"

	batches, err := DecodeCSV(strings.NewReader(data), DefaultCSVColumns())
	if err != nil {
		t.Fatalf("DecodeCSV: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected 1 case, got %d", len(batches))
	}
	if got := batches[0].Events[0].Type.Label; got != "submit, initial" {
		t.Fatalf("expected the comma to survive quoting, got %q", got)
	}
}

func TestDecodeCSVRejectsMissingRequiredColumn(t *testing.T) {
	data := "case_id,timestamp\n1,2024-01-01T00:00:00Z\n"

	if _, err := DecodeCSV(strings.NewReader(data), DefaultCSVColumns()); err == nil {
		t.Fatal("expected an error for a missing activity column")
	}
}
