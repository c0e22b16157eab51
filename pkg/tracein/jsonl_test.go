package tracein

import (
	"strings"
	"testing"
)

func TestDecodeJSONLGroupsRowsByCaseInOrder(t *testing.T) {
	data := `{"case_id":"1","activity":"submit","timestamp":"2024-01-01T00:00:00Z"}` + "\n" +
		`{"case_id":"2","activity":"submit"}` + "\n" +
		`{"case_id":"1","activity":"approve"}` + "\n"

	batches, err := DecodeJSONL(strings.NewReader(data), DefaultJSONLFields())
	if err != nil {
		t.Fatalf("DecodeJSONL: %v", err)
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
	if batches[0].Events[0].Time == nil {
		t.Fatal("expected a parsed timestamp on the first event")
	}
}

func TestDecodeJSONLSkipsLinesMissingRequiredFields(t *testing.T) {
	data := `{"case_id":"1"}` + "\n" + `{"activity":"submit"}` + "\n" + "not json\n"

	batches, err := DecodeJSONL(strings.NewReader(data), DefaultJSONLFields())
	if err != nil {
		t.Fatalf("DecodeJSONL: %v", err)
	}
	if len(batches) != 0 {
		t.Fatalf("expected no cases from incomplete rows, got %d", len(batches))
	}
}

func TestDecodeJSONLIgnoresNestedValues(t *testing.T) {
	data := `{"case_id":"1","activity":"submit","meta":{"a":1,"b":[1,2,3]}}` + "\n"

	batches, err := DecodeJSONL(strings.NewReader(data), DefaultJSONLFields())
	if err != nil {
		t.Fatalf("DecodeJSONL: %v", err)
	}
	if len(batches) != 1 || len(batches[0].Events) != 1 {
		t.Fatalf("expected a single event despite the nested object field, got %+v", batches)
	}
}
