package tracein

import (
	"strings"
	"testing"
)

const sampleXES = `<?xml version="1.0" encoding="UTF-8"?>
<log>
  <trace>
    <string key="concept:name" value="case-1"/>
    <event>
      <string key="concept:name" value="submit"/>
      <date key="time:timestamp" value="2024-01-01T00:00:00.000Z"/>
    </event>
    <event>
      <string key="concept:name" value="approve"/>
      <date key="time:timestamp" value="2024-01-01T00:01:00.000Z"/>
    </event>
  </trace>
  <trace>
    <string key="concept:name" value="case-2"/>
    <event>
      <string key="concept:name" value="submit"/>
    </event>
  </trace>
</log>
`

func TestDecodeXESGroupsEventsIntoTracesInOrder(t *testing.T) {
	batches, err := DecodeXES(strings.NewReader(sampleXES))
	if err != nil {
		t.Fatalf("DecodeXES: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("expected 2 traces, got %d", len(batches))
	}
	if batches[0].CaseID != "case-1" || batches[1].CaseID != "case-2" {
		t.Fatalf("expected case order [case-1, case-2], got [%s, %s]", batches[0].CaseID, batches[1].CaseID)
	}
	if len(batches[0].Events) != 2 {
		t.Fatalf("expected case-1 to have 2 events, got %d", len(batches[0].Events))
	}
	if batches[0].Events[0].Type.Label != "submit" || batches[0].Events[1].Type.Label != "approve" {
		t.Fatalf("expected [submit, approve] in document order, got %v", batches[0].Events)
	}
	if batches[0].Events[0].Time == nil {
		t.Fatal("expected a parsed timestamp for the first event")
	}
	if len(batches[1].Events) != 1 || batches[1].Events[0].Time != nil {
		t.Fatalf("expected case-2's single event to have no timestamp, got %+v", batches[1].Events)
	}
}

func TestDecodeXESIgnoresEventsWithoutConceptName(t *testing.T) {
	data := `<log><trace><string key="concept:name" value="case-1"/>
<event><date key="time:timestamp" value="2024-01-01T00:00:00Z"/></event>
</trace></log>`

	batches, err := DecodeXES(strings.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeXES: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected 1 trace, got %d", len(batches))
	}
	if len(batches[0].Events) != 0 {
		t.Fatalf("expected no events without a concept:name label, got %d", len(batches[0].Events))
	}
}
