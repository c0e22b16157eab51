package tracein

import (
	"testing"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
)

func buildSampleRecord(t *testing.T) arrow.Record {
	t.Helper()
	pool := memory.NewGoAllocator()
	b := array.NewRecordBuilder(pool, ArrowSchema)
	defer b.Release()

	caseB := b.Field(0).(*array.StringBuilder)
	actB := b.Field(1).(*array.StringBuilder)
	tsB := b.Field(2).(*array.Float64Builder)

	caseB.AppendValues([]string{"1", "2", "1"}, nil)
	actB.AppendValues([]string{"submit", "submit", "approve"}, nil)
	tsB.Append(1.0)
	tsB.AppendNull()
	tsB.Append(2.0)

	return b.NewRecord()
}

func TestFromArrowRecordGroupsRowsByCaseInOrder(t *testing.T) {
	rec := buildSampleRecord(t)
	defer rec.Release()

	batches, err := FromArrowRecord(rec)
	if err != nil {
		t.Fatalf("FromArrowRecord: %v", err)
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
		t.Fatal("expected the first event's timestamp to be set")
	}
	if batches[1].Events[0].Time != nil {
		t.Fatal("expected case 2's null timestamp to leave Time nil")
	}
}

func TestFromArrowRecordRejectsTooFewColumns(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "case_id", Type: arrow.BinaryTypes.String},
	}, nil)

	pool := memory.NewGoAllocator()
	b := array.NewRecordBuilder(pool, schema)
	defer b.Release()
	b.Field(0).(*array.StringBuilder).Append("1")
	rec := b.NewRecord()
	defer rec.Release()

	if _, err := FromArrowRecord(rec); err == nil {
		t.Fatal("expected an error for a record with fewer than 2 columns")
	}
}
