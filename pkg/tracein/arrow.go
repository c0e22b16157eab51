package tracein

import (
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"

	"github.com/logminer/logminer/internal/model"
)

// ArrowSchema is the expected column layout of a bulk-ingested Arrow
// record: case_id (string), activity (string), timestamp_unix_seconds
// (float64, nullable).
var ArrowSchema = arrow.NewSchema([]arrow.Field{
	{Name: "case_id", Type: arrow.BinaryTypes.String},
	{Name: "activity", Type: arrow.BinaryTypes.String},
	{Name: "timestamp_unix_seconds", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
}, nil)

// FromArrowRecord converts one Arrow record batch, laid out per
// ArrowSchema, into per-case EventBatches in row order. It is the ingest
// path for sources that already produce Arrow (bulk exports), avoiding a
// row-by-row text decode.
func FromArrowRecord(rec arrow.Record) ([]model.EventBatch, error) {
	if rec.NumCols() < 2 {
		return nil, fmt.Errorf("tracein: arrow record needs at least case_id and activity columns, got %d", rec.NumCols())
	}
	caseCol, ok := rec.Column(0).(*array.String)
	if !ok {
		return nil, fmt.Errorf("tracein: arrow column 0 (case_id) must be a string array")
	}
	activityCol, ok := rec.Column(1).(*array.String)
	if !ok {
		return nil, fmt.Errorf("tracein: arrow column 1 (activity) must be a string array")
	}
	var timeCol *array.Float64
	if rec.NumCols() >= 3 {
		timeCol, _ = rec.Column(2).(*array.Float64)
	}

	order := make([]string, 0)
	byCase := make(map[string]*model.EventBatch)

	n := int(rec.NumRows())
	for i := 0; i < n; i++ {
		caseID := caseCol.Value(i)
		batch, ok := byCase[caseID]
		if !ok {
			order = append(order, caseID)
			byCase[caseID] = &model.EventBatch{CaseID: caseID}
			batch = byCase[caseID]
		}

		evt := model.Event{Type: model.NewEventType(activityCol.Value(i))}
		if timeCol != nil && !timeCol.IsNull(i) {
			t := model.Time(timeCol.Value(i))
			evt.Time = &t
		}
		batch.Events = append(batch.Events, evt)
	}

	out := make([]model.EventBatch, 0, len(order))
	for _, caseID := range order {
		out = append(out, *byCase[caseID])
	}
	return out, nil
}
