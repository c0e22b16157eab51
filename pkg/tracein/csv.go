package tracein

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/logminer/logminer/internal/model"
)

// CSVColumns names the columns DecodeCSV looks for in the header row.
// The Activity and CaseID columns are required; Timestamp is optional.
type CSVColumns struct {
	CaseID    string
	Activity  string
	Timestamp string
	Delimiter byte
}

// DefaultCSVColumns is the conventional case_id/activity/timestamp layout.
func DefaultCSVColumns() CSVColumns {
	return CSVColumns{CaseID: "case_id", Activity: "activity", Timestamp: "timestamp", Delimiter: ','}
}

// DecodeCSV decodes a header-plus-rows CSV log into per-case EventBatches,
// preserving row order within each case. It uses a field-at-a-time scanner
// rather than encoding/csv so embedded delimiters inside quoted fields are
// handled the same way the rest of the ingest path handles XES attributes:
// byte scanning, no reflection.
func DecodeCSV(r io.Reader, cols CSVColumns) ([]model.EventBatch, error) {
	if cols.Delimiter == 0 {
		cols.Delimiter = ','
	}
	reader := bufio.NewReaderSize(r, 256*1024)

	headerLine, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	header := scanCSVLine(bytes.TrimRight(headerLine, "\r\n"), cols.Delimiter)
	if len(header) == 0 {
		return nil, fmt.Errorf("tracein: empty CSV header")
	}

	colIndex := make(map[string]int, len(header))
	for i, h := range header {
		colIndex[string(h)] = i
	}

	caseIdx, ok := colIndex[cols.CaseID]
	if !ok {
		return nil, fmt.Errorf("tracein: CSV missing case id column %q", cols.CaseID)
	}
	actIdx, ok := colIndex[cols.Activity]
	if !ok {
		return nil, fmt.Errorf("tracein: CSV missing activity column %q", cols.Activity)
	}
	tsIdx, hasTS := colIndex[cols.Timestamp]

	order := make([]string, 0)
	byCase := make(map[string]*model.EventBatch)

	row := 1
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			if err == io.EOF {
				break
			}
			continue
		}
		row++

		fields := scanCSVLine(line, cols.Delimiter)
		if len(fields) <= caseIdx || len(fields) <= actIdx {
			if err == io.EOF {
				break
			}
			continue
		}

		caseID := string(fields[caseIdx])
		batch, ok := byCase[caseID]
		if !ok {
			order = append(order, caseID)
			byCase[caseID] = &model.EventBatch{CaseID: caseID}
			batch = byCase[caseID]
		}

		evt := model.Event{Type: model.NewEventType(string(fields[actIdx]))}
		if hasTS && tsIdx < len(fields) {
			if t, ok := parseCSVTime(string(fields[tsIdx])); ok {
				evt.Time = &t
			}
		}
		batch.Events = append(batch.Events, evt)

		if err == io.EOF {
			break
		}
	}

	out := make([]model.EventBatch, 0, len(order))
	for _, caseID := range order {
		out = append(out, *byCase[caseID])
	}
	return out, nil
}

// scanCSVLine splits one CSV line into fields, honoring double-quoted
// fields that may contain the delimiter.
func scanCSVLine(line []byte, delim byte) [][]byte {
	var fields [][]byte
	var field []byte
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				field = append(field, '"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == delim && !inQuotes:
			fields = append(fields, field)
			field = nil
		default:
			field = append(field, c)
		}
	}
	fields = append(fields, field)
	return fields
}

func parseCSVTime(v string) (model.Time, bool) {
	if v == "" {
		return 0, false
	}
	if unixSeconds, err := strconv.ParseFloat(v, 64); err == nil {
		return model.Time(unixSeconds), true
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return model.Time(float64(t.UnixNano()) / 1e9), true
		}
	}
	return 0, false
}
