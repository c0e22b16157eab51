package tracein

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"time"

	"github.com/logminer/logminer/internal/model"
)

// JSONLFields names the JSON object keys DecodeJSONL looks for in each line.
type JSONLFields struct {
	CaseID    string
	Activity  string
	Timestamp string
}

// DefaultJSONLFields is the conventional case_id/activity/timestamp layout.
func DefaultJSONLFields() JSONLFields {
	return JSONLFields{CaseID: "case_id", Activity: "activity", Timestamp: "timestamp"}
}

// DecodeJSONL decodes a newline-delimited-JSON log, one flat object per
// line, into per-case EventBatches in row order. Lines are scanned
// key-by-key rather than passed through encoding/json, matching the
// byte-level approach the rest of the ingest path uses for XES and CSV.
func DecodeJSONL(r io.Reader, fields JSONLFields) ([]model.EventBatch, error) {
	reader := bufio.NewReaderSize(r, 256*1024)

	order := make([]string, 0)
	byCase := make(map[string]*model.EventBatch)

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] != '{' {
			if err == io.EOF {
				break
			}
			continue
		}

		kv := scanJSONObject(line)
		caseID := kv[fields.CaseID]
		activity := kv[fields.Activity]
		if caseID == "" || activity == "" {
			if err == io.EOF {
				break
			}
			continue
		}

		batch, ok := byCase[caseID]
		if !ok {
			order = append(order, caseID)
			byCase[caseID] = &model.EventBatch{CaseID: caseID}
			batch = byCase[caseID]
		}

		evt := model.Event{Type: model.NewEventType(activity)}
		if ts, ok := kv[fields.Timestamp]; ok && ts != "" {
			if t, ok := parseJSONLTime(ts); ok {
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

// scanJSONObject extracts the string-valued top-level keys of a flat JSON
// object. Numeric and boolean values are captured as their literal text.
// Nested objects/arrays are stepped over and kept as their raw text.
func scanJSONObject(line []byte) map[string]string {
	kv := make(map[string]string)

	i := 0
	n := len(line)
	skipWS := func() {
		for i < n && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
	}
	readString := func() (string, bool) {
		if i >= n || line[i] != '"' {
			return "", false
		}
		i++
		start := i
		var buf []byte
		for i < n && line[i] != '"' {
			if line[i] == '\\' && i+1 < n {
				buf = append(buf, line[start:i]...)
				i++
				buf = append(buf, line[i])
				i++
				start = i
				continue
			}
			i++
		}
		buf = append(buf, line[start:i]...)
		if i < n {
			i++ // closing quote
		}
		return string(buf), true
	}

	skipWS()
	if i >= n || line[i] != '{' {
		return kv
	}
	i++

	for i < n {
		skipWS()
		if i < n && line[i] == '}' {
			break
		}
		key, ok := readString()
		if !ok {
			break
		}
		skipWS()
		if i >= n || line[i] != ':' {
			break
		}
		i++
		skipWS()

		if i < n && line[i] == '"' {
			val, _ := readString()
			kv[key] = val
		} else {
			start := i
			depth := 0
			for i < n {
				c := line[i]
				if c == '{' || c == '[' {
					depth++
				} else if c == '}' || c == ']' {
					if depth == 0 {
						break
					}
					depth--
				} else if c == ',' && depth == 0 {
					break
				}
				i++
			}
			kv[key] = string(bytes.TrimSpace(line[start:i]))
		}

		skipWS()
		if i < n && line[i] == ',' {
			i++
			continue
		}
		break
	}
	return kv
}

func parseJSONLTime(v string) (model.Time, bool) {
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
