// Package tracein decodes raw log sources into model.EventBatch traces,
// the model-level input to pkg/tracegraph.
package tracein

import (
	"bufio"
	"bytes"
	"io"
	"time"

	"github.com/logminer/logminer/internal/model"
)

var (
	xesConceptName = []byte("concept:name")
	xesTimeStamp   = []byte("time:timestamp")

	xmlTrace = []byte("trace")
	xmlEvent = []byte("event")
)

type xesState uint8

const (
	xesStateInit xesState = iota
	xesStateTrace
	xesStateEvent
)

// DecodeXES streams an IEEE XES log (eXtensible Event Stream, the standard
// process-mining event log format) into one EventBatch per trace, using a
// tag-at-a-time scanning state machine rather than a general-purpose XML
// decoder, so a multi-gigabyte log never has to be held in memory at once.
func DecodeXES(r io.Reader) ([]model.EventBatch, error) {
	bufR := bufio.NewReaderSize(r, 256*1024)

	var batches []model.EventBatch
	state := xesStateInit
	var current *model.EventBatch
	var pendingLabel string
	var pendingTime *model.Time

	for {
		line, err := bufR.ReadBytes('>')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if len(line) == 0 && err == io.EOF {
			break
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if err == io.EOF {
				break
			}
			continue
		}

		switch {
		case isOpenTag(line, xmlTrace):
			state = xesStateTrace
			batches = append(batches, model.EventBatch{})
			current = &batches[len(batches)-1]

		case isCloseTag(line, xmlTrace):
			state = xesStateInit
			current = nil

		case isOpenTag(line, xmlEvent):
			state = xesStateEvent
			pendingLabel = ""
			pendingTime = nil

		case isCloseTag(line, xmlEvent):
			if current != nil && pendingLabel != "" {
				current.Events = append(current.Events, model.Event{
					Type: model.NewEventType(pendingLabel),
					Time: pendingTime,
				})
			}
			state = xesStateTrace

		case state == xesStateTrace && isAttributeTag(line):
			key, value := extractAttribute(line)
			if bytes.Equal(key, xesConceptName) {
				if current != nil {
					current.CaseID = string(value)
				}
			}

		case state == xesStateEvent && isAttributeTag(line):
			key, value := extractAttribute(line)
			switch {
			case bytes.Equal(key, xesConceptName):
				pendingLabel = string(value)
			case bytes.Equal(key, xesTimeStamp):
				if t, ok := parseXESTime(string(value)); ok {
					pendingTime = &t
				}
			}
		}

		if err == io.EOF {
			break
		}
	}
	return batches, nil
}

func isOpenTag(line, name []byte) bool {
	return len(line) > 1 && line[0] == '<' && bytes.HasPrefix(line[1:], name)
}

func isCloseTag(line, name []byte) bool {
	return len(line) > 2 && line[0] == '<' && line[1] == '/' && bytes.HasPrefix(line[2:], name)
}

func isAttributeTag(line []byte) bool {
	return len(line) > 1 && line[0] == '<' &&
		(bytes.HasPrefix(line[1:], []byte("string")) ||
			bytes.HasPrefix(line[1:], []byte("date")) ||
			bytes.HasPrefix(line[1:], []byte("int")) ||
			bytes.HasPrefix(line[1:], []byte("float")))
}

// extractAttribute pulls key="..." value="..." out of a self-contained XES
// attribute tag, e.g. <string key="concept:name" value="submit"/>.
func extractAttribute(line []byte) (key, value []byte) {
	key = quotedAfter(line, []byte("key="))
	value = quotedAfter(line, []byte("value="))
	return key, value
}

func quotedAfter(line, marker []byte) []byte {
	i := bytes.Index(line, marker)
	if i < 0 {
		return nil
	}
	rest := line[i+len(marker):]
	if len(rest) == 0 || rest[0] != '"' {
		return nil
	}
	rest = rest[1:]
	j := bytes.IndexByte(rest, '"')
	if j < 0 {
		return nil
	}
	return rest[:j]
}

func parseXESTime(v string) (model.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		t, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return 0, false
		}
	}
	return model.Time(float64(t.UnixNano()) / 1e9), true
}
