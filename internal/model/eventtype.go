// Package model defines the core value types event logs are mined over:
// event types, events, and the vector clocks used to order them.
package model

import "fmt"

// EventType is an equatable, hashable label identifying a class of events.
// A plain type carries only Label; a process-tagged type (for distributed
// logs) also carries Process.
type EventType struct {
	Label   string
	Process string
}

// NewEventType returns a plain EventType.
func NewEventType(label string) EventType {
	return EventType{Label: label}
}

// NewProcessEventType returns a process-tagged EventType for distributed logs.
func NewProcessEventType(process, label string) EventType {
	return EventType{Process: process, Label: label}
}

// Initial and Terminal are the two reserved sentinel event types injected at
// the boundary of every trace. They are never mined over directly.
var (
	Initial  = EventType{Label: "INITIAL"}
	Terminal = EventType{Label: "TERMINAL"}
)

// String renders the event type for diagnostics and invariant export.
func (t EventType) String() string {
	if t.Process != "" {
		return fmt.Sprintf("%s:%s", t.Process, t.Label)
	}
	return t.Label
}

// IsInitial reports whether t is the INITIAL sentinel.
func (t EventType) IsInitial() bool { return t == Initial }

// IsTerminal reports whether t is the TERMINAL sentinel.
func (t EventType) IsTerminal() bool { return t == Terminal }

// IsSentinel reports whether t is either reserved sentinel.
func (t EventType) IsSentinel() bool { return t.IsInitial() || t.IsTerminal() }

// Less provides a stable total order over event types, used for deterministic
// output ordering (invariant files, partition iteration) per the ordering
// requirements on collections keyed by event type.
func (t EventType) Less(o EventType) bool {
	if t.Process != o.Process {
		return t.Process < o.Process
	}
	return t.Label < o.Label
}
