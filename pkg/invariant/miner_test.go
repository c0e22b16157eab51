package invariant

import (
	"testing"

	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/pkg/tracegraph"
)

func evt(label string) model.Event {
	return model.Event{Type: model.NewEventType(label)}
}

func buildChains(t *testing.T, traces [][]model.Event) *tracegraph.TraceGraph {
	t.Helper()
	g, err := tracegraph.BuildChains(traces)
	if err != nil {
		t.Fatalf("BuildChains: %v", err)
	}
	return g
}

func contains(s *Set, kind Kind, left, right string) bool {
	for _, inv := range s.Items() {
		if inv.Kind == kind && inv.Left.Label == left && inv.Right.Label == right {
			return true
		}
	}
	return false
}

func TestMineAllFindsAlwaysFollowedBy(t *testing.T) {
	traces := [][]model.Event{
		{evt("a"), evt("b"), evt("c")},
		{evt("a"), evt("b"), evt("c")},
	}
	g := buildChains(t, traces)

	mined, err := MineAll(g, MineOptions{})
	if err != nil {
		t.Fatalf("MineAll: %v", err)
	}

	if !contains(mined, AFby, "a", "b") {
		t.Errorf("expected AFby(a, b) to be mined from %v", mined.Items())
	}
	if !contains(mined, AP, "a", "c") {
		t.Errorf("expected AP(a, c) to be mined from %v", mined.Items())
	}
}

func TestMineAllFindsNeverFollowedBy(t *testing.T) {
	traces := [][]model.Event{
		{evt("a"), evt("b")},
		{evt("a"), evt("b")},
	}
	g := buildChains(t, traces)

	mined, err := MineAll(g, MineOptions{})
	if err != nil {
		t.Fatalf("MineAll: %v", err)
	}

	if !contains(mined, NFby, "b", "a") {
		t.Errorf("expected NFby(b, a) since b never precedes a, got %v", mined.Items())
	}
}

func TestFilterDropsBelowSupportThreshold(t *testing.T) {
	s := NewSet()
	s.Add(Invariant{Left: model.NewEventType("a"), Right: model.NewEventType("b"), Kind: AFby, Support: 1})
	s.Add(Invariant{Left: model.NewEventType("c"), Right: model.NewEventType("d"), Kind: AFby, Support: 5})

	filtered := Filter(s, FilterOptions{SupportCountThreshold: 2})

	if filtered.Len() != 1 {
		t.Fatalf("expected 1 invariant to survive filtering, got %d", filtered.Len())
	}
	if !contains(filtered, AFby, "c", "d") {
		t.Errorf("expected the high-support invariant to survive, got %v", filtered.Items())
	}
}

func TestFilterIgnoresOverETypeSet(t *testing.T) {
	s := NewSet()
	noisy := model.NewEventType("noisy")
	s.Add(Invariant{Left: noisy, Right: noisy, Kind: AFby})
	s.Add(Invariant{Left: model.NewEventType("a"), Right: model.NewEventType("b"), Kind: AFby})

	filtered := Filter(s, FilterOptions{IgnoreOverETypeSet: map[model.EventType]bool{noisy: true}})

	if filtered.Len() != 1 {
		t.Fatalf("expected 1 invariant after dropping noisy, got %d", filtered.Len())
	}
}
