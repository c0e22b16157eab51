package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/pkg/invariant"
	"github.com/logminer/logminer/pkg/partgraph"
	"github.com/logminer/logminer/pkg/tracegraph"
)

func evt(label string) model.Event {
	return model.Event{Type: model.NewEventType(label)}
}

func TestPrintSummaryRendersCounts(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, Summary{Partitions: 5, Mined: 3, Filtered: 2, Splits: 1, Retired: 1, Merges: 2})

	out := buf.String()
	if !strings.Contains(out, "MINING COMPLETE") {
		t.Fatal("expected a completion header")
	}
	if !strings.Contains(out, "2") {
		t.Fatal("expected the merge count to appear")
	}
}

func TestPrintSummaryOmitsZeroRetiredAndMerges(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, Summary{Partitions: 5, Mined: 3, Filtered: 3})

	out := buf.String()
	if strings.Contains(out, "Unsatisfiable") {
		t.Fatal("expected no Unsatisfiable line when Retired is zero")
	}
	if strings.Contains(out, "Merges") {
		t.Fatal("expected no Merges line when Merges is zero")
	}
}

func TestPrintInvariantsWritesEachInvariant(t *testing.T) {
	set := invariant.NewSet()
	set.Add(invariant.Invariant{
		Left:  model.NewEventType("a"),
		Right: model.NewEventType("b"),
		Kind:  invariant.AFby,
	})

	var buf bytes.Buffer
	PrintInvariants(&buf, set)

	if !strings.Contains(buf.String(), "INVARIANTS") {
		t.Fatal("expected a section header")
	}
}

func TestWriteWorkbookProducesNonEmptyOutput(t *testing.T) {
	tg, err := tracegraph.BuildChains([][]model.Event{
		{evt("a"), evt("b")},
	})
	if err != nil {
		t.Fatalf("BuildChains: %v", err)
	}
	pg := partgraph.InitializeFrom(tg, invariant.NewSet())
	mined, err := invariant.MineAll(tg, invariant.MineOptions{})
	if err != nil {
		t.Fatalf("MineAll: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, pg, mined); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected a non-empty xlsx payload")
	}
}
