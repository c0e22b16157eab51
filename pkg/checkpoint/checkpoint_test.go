package checkpoint

import (
	"testing"
	"time"

	"github.com/logminer/logminer/pkg/partgraph"
)

func TestCreateSavesAResumableCheckpointToDisk(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	cp := m.Create("run-1", "/var/logs/input.xes")
	cp.Update([]PairState{{A: 1, B: 2}}, nil, 0)
	if err := cp.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := m.Load("run-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.InputPath != "/var/logs/input.xes" {
		t.Fatalf("expected input path to round-trip, got %q", loaded.InputPath)
	}
	if len(loaded.Worklist) != 1 || loaded.Worklist[0].A != partgraph.PartitionID(1) {
		t.Fatalf("expected the worklist to round-trip, got %v", loaded.Worklist)
	}
	if !loaded.ShouldResume() {
		t.Fatal("expected a non-empty, non-complete checkpoint to be resumable")
	}
}

func TestFindLocatesAnIncompleteCheckpointForInputPath(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	cp := m.Create("run-1", "/var/logs/input.xes")
	cp.Update([]PairState{{A: 1, B: 2}}, nil, 0)
	cp.Save()

	found, err := m.Find("/var/logs/input.xes")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if found.ID != "run-1" {
		t.Fatalf("expected to find run-1, got %s", found.ID)
	}

	if _, err := m.Find("/var/logs/other.xes"); err == nil {
		t.Fatal("expected no checkpoint for an unrelated input path")
	}
}

func TestSetPhaseCompleteMarksACheckpointNonResumable(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	cp := m.Create("run-1", "/var/logs/input.xes")
	cp.Update([]PairState{{A: 1, B: 2}}, nil, 0)
	cp.SetPhase("complete")

	if cp.ShouldResume() {
		t.Fatal("expected a completed checkpoint to not be resumable")
	}
	if cp.CompletedAt == nil {
		t.Fatal("expected CompletedAt to be set")
	}
	if cp.Duration() < 0 {
		t.Fatal("expected a non-negative duration")
	}
}

func TestDeleteRemovesACheckpointFromDisk(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	m.Create("run-1", "/var/logs/input.xes")
	if err := m.Delete("run-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Load("run-1"); err == nil {
		t.Fatal("expected Load to fail after Delete")
	}
}

func TestCleanupRemovesOnlyCheckpointsOlderThanMaxAge(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	m.Create("run-1", "/var/logs/input.xes")

	removed, err := m.Cleanup(24 * time.Hour)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected a freshly created checkpoint to survive a 24h cutoff, removed %d", removed)
	}
}
