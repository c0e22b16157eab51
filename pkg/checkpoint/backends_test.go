package checkpoint

import (
	"context"
	"os"
	"testing"
)

func TestLocalBackendRoundTripsThroughManagerWithBackend(t *testing.T) {
	local, err := NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalBackend: %v", err)
	}

	mgr, err := NewManagerWithBackend(t.TempDir(), local)
	if err != nil {
		t.Fatalf("NewManagerWithBackend: %v", err)
	}

	ctx := context.Background()
	cp, err := mgr.CreateWithBackend(ctx, "run-1", "/var/logs/input.xes")
	if err != nil {
		t.Fatalf("CreateWithBackend: %v", err)
	}
	cp.Update([]PairState{{A: 1, B: 2}}, nil, 0)
	if err := mgr.SaveToBackend(ctx, cp); err != nil {
		t.Fatalf("SaveToBackend: %v", err)
	}

	loaded, err := mgr.LoadFromBackend(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadFromBackend: %v", err)
	}
	if loaded.InputPath != "/var/logs/input.xes" {
		t.Fatalf("expected the input path to round-trip, got %q", loaded.InputPath)
	}

	found, err := mgr.Backend().FindByInput(ctx, "/var/logs/input.xes")
	if err != nil {
		t.Fatalf("FindByInput: %v", err)
	}
	if found.ID != "run-1" {
		t.Fatalf("expected to find run-1, got %s", found.ID)
	}
}

func TestSaveMirrorsEveryUpdateNotJustCreation(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalBackend: %v", err)
	}
	mgr, err := NewManagerWithBackend(t.TempDir(), backend)
	if err != nil {
		t.Fatalf("NewManagerWithBackend: %v", err)
	}

	ctx := context.Background()
	cp, err := mgr.CreateWithBackend(ctx, "run-1", "/var/logs/input.xes")
	if err != nil {
		t.Fatalf("CreateWithBackend: %v", err)
	}

	// A coarsening run only ever calls cp.Save(); it never calls
	// SaveToBackend directly. MirrorTo (wired by CreateWithBackend) is what
	// makes that plain Save keep the backend's copy current.
	cp.Update([]PairState{{A: 1, B: 2}}, nil, 3)
	if err := cp.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	mirrored, err := backend.Load(ctx, "run-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if mirrored.Merges != 3 {
		t.Fatalf("expected the mirrored checkpoint to reflect the latest merge count, got %d", mirrored.Merges)
	}
}

func TestResumeRewiresLocalPathForABackendLoadedCheckpoint(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalBackend: %v", err)
	}
	ctx := context.Background()
	seed := &Checkpoint{ID: "run-2", InputPath: "/var/logs/input.xes", Phase: "running"}
	seed.path = backend.mgr.dir + "/run-2.checkpoint"
	if err := backend.Save(ctx, seed); err != nil {
		t.Fatalf("seed Save: %v", err)
	}

	local, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	loaded, err := backend.FindByInput(ctx, "/var/logs/input.xes")
	if err != nil {
		t.Fatalf("FindByInput: %v", err)
	}
	resumed := local.Resume(loaded)
	resumed.MirrorTo(backend)

	resumed.Update(nil, nil, 1)
	if err := resumed.Save(); err != nil {
		t.Fatalf("Save after Resume: %v", err)
	}

	if _, err := os.Stat(resumed.path); err != nil {
		t.Fatalf("expected Resume to give the checkpoint a local path that Save can write to: %v", err)
	}
}
