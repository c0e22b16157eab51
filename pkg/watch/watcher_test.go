package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchTriggersOnChangeWhenFileIsRewritten(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.xes")
	if err := os.WriteFile(path, []byte("v1"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.debounce = 10 * time.Millisecond

	type change struct {
		path string
		kind ChangeKind
	}
	changed := make(chan change, 1)
	w.OnChange = func(p string, kind ChangeKind) error {
		changed <- change{p, kind}
		return nil
	}

	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("v2, a longer payload"), 0644); err != nil {
		t.Fatalf("WriteFile (rewrite): %v", err)
	}

	select {
	case got := <-changed:
		abs, _ := filepath.Abs(path)
		if got.path != abs {
			t.Fatalf("expected OnChange with %q, got %q", abs, got.path)
		}
		if got.kind != Appended {
			t.Fatalf("expected the longer payload to register as Appended, got %v", got.kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnChange")
	}
}

func TestWatchReportsRotatedWhenTheLogShrinks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.xes")
	if err := os.WriteFile(path, []byte("a long first run of trace data"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.debounce = 10 * time.Millisecond

	changed := make(chan ChangeKind, 1)
	w.OnChange = func(p string, kind ChangeKind) error {
		changed <- kind
		return nil
	}

	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("short"), 0644); err != nil {
		t.Fatalf("WriteFile (truncate): %v", err)
	}

	select {
	case kind := <-changed:
		if kind != Rotated {
			t.Fatalf("expected a shrunk file to register as Rotated, got %v", kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnChange")
	}
}

func TestChangeKindString(t *testing.T) {
	if Appended.String() != "appended" {
		t.Fatalf("expected Appended.String() == %q, got %q", "appended", Appended.String())
	}
	if Rotated.String() != "rotated" {
		t.Fatalf("expected Rotated.String() == %q, got %q", "rotated", Rotated.String())
	}
}
