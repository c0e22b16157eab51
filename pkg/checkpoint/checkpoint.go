// Package checkpoint persists snapshots of the coarsening engine's merge
// worklist, tried set and merge count while a coarsen pass runs. The
// coarsening engine only writes these snapshots; it does not restore its
// worklist from them.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/logminer/logminer/pkg/partgraph"
)

// PairState is one worklist entry, serialized as a candidate partition pair.
type PairState struct {
	A partgraph.PartitionID `json:"a"`
	B partgraph.PartitionID `json:"b"`
}

// Checkpoint tracks a coarsening run's progress for resume.
type Checkpoint struct {
	ID        string `json:"id"`
	InputPath string `json:"input_path"`

	Worklist []PairState `json:"worklist"`
	Tried    []PairState `json:"tried"`
	Merges   int         `json:"merges"`

	Phase       string     `json:"phase"` // running, complete
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	path   string
	mu     sync.Mutex
	mirror Backend // optional: every Save also pushes here, best-effort
}

// Manager persists checkpoints to local disk.
type Manager struct {
	dir    string
	mu     sync.RWMutex
	active map[string]*Checkpoint
}

// NewManager creates a checkpoint manager rooted at checkpointDir.
func NewManager(checkpointDir string) (*Manager, error) {
	if err := os.MkdirAll(checkpointDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &Manager{dir: checkpointDir, active: make(map[string]*Checkpoint)}, nil
}

// Create starts a new checkpoint for a coarsening run.
func (m *Manager) Create(id, inputPath string) *Checkpoint {
	cp := &Checkpoint{
		ID:        id,
		InputPath: inputPath,
		Phase:     "running",
		StartedAt: time.Now(),
		UpdatedAt: time.Now(),
		path:      filepath.Join(m.dir, id+".checkpoint"),
	}

	m.mu.Lock()
	m.active[id] = cp
	m.mu.Unlock()

	cp.Save()
	return cp
}

// Load reads a checkpoint from disk.
func (m *Manager) Load(id string) (*Checkpoint, error) {
	path := filepath.Join(m.dir, id+".checkpoint")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, err
	}
	cp.path = path

	m.mu.Lock()
	m.active[id] = &cp
	m.mu.Unlock()

	return &cp, nil
}

// Find locates an incomplete checkpoint for inputPath, if any.
func (m *Manager) Find(inputPath string) (*Checkpoint, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if filepath.Ext(entry.Name()) != ".checkpoint" {
			continue
		}

		path := filepath.Join(m.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var cp Checkpoint
		if err := json.Unmarshal(data, &cp); err != nil {
			continue
		}

		if cp.InputPath == inputPath && cp.Phase != "complete" {
			cp.path = path
			return &cp, nil
		}
	}

	return nil, os.ErrNotExist
}

// Delete removes a checkpoint.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()

	return os.Remove(filepath.Join(m.dir, id+".checkpoint"))
}

// ListIncomplete returns all incomplete checkpoints.
func (m *Manager) ListIncomplete() ([]*Checkpoint, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, err
	}

	var checkpoints []*Checkpoint
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) != ".checkpoint" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			continue
		}

		var cp Checkpoint
		if err := json.Unmarshal(data, &cp); err != nil {
			continue
		}

		if cp.Phase != "complete" {
			cp.path = filepath.Join(m.dir, entry.Name())
			checkpoints = append(checkpoints, &cp)
		}
	}

	return checkpoints, nil
}

// Cleanup removes every checkpoint file, whatever its phase, last modified
// more than maxAge ago, and returns how many it removed.
func (m *Manager) Cleanup(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, entry := range entries {
		if filepath.Ext(entry.Name()) != ".checkpoint" {
			continue
		}

		path := filepath.Join(m.dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
	}

	return removed, nil
}

// --- Checkpoint Methods ---

// Update replaces the worklist/tried/merge-count state.
func (c *Checkpoint) Update(worklist, tried []PairState, merges int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Worklist = worklist
	c.Tried = tried
	c.Merges = merges
	c.UpdatedAt = time.Now()
}

// SetPhase updates the phase.
func (c *Checkpoint) SetPhase(phase string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Phase = phase
	c.UpdatedAt = time.Now()

	if phase == "complete" {
		now := time.Now()
		c.CompletedAt = &now
	}
}

// Resume adopts a checkpoint that was loaded from somewhere other than this
// manager's own directory (typically a mirrored backend's FindByInput) so
// that its future Saves land on local disk here, not nowhere.
func (m *Manager) Resume(cp *Checkpoint) *Checkpoint {
	cp.mu.Lock()
	cp.path = filepath.Join(m.dir, cp.ID+".checkpoint")
	cp.mu.Unlock()

	m.mu.Lock()
	m.active[cp.ID] = cp
	m.mu.Unlock()
	return cp
}

// MirrorTo arranges for every future Save to also push the checkpoint to
// backend, best-effort, alongside the local disk write. The coarsening loop
// only ever calls Save, so this is what makes --checkpoint-redis-addr track
// merge-by-merge progress rather than just the checkpoint's creation.
func (c *Checkpoint) MirrorTo(backend Backend) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mirror = backend
}

// Save persists the checkpoint to disk, atomically via a temp-file rename,
// then mirrors it to the configured backend if one was set via MirrorTo.
func (c *Checkpoint) Save() error {
	c.mu.Lock()
	path, mirror := c.path, c.mirror
	c.mu.Unlock()

	if path == "" {
		return nil
	}

	c.mu.Lock()
	data, err := json.MarshalIndent(c, "", "  ")
	c.mu.Unlock()
	if err != nil {
		return err
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tempPath, path); err != nil {
		return err
	}

	if mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mirror.Save(ctx, c) // the local write already succeeded; the mirror is best-effort
	}
	return nil
}

// ShouldResume returns true if this checkpoint can be resumed.
func (c *Checkpoint) ShouldResume() bool {
	return c.Phase != "complete" && len(c.Worklist) > 0
}

// Duration returns how long the job has been running.
func (c *Checkpoint) Duration() time.Duration {
	if c.CompletedAt != nil {
		return c.CompletedAt.Sub(c.StartedAt)
	}
	return time.Since(c.StartedAt)
}

// --- Auto-Save Goroutine ---

// StartAutoSave starts automatic checkpoint saving on a timer, returning a
// stop function that saves once more and halts the ticker.
func (c *Checkpoint) StartAutoSave(interval time.Duration) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				c.Save()
				return
			case <-ticker.C:
				c.Save()
			}
		}
	}()
	return func() { close(done) }
}
