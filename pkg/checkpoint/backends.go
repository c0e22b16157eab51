package checkpoint

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Backend is a checkpoint store a coarsening run's progress can be mirrored
// to, alongside the local on-disk copy Manager always keeps.
type Backend interface {
	// Save persists a checkpoint to the backend.
	Save(ctx context.Context, cp *Checkpoint) error

	// Load retrieves a checkpoint by ID.
	Load(ctx context.Context, id string) (*Checkpoint, error)

	// Delete removes a checkpoint.
	Delete(ctx context.Context, id string) error

	// List returns all checkpoints matching the prefix.
	List(ctx context.Context, prefix string) ([]*Checkpoint, error)

	// ListIncomplete returns all checkpoints that haven't completed.
	ListIncomplete(ctx context.Context) ([]*Checkpoint, error)

	// FindByInput finds an incomplete checkpoint for the given input path.
	FindByInput(ctx context.Context, inputPath string) (*Checkpoint, error)

	// Name returns the backend name for logging/debugging.
	Name() string
}

// LocalBackend wraps the existing file-based Manager as a Backend.
type LocalBackend struct {
	mgr *Manager
}

// NewLocalBackend creates a backend using local filesystem.
func NewLocalBackend(dir string) (*LocalBackend, error) {
	mgr, err := NewManager(dir)
	if err != nil {
		return nil, err
	}
	return &LocalBackend{mgr: mgr}, nil
}

// Save persists a checkpoint to local filesystem.
func (b *LocalBackend) Save(ctx context.Context, cp *Checkpoint) error {
	cp.mu.Lock()
	data, err := json.MarshalIndent(cp, "", "  ")
	cp.mu.Unlock()
	if err != nil {
		return err
	}
	path := filepath.Join(b.mgr.dir, cp.ID+".checkpoint")
	if err := os.WriteFile(path+".tmp", data, 0644); err != nil {
		return err
	}
	return os.Rename(path+".tmp", path)
}

// Load retrieves a checkpoint from local filesystem.
func (b *LocalBackend) Load(ctx context.Context, id string) (*Checkpoint, error) {
	return b.mgr.Load(id)
}

// Delete removes a checkpoint from local filesystem.
func (b *LocalBackend) Delete(ctx context.Context, id string) error {
	return b.mgr.Delete(id)
}

// List returns all checkpoints with the given prefix.
func (b *LocalBackend) List(ctx context.Context, prefix string) ([]*Checkpoint, error) {
	entries, err := os.ReadDir(b.mgr.dir)
	if err != nil {
		return nil, err
	}
	var out []*Checkpoint
	for _, entry := range entries {
		id := strings.TrimSuffix(entry.Name(), ".checkpoint")
		if id == entry.Name() || !strings.HasPrefix(id, prefix) {
			continue
		}
		if cp, err := b.mgr.Load(id); err == nil {
			out = append(out, cp)
		}
	}
	return out, nil
}

// ListIncomplete returns all incomplete checkpoints.
func (b *LocalBackend) ListIncomplete(ctx context.Context) ([]*Checkpoint, error) {
	return b.mgr.ListIncomplete()
}

// FindByInput finds an incomplete checkpoint for the input path.
func (b *LocalBackend) FindByInput(ctx context.Context, inputPath string) (*Checkpoint, error) {
	return b.mgr.Find(inputPath)
}

// Name returns "local".
func (b *LocalBackend) Name() string {
	return "local"
}

// ManagerWithBackend is a Manager whose checkpoints also mirror to a second
// backend (Redis, typically) on every save, not just at creation.
type ManagerWithBackend struct {
	*Manager
	backend Backend
}

// NewManagerWithBackend creates a manager with a custom backend.
func NewManagerWithBackend(localDir string, backend Backend) (*ManagerWithBackend, error) {
	mgr, err := NewManager(localDir)
	if err != nil {
		return nil, err
	}
	return &ManagerWithBackend{
		Manager: mgr,
		backend: backend,
	}, nil
}

// CreateWithBackend creates a checkpoint, wires it to mirror every future
// Save to the backend, and pushes its initial state there synchronously so
// the caller learns about a dead backend immediately rather than on the
// first merge.
func (m *ManagerWithBackend) CreateWithBackend(ctx context.Context, id, inputPath string) (*Checkpoint, error) {
	cp := m.Create(id, inputPath)
	cp.MirrorTo(m.backend)
	if err := m.backend.Save(ctx, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// LoadFromBackend loads a checkpoint from the backend.
func (m *ManagerWithBackend) LoadFromBackend(ctx context.Context, id string) (*Checkpoint, error) {
	return m.backend.Load(ctx, id)
}

// SaveToBackend saves a checkpoint to the backend.
func (m *ManagerWithBackend) SaveToBackend(ctx context.Context, cp *Checkpoint) error {
	return m.backend.Save(ctx, cp)
}

// Backend returns the configured backend.
func (m *ManagerWithBackend) Backend() Backend {
	return m.backend
}
