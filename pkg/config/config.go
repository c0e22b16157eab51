// Package config provides hierarchical configuration management for a
// mining run. Priority: defaults < system < user < project < env < flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config holds all mining configuration.
type Config struct {
	Version int `yaml:"version"`

	Mining   MiningConfig   `yaml:"mining"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Storage  StorageConfig  `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// MiningConfig controls the invariant miner, partition graph, and the
// refinement/coarsening engines.
type MiningConfig struct {
	// K is the k used by the k-tails quotient and by the coarsening
	// candidate filter.
	K int `yaml:"k"`
	// UseTransitiveClosureMining switches the miner between path-walking
	// and closure-based precedence computation.
	UseTransitiveClosureMining bool `yaml:"use_transitive_closure_mining"`
	// MultipleRelations enables per-relation independent mining and
	// bi-relational paths for non-ordering relations.
	MultipleRelations bool `yaml:"multiple_relations"`
	// MineNeverConcurrentWith enables the NeverConcurrent partial-order
	// invariant for DAG-shaped inputs.
	MineNeverConcurrentWith bool `yaml:"mine_never_concurrent_with"`
	// SupportCountThreshold drops invariants whose support is <= this
	// value. Zero disables the filter.
	SupportCountThreshold int `yaml:"support_count_threshold"`
	// IgnoreIntrBy omits IntrBy invariants from the mined set.
	IgnoreIntrBy bool `yaml:"ignore_intr_by"`
	// IgnoreInvsOverETypeSet drops invariants all of whose operand types
	// lie in this set of event-type labels.
	IgnoreInvsOverETypeSet []string `yaml:"ignore_invs_over_etype_set"`
	// TraceNormalization rescales per-trace event times to [0,1] before
	// mining.
	TraceNormalization bool `yaml:"trace_normalization"`
	// Relations lists the additional (non-ordering) relations to declare
	// on the trace graph.
	Relations []string `yaml:"relations"`
	// Coarsen enables the coarsening pass after refinement.
	Coarsen bool `yaml:"coarsen"`
}

// IngestConfig controls how raw log sources are decoded into traces.
type IngestConfig struct {
	Format  string `yaml:"format"` // xes | csv | jsonl
	CaseKey string `yaml:"case_key"`
	TimeKey string `yaml:"time_key"`
}

// StorageConfig controls persistence of mining artifacts.
type StorageConfig struct {
	OutputDir string `yaml:"output_dir"`
	CacheDir  string `yaml:"cache_dir"`
}

// TelemetryConfig controls optional span instrumentation.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Default returns the default configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	minerDir := filepath.Join(home, ".logminer")

	return &Config{
		Version: 1,
		Mining: MiningConfig{
			K:                          2,
			UseTransitiveClosureMining: false,
			MultipleRelations:          false,
			MineNeverConcurrentWith:    false,
			SupportCountThreshold:      0,
			IgnoreIntrBy:               false,
			TraceNormalization:         false,
			Coarsen:                    true,
		},
		Ingest: IngestConfig{
			Format:  "xes",
			CaseKey: "case",
			TimeKey: "time",
		},
		Storage: StorageConfig{
			OutputDir: filepath.Join(minerDir, "out"),
			CacheDir:  filepath.Join(minerDir, "cache"),
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
	}
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{config: Default()}
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()

	for _, path := range m.getConfigPaths() {
		if err := m.loadFile(path); err != nil {
			if !os.IsNotExist(err) {
				return err
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	m.loadEnv()
	m.ensureDirs()
	return nil
}

func (m *Manager) getConfigPaths() []string {
	var paths []string
	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/logminer/config.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".logminer", "config.yaml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".logminer.yaml"))
	}
	return paths
}

func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return err
	}
	m.merge(&partial)
	return nil
}

func (m *Manager) merge(src *Config) {
	if src.Mining.K != 0 {
		m.config.Mining.K = src.Mining.K
	}
	m.config.Mining.UseTransitiveClosureMining = m.config.Mining.UseTransitiveClosureMining || src.Mining.UseTransitiveClosureMining
	m.config.Mining.MultipleRelations = m.config.Mining.MultipleRelations || src.Mining.MultipleRelations
	m.config.Mining.MineNeverConcurrentWith = m.config.Mining.MineNeverConcurrentWith || src.Mining.MineNeverConcurrentWith
	if src.Mining.SupportCountThreshold != 0 {
		m.config.Mining.SupportCountThreshold = src.Mining.SupportCountThreshold
	}
	m.config.Mining.IgnoreIntrBy = m.config.Mining.IgnoreIntrBy || src.Mining.IgnoreIntrBy
	if len(src.Mining.IgnoreInvsOverETypeSet) > 0 {
		m.config.Mining.IgnoreInvsOverETypeSet = src.Mining.IgnoreInvsOverETypeSet
	}
	m.config.Mining.TraceNormalization = m.config.Mining.TraceNormalization || src.Mining.TraceNormalization
	if len(src.Mining.Relations) > 0 {
		m.config.Mining.Relations = src.Mining.Relations
	}

	if src.Ingest.Format != "" {
		m.config.Ingest.Format = src.Ingest.Format
	}
	if src.Ingest.CaseKey != "" {
		m.config.Ingest.CaseKey = src.Ingest.CaseKey
	}
	if src.Ingest.TimeKey != "" {
		m.config.Ingest.TimeKey = src.Ingest.TimeKey
	}

	if src.Storage.OutputDir != "" {
		m.config.Storage.OutputDir = src.Storage.OutputDir
	}
	if src.Storage.CacheDir != "" {
		m.config.Storage.CacheDir = src.Storage.CacheDir
	}
}

func (m *Manager) loadEnv() {
	if v := os.Getenv("LOGMINER_K"); v != "" {
		var k int
		if _, err := fmt.Sscanf(v, "%d", &k); err == nil {
			m.config.Mining.K = k
		}
	}
	if v := os.Getenv("LOGMINER_FORMAT"); v != "" {
		m.config.Ingest.Format = v
	}
	if v := os.Getenv("LOGMINER_OUTPUT_DIR"); v != "" {
		m.config.Storage.OutputDir = v
	}
}

func (m *Manager) ensureDirs() {
	for _, dir := range []string{m.config.Storage.OutputDir, m.config.Storage.CacheDir} {
		os.MkdirAll(dir, 0755)
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Save writes the current config to the user config file.
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	dir := filepath.Join(home, ".logminer")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644)
}

var (
	globalManager *Manager
	globalOnce    sync.Once
)

// Global returns the global configuration manager.
func Global() *Manager {
	globalOnce.Do(func() {
		globalManager = NewManager()
		globalManager.Load()
	})
	return globalManager
}
