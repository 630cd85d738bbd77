package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hugo-lorenzo-mato/taskmesh/internal/logging"
)

func TestSetMultiRepo_PersistsToAllThreeLocations(t *testing.T) {
	workspace := t.TempDir()
	backend := t.TempDir()
	frontend := t.TempDir()

	cfg, err := SetMultiRepo(workspace, backend, frontend, GitDetection{
		Mode:     ModeSeparate,
		GitRoots: []string{backend, frontend},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Enabled || cfg.Mode != ModeSeparate {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	for _, root := range []string{workspace, backend, frontend} {
		path := filepath.Join(root, taskExecutorRelPath)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected %s to exist: %v", path, err)
		}
	}
}

func TestRestoreMultiRepo_Absent(t *testing.T) {
	workspace := t.TempDir()
	cfg, err := RestoreMultiRepo(workspace, logging.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config when no file present")
	}
}

func TestRestoreMultiRepo_EnabledFalseIsSingleRepo(t *testing.T) {
	workspace := t.TempDir()
	path := filepath.Join(workspace, taskExecutorRelPath)
	data, _ := json.Marshal(MultiRepoConfig{Enabled: false})
	if err := AtomicWrite(path, data); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	cfg, err := RestoreMultiRepo(workspace, logging.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config when enabled=false")
	}
}

func TestRestoreMultiRepo_InvalidJSON(t *testing.T) {
	workspace := t.TempDir()
	path := filepath.Join(workspace, taskExecutorRelPath)
	if err := AtomicWrite(path, []byte("{not json")); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	cfg, err := RestoreMultiRepo(workspace, logging.NewNop())
	if err != nil {
		t.Fatalf("invalid JSON should warn, not error: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config for invalid JSON")
	}
}

func TestRestoreMultiRepo_MigratesLegacyPath(t *testing.T) {
	workspace := t.TempDir()
	legacy := filepath.Join(workspace, legacyRelPath)
	data, _ := json.Marshal(MultiRepoConfig{
		Enabled:      true,
		Mode:         ModeSeparate,
		Repositories: map[string]string{"backend": "/b", "frontend": "/f"},
		GitRoots:     []string{"/b", "/f"},
	})
	if err := AtomicWrite(legacy, data); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	cfg, err := RestoreMultiRepo(workspace, logging.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil || cfg.Mode != ModeSeparate {
		t.Fatalf("expected restored config from legacy path, got %+v", cfg)
	}

	if _, err := os.Stat(filepath.Join(workspace, taskExecutorRelPath)); err != nil {
		t.Errorf("expected legacy config to be migrated to the task-executor path: %v", err)
	}
}
