package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/hugo-lorenzo-mato/taskmesh/internal/logging"
)

// Mode classifies how the two repositories relate to each other.
type Mode string

const (
	ModeMonorepo Mode = "monorepo"
	ModeSeparate Mode = "separate"
)

// MultiRepoConfig is the persisted two-repo mapping from spec.md §3/§4.6.
type MultiRepoConfig struct {
	Enabled      bool              `json:"enabled"`
	Mode         Mode              `json:"mode"`
	Repositories map[string]string `json:"repositories"`
	GitRoots     []string          `json:"gitRoots"`
}

// GitDetection is the result of the CLI's git-configuration probe, passed
// into SetMultiRepo by the caller (git branch creation / probing itself is
// out of core scope; the core only persists the probe's verdict).
type GitDetection struct {
	Mode     Mode
	GitRoots []string
}

const (
	taskExecutorRelPath = ".claudiomiro/task-executor/multi-repo.json"
	legacyRelPath       = ".claudiomiro/multi-repo.json"
)

// SetMultiRepo persists a MultiRepoConfig at the workspace root's
// task-executor location AND mirrors it into each repo's equivalent path,
// so --continue from either repo restores multi-repo mode.
func SetMultiRepo(workspaceRoot, backendPath, frontendPath string, detect GitDetection) (*MultiRepoConfig, error) {
	cfg := &MultiRepoConfig{
		Enabled: true,
		Mode:    detect.Mode,
		Repositories: map[string]string{
			"backend":  backendPath,
			"frontend": frontendPath,
		},
		GitRoots: detect.GitRoots,
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}

	for _, root := range []string{workspaceRoot, backendPath, frontendPath} {
		if root == "" {
			continue
		}
		if err := AtomicWrite(filepath.Join(root, taskExecutorRelPath), data); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// RestoreMultiRepo implements the --continue restore procedure: look up
// multi-repo.json at the workspace task-executor location; if absent, check
// the legacy path and copy-migrate it forward if found; if still absent or
// the parsed document has enabled=false, return (nil, nil) meaning
// single-repo mode. Invalid JSON logs a warning and also returns (nil, nil).
func RestoreMultiRepo(workspaceRoot string, log *logging.Logger) (*MultiRepoConfig, error) {
	primary := filepath.Join(workspaceRoot, taskExecutorRelPath)

	data, err := os.ReadFile(primary)
	if err != nil {
		legacy := filepath.Join(workspaceRoot, legacyRelPath)
		legacyData, legacyErr := os.ReadFile(legacy)
		if legacyErr != nil {
			return nil, nil
		}
		if err := AtomicWrite(primary, legacyData); err != nil {
			return nil, err
		}
		data = legacyData
	}

	var cfg MultiRepoConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Warn("Invalid multi-repo.json, continuing as single-repo mode", "path", primary, "error", err)
		return nil, nil
	}

	if !cfg.Enabled {
		return nil, nil
	}

	log.Info("Restored multi-repo mode", "mode", cfg.Mode)
	return &cfg, nil
}
