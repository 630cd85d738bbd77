package config

import (
	"os"
	"path/filepath"
)

// ProbeGitConfiguration implements the CLI's "git-configuration probe" for
// --backend/--frontend: each path must exist and be inside a git work tree;
// the two paths sharing the same git root is classified as monorepo,
// otherwise separate. Neither path being inside a git work tree is an
// invalid configuration.
func ProbeGitConfiguration(backendPath, frontendPath string) (GitDetection, error) {
	backendRoot, err := findGitRoot(backendPath)
	if err != nil {
		return GitDetection{}, err
	}
	frontendRoot, err := findGitRoot(frontendPath)
	if err != nil {
		return GitDetection{}, err
	}

	if backendRoot == frontendRoot {
		return GitDetection{Mode: ModeMonorepo, GitRoots: []string{backendRoot}}, nil
	}
	return GitDetection{Mode: ModeSeparate, GitRoots: []string{backendRoot, frontendRoot}}, nil
}

// findGitRoot walks upward from path looking for a ".git" entry, returning
// the first directory that has one.
func findGitRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", err
	}

	dir := abs
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
