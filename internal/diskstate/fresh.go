package diskstate

import (
	"os"
	"path/filepath"
)

// StartFresh implements the --fresh cleanup routine: it removes
// taskExecutorDir entirely but preserves an "insights/" subdirectory by
// copying it out to a temp location first and restoring it afterward.
// Filesystem errors during the destructive removal are propagated per the
// spec's "destructive operations: propagated" rule.
func StartFresh(taskExecutorDir string) error {
	insightsDir := filepath.Join(taskExecutorDir, "insights")

	stagedInsights := ""
	if info, err := os.Stat(insightsDir); err == nil && info.IsDir() {
		staged, err := os.MkdirTemp("", "taskmesh-insights-*")
		if err != nil {
			return err
		}
		if err := copyDir(insightsDir, staged); err != nil {
			os.RemoveAll(staged)
			return err
		}
		stagedInsights = staged
	}

	if err := os.RemoveAll(taskExecutorDir); err != nil {
		if stagedInsights != "" {
			os.RemoveAll(stagedInsights)
		}
		return err
	}

	if stagedInsights == "" {
		return nil
	}
	defer os.RemoveAll(stagedInsights)

	if err := os.MkdirAll(insightsDir, 0o755); err != nil {
		return err
	}
	return copyDir(stagedInsights, insightsDir)
}

func copyDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := os.MkdirAll(dstPath, 0o755); err != nil {
				return err
			}
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		data, err := os.ReadFile(srcPath)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dstPath, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
