package diskstate

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/hugo-lorenzo-mato/taskmesh/internal/core"
)

// TaskFile is the parsed subset of a TASK.md header the Graph Store needs
// to seed a core.Task: its scope and declared dependency names.
type TaskFile struct {
	Scope core.Scope
	Deps  []string
}

// ParseTaskFile reads <dir>/TASK.md and extracts the `@scope` and
// `@dependencies` directives per spec §6. A missing file or absent
// directives yields the zero-value defaults (ScopeIntegration, no deps).
func ParseTaskFile(dir string) (TaskFile, error) {
	path := filepath.Join(dir, "TASK.md")
	f, err := os.Open(path)
	if err != nil {
		return TaskFile{Scope: core.ScopeIntegration}, nil
	}
	defer f.Close()

	tf := TaskFile{Scope: core.ScopeIntegration}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lower := strings.ToLower(line)

		switch {
		case strings.HasPrefix(lower, "@scope"):
			raw := strings.TrimSpace(line[len("@scope"):])
			tf.Scope = core.ParseScope(raw)
		case strings.HasPrefix(lower, "@dependencies"):
			raw := strings.TrimSpace(line[len("@dependencies"):])
			tf.Deps = parseDependencyList(raw)
		}
	}
	if err := scanner.Err(); err != nil {
		return tf, err
	}
	return tf, nil
}

// parseDependencyList parses a "[a, b, c]"-shaped directive value into a
// cleaned list of names, tolerating missing brackets and quoted entries.
func parseDependencyList(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	if raw == "" {
		return nil
	}

	var deps []string
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		name = strings.Trim(name, `"'`)
		if name != "" {
			deps = append(deps, name)
		}
	}
	return deps
}

// ListTaskDirs returns the immediate subdirectories of taskExecutorDir that
// contain a TASK.md, in lexical order — the candidate task directories a
// graph rebuild scans.
func ListTaskDirs(taskExecutorDir string) ([]string, error) {
	entries, err := os.ReadDir(taskExecutorDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(taskExecutorDir, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, "TASK.md")); err == nil {
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}
