package variants

import "github.com/hugo-lorenzo-mato/taskmesh/internal/core"

// Codex drives the `codex` CLI in non-interactive exec mode.
type Codex struct{}

func (Codex) Name() string { return core.ExecutorCodex }

func (Codex) BuildCommand(promptFile string, tier core.ModelTier, workDir string) (string, []string) {
	args := []string{
		"exec",
		"--json",
		"--sandbox", "workspace-write",
		"--reasoning-effort", tierEffort(tier),
		"--cd", workDir,
		"--prompt-file", promptFile,
	}
	return "codex", args
}

func (Codex) ParseLine(line []byte) (string, bool) {
	return extractText(line)
}
