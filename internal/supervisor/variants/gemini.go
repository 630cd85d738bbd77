package variants

import "github.com/hugo-lorenzo-mato/taskmesh/internal/core"

// Gemini drives the `gemini` CLI in non-interactive mode.
type Gemini struct{}

func (Gemini) Name() string { return core.ExecutorGemini }

func (Gemini) BuildCommand(promptFile string, tier core.ModelTier, workDir string) (string, []string) {
	args := []string{
		"--yolo",
		"--output-format", "json",
		"--reasoning-effort", tierEffort(tier),
		"--include-directories", workDir,
		"--prompt-file", promptFile,
	}
	return "gemini", args
}

func (Gemini) ParseLine(line []byte) (string, bool) {
	return extractText(line)
}
