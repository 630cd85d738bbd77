package variants

import (
	"strings"

	"github.com/hugo-lorenzo-mato/taskmesh/internal/core"
)

// DeepSeek drives the `deep-seek` CLI, which streams free-text progress
// lines rather than line-delimited JSON.
type DeepSeek struct{}

func (DeepSeek) Name() string { return core.ExecutorDeepSeek }

func (DeepSeek) BuildCommand(promptFile string, tier core.ModelTier, workDir string) (string, []string) {
	args := []string{
		"--auto-apply",
		"--effort", tierEffort(tier),
		"--workdir", workDir,
		"--prompt-file", promptFile,
	}
	return "deep-seek", args
}

func (DeepSeek) ParseLine(line []byte) (string, bool) {
	text := strings.TrimSpace(string(line))
	if text == "" || strings.HasPrefix(text, "#") {
		return "", false
	}
	return text, true
}
