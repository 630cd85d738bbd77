package variants

import (
	"strings"

	"github.com/hugo-lorenzo-mato/taskmesh/internal/core"
)

// GLM drives the `glm` CLI, which streams free-text progress lines rather
// than line-delimited JSON.
type GLM struct{}

func (GLM) Name() string { return core.ExecutorGLM }

func (GLM) BuildCommand(promptFile string, tier core.ModelTier, workDir string) (string, []string) {
	args := []string{
		"--apply",
		"--reasoning", tierEffort(tier),
		"--cwd", workDir,
		"--prompt-file", promptFile,
	}
	return "glm", args
}

func (GLM) ParseLine(line []byte) (string, bool) {
	text := strings.TrimSpace(string(line))
	if text == "" || strings.HasPrefix(text, "#") {
		return "", false
	}
	return text, true
}
