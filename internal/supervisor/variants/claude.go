package variants

import "github.com/hugo-lorenzo-mato/taskmesh/internal/core"

// Claude drives the `claude` CLI in non-interactive, stream-json mode.
type Claude struct{}

func (Claude) Name() string { return core.ExecutorClaude }

func (Claude) BuildCommand(promptFile string, tier core.ModelTier, workDir string) (string, []string) {
	args := []string{
		"--print",
		"--output-format", "stream-json",
		"--permission-mode", "acceptEdits",
		"--model", tierModel(tier),
		"--add-dir", workDir,
		promptFile,
	}
	return "claude", args
}

func (Claude) ParseLine(line []byte) (string, bool) {
	return extractText(line)
}

func tierModel(tier core.ModelTier) string {
	switch tier {
	case core.TierFast:
		return "haiku"
	case core.TierHard:
		return "opus"
	default:
		return "sonnet"
	}
}
