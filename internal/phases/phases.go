// Package phases supplies the plan/implement/review/global-sweep
// core.PhaseFunc implementations the Phase Runner and Scheduler drive: each
// renders a prompt from the task's on-disk artifacts and runs it through
// the Subprocess Supervisor for a chosen executor variant.
package phases

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/hugo-lorenzo-mato/taskmesh/internal/config"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/core"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/logging"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/supervisor"
)

//go:embed prompts/*.md.tmpl
var promptsFS embed.FS

var templates = template.Must(template.New("phases").Funcs(template.FuncMap{
	"join": strings.Join,
}).ParseFS(promptsFS, "prompts/*.md.tmpl"))

// Phases builds the three per-task phase functions and the global sweep
// phase function, all bound to one executor variant and one run's shared
// collaborators.
type Phases struct {
	variant       core.ExecutorVariant
	sink          supervisor.MessageSink
	uiActive      supervisor.UIActiveFunc
	log           *logging.Logger
	workspaceRoot string
	push          bool
}

// New constructs a Phases bound to variant. sink and uiActive are forwarded
// to every Supervisor invocation unchanged (normally the run's shared Task
// State Registry and its IsUIActive method).
func New(variant core.ExecutorVariant, sink supervisor.MessageSink, uiActive supervisor.UIActiveFunc, log *logging.Logger, workspaceRoot string, push bool) *Phases {
	return &Phases{
		variant:       variant,
		sink:          sink,
		uiActive:      uiActive,
		log:           log,
		workspaceRoot: workspaceRoot,
		push:          push,
	}
}

func (p *Phases) run(ctx context.Context, task *core.Task, tier core.ModelTier, prompt string) error {
	sup := supervisor.New(p.variant, task.Dir, "", p.sink, p.uiActive, p.log)
	return sup.Run(ctx, prompt, supervisor.Options{
		TaskName: task.Name,
		Tier:     tier,
		WorkDir:  p.workspaceRoot,
	})
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", name, err)
	}
	return buf.String(), nil
}

func readBestEffort(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// Plan implements core.PhaseFunc for the plan phase: it writes PROMPT.md
// from the task's TASK.md and drives it through the Supervisor, expecting
// the agent to produce TODO.md (or split the task by deleting its own
// directory).
func (p *Phases) Plan(ctx context.Context, task *core.Task, tier core.ModelTier) error {
	prompt, err := render("plan.md.tmpl", struct {
		TaskName string
		Scope    core.Scope
		Deps     []string
		TaskFile string
	}{
		TaskName: task.Name,
		Scope:    task.Scope,
		Deps:     task.Deps,
		TaskFile: readBestEffort(filepath.Join(task.Dir, "TASK.md")),
	})
	if err != nil {
		return err
	}
	if err := config.AtomicWrite(filepath.Join(task.Dir, "PROMPT.md"), []byte(prompt)); err != nil {
		return err
	}
	return p.run(ctx, task, tier, prompt)
}

// Implement implements core.PhaseFunc for the implement phase: it renders a
// prompt from TODO.md and drives it through the Supervisor, expecting the
// agent to produce execution.json.
func (p *Phases) Implement(ctx context.Context, task *core.Task, tier core.ModelTier) error {
	prompt, err := render("implement.md.tmpl", struct {
		TaskName string
		WorkDir  string
		TodoFile string
	}{
		TaskName: task.Name,
		WorkDir:  p.workspaceRoot,
		TodoFile: readBestEffort(filepath.Join(task.Dir, "TODO.md")),
	})
	if err != nil {
		return err
	}
	return p.run(ctx, task, tier, prompt)
}

// Review implements core.PhaseFunc for the review phase: it renders a
// prompt from TODO.md and drives it through the Supervisor, expecting the
// agent to produce CODE_REVIEW.md.
func (p *Phases) Review(ctx context.Context, task *core.Task, tier core.ModelTier) error {
	prompt, err := render("review.md.tmpl", struct {
		TaskName string
		WorkDir  string
		TodoFile string
		Push     bool
	}{
		TaskName: task.Name,
		WorkDir:  p.workspaceRoot,
		TodoFile: readBestEffort(filepath.Join(task.Dir, "TODO.md")),
		Push:     p.push,
	})
	if err != nil {
		return err
	}
	return p.run(ctx, task, tier, prompt)
}

// GlobalSweep implements core.PhaseFunc for the final global bug sweep
// (phase 7): it runs once across the whole workspace and fails the run if
// the agent records a remaining critical bug in BUGS.md.
func (p *Phases) GlobalSweep(ctx context.Context, task *core.Task, tier core.ModelTier) error {
	prompt, err := render("global-sweep.md.tmpl", struct {
		WorkDir string
	}{
		WorkDir: p.workspaceRoot,
	})
	if err != nil {
		return err
	}
	if err := p.run(ctx, task, tier, prompt); err != nil {
		return err
	}
	return checkNoCriticalBugs(p.workspaceRoot)
}

// ResolveDeadlock implements core.DeadlockResolver: it hands the
// Scheduler's diagnostic set to the executor variant and trusts it to edit
// the affected tasks' TASK.md dependency directives to break the cycle.
func (p *Phases) ResolveDeadlock(ctx context.Context, diagnostics []core.DeadlockDiagnostic) error {
	prompt, err := render("deadlock.md.tmpl", struct {
		WorkDir     string
		Diagnostics []core.DeadlockDiagnostic
	}{
		WorkDir:     p.workspaceRoot,
		Diagnostics: diagnostics,
	})
	if err != nil {
		return err
	}

	// ".claudiomiro/task-executor" mirrors graphstore.TaskExecutorDirName;
	// not imported here to avoid a dependency back into the Graph Store for
	// a single path constant.
	sweepTask := core.NewTask("__deadlock_resolver__", filepath.Join(p.workspaceRoot, ".claudiomiro", "task-executor"))
	return p.run(ctx, sweepTask, core.DefaultModelTier, prompt)
}

// checkNoCriticalBugs inspects BUGS.md for a non-empty "## Critical"
// section. A missing file, or a section reading only "None found.", passes.
func checkNoCriticalBugs(workspaceRoot string) error {
	data, err := os.ReadFile(filepath.Join(workspaceRoot, "BUGS.md"))
	if err != nil {
		return nil
	}

	lines := strings.Split(string(data), "\n")
	inCritical := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !inCritical {
			header := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			if strings.EqualFold(header, "critical") {
				inCritical = true
			}
			continue
		}
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			return nil // next section reached without finding content
		}
		if strings.EqualFold(trimmed, "None found.") || strings.EqualFold(trimmed, "None found") {
			return nil
		}
		return fmt.Errorf("%s", trimmed)
	}
	return nil
}
