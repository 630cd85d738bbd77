// Package cmd implements the taskmesh CLI surface (spec §6): a single
// command accepting a workspace folder and the executor-selection,
// restart, and multi-repo flags, wiring the Graph Store, Task State
// Registry, Phase Runner, and Scheduler into one run.
package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hugo-lorenzo-mato/taskmesh/internal/config"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/core"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/diskstate"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/events"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/graphstore"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/logging"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/phaserunner"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/phases"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/registry"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/scheduler"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/supervisor/variants"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/tui"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/web"
)

var (
	flagCodex    bool
	flagGemini   bool
	flagDeepSeek bool
	flagGLM      bool

	flagFresh    bool
	flagContinue bool
	flagSteps    string

	flagBackend  string
	flagFrontend string

	flagLegacySystem   string
	flagLegacyBackend  string
	flagLegacyFrontend string

	flagPush    bool
	flagNoLimit bool
	flagLimit   int

	flagHTTPAddr string
)

var rootCmd = &cobra.Command{
	Use:           "taskmesh [folder]",
	Short:         "Orchestrate long-running, AI-assisted code-change tasks across one or two repositories",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runOrchestrator,
}

func init() {
	rootCmd.Flags().BoolVar(&flagCodex, "codex", false, "use the codex executor (default: claude)")
	rootCmd.Flags().BoolVar(&flagGemini, "gemini", false, "use the gemini executor (default: claude)")
	rootCmd.Flags().BoolVar(&flagDeepSeek, "deep-seek", false, "use the deep-seek executor (default: claude)")
	rootCmd.Flags().BoolVar(&flagGLM, "glm", false, "use the glm executor (default: claude)")

	rootCmd.Flags().BoolVar(&flagFresh, "fresh", false, "remove task-executor state before starting, preserving insights/")
	rootCmd.Flags().BoolVar(&flagContinue, "continue", false, "resume a prior run")
	rootCmd.Flags().StringVar(&flagSteps, "steps", "", "comma-separated phase numbers to restrict execution to (4,5,6,7)")

	rootCmd.Flags().StringVar(&flagBackend, "backend", "", "backend repository path (requires --frontend)")
	rootCmd.Flags().StringVar(&flagFrontend, "frontend", "", "frontend repository path (requires --backend)")

	rootCmd.Flags().StringVar(&flagLegacySystem, "legacy-system", "", "reference-only legacy system path")
	rootCmd.Flags().StringVar(&flagLegacyBackend, "legacy-backend", "", "reference-only legacy backend path")
	rootCmd.Flags().StringVar(&flagLegacyFrontend, "legacy-frontend", "", "reference-only legacy frontend path")

	rootCmd.Flags().BoolVar(&flagPush, "push", true, "push the resulting branch from the review phase")
	rootCmd.Flags().BoolVar(&flagNoLimit, "no-limit", false, "remove the per-task attempt cap")
	rootCmd.Flags().IntVar(&flagLimit, "limit", core.DefaultMaxAttempts, "per-task attempt cap")

	rootCmd.Flags().StringVar(&flagHTTPAddr, "http", "", "serve the registry over HTTP at host:port (disabled by default)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runOrchestrator(cmd *cobra.Command, args []string) error {
	workspaceRoot, err := resolveWorkspaceRoot(args)
	if err != nil {
		return err
	}

	fileCfg, err := config.LoadFileConfig(workspaceRoot)
	if err != nil {
		fmt.Printf("Warning: %s, ignoring taskmesh.yaml\n", err.Error())
		fileCfg = config.FileConfig{}
	}

	executorName, err := selectExecutor()
	if err != nil {
		return err
	}

	allowed, err := core.ParseAllowedSteps(flagSteps)
	if err != nil {
		return core.ErrInvalidInput("INVALID_STEPS", err.Error())
	}
	if flagSteps != "" {
		fmt.Printf("Running only steps: %s\n", flagSteps)
	}

	if err := validateLegacyPaths(); err != nil {
		return err
	}

	store := graphstore.New(workspaceRoot)

	if flagFresh {
		if err := diskstate.StartFresh(store.TaskExecutorDir()); err != nil {
			return err
		}
	}

	logCfg := logging.DefaultConfig()
	if fileCfg.LogLevel != "" {
		logCfg.Level = fileCfg.LogLevel
	}
	if fileCfg.LogFormat != "" {
		logCfg.Format = fileCfg.LogFormat
	}
	log := logging.New(logCfg)

	if flagContinue {
		if err := restoreContinuation(workspaceRoot, log); err != nil {
			return err
		}
	}

	multiRepo, err := configureMultiRepo(workspaceRoot, log)
	if err != nil {
		return err
	}
	if multiRepo != nil {
		log.Info("multi-repo mode active", "mode", multiRepo.Mode, "repositories", multiRepo.Repositories)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nreceived interrupt, stopping...")
		cancel()
	}()

	variant, err := variants.NewRegistry().Get(executorName)
	if err != nil {
		return err
	}

	reg := registry.New(log)
	bus := events.New(256)
	defer bus.Close()

	ph := phases.New(variant, reg, reg.IsUIActive, log, workspaceRoot, flagPush)

	maxAttempts := flagLimit
	if !cmd.Flags().Changed("limit") && fileCfg.MaxAttempts > 0 {
		maxAttempts = fileCfg.MaxAttempts
	}

	runner := phaserunner.New(phaserunner.Config{
		Plan:        ph.Plan,
		Implement:   ph.Implement,
		Review:      ph.Review,
		Allowed:     allowed,
		MaxAttempts: maxAttempts,
		NoLimit:     flagNoLimit,
		Log:         log,
	})

	if err := store.EnsureIndex(); err != nil {
		log.Warn("task index unavailable, continuing without it", "error", err)
	}
	defer func() {
		if err := store.Index().Close(); err != nil {
			log.Warn("closing task index", "error", err)
		}
	}()

	graph, err := store.Rebuild(ctx)
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Config{
		Graph:            graph,
		Runner:           runner,
		Allowed:          allowed,
		Rebuild:          store.RebuildFunc(),
		DeadlockResolver: ph.ResolveDeadlock,
		GlobalSweep:      ph.GlobalSweep,
		WorkspaceRoot:    workspaceRoot,
		Registry:         reg,
		Bus:              bus,
		RunID:            filepath.Base(workspaceRoot),
		Log:              log,
		MaxConcurrent:    resolveConcurrency(fileCfg),
	})

	var program *tea.Program
	tuiDone := make(chan error, 1)
	if term.IsTerminal(int(os.Stdout.Fd())) {
		program = tui.NewProgram(reg, bus, workspaceRoot)
		go func() {
			_, runErr := program.Run()
			tuiDone <- runErr
		}()
	}

	var httpServer *web.Server
	if flagHTTPAddr != "" {
		httpServer, err = newHTTPServer(flagHTTPAddr, log, reg, bus)
		if err != nil {
			return err
		}
		if err := httpServer.Start(); err != nil {
			return err
		}
		log.Info("http surface listening", "addr", httpServer.Addr())
	}

	schedErr := sched.Run(ctx)

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), defaultHTTPShutdownTimeout)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http server shutdown", "error", err)
		}
		shutdownCancel()
	}

	if program != nil {
		program.Quit()
		if runErr := <-tuiDone; runErr != nil {
			log.Warn("tui exited with error", "error", runErr)
		}
	}

	if schedErr != nil {
		return schedErr
	}

	log.Info("run complete")
	return nil
}

func resolveWorkspaceRoot(args []string) (string, error) {
	folder := "."
	if len(args) == 1 {
		folder = args[0]
	}
	abs, err := filepath.Abs(folder)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", core.ErrInvalidInput("FOLDER_NOT_FOUND", fmt.Sprintf("folder does not exist: %s", folder))
	}
	return abs, nil
}

// selectExecutor enforces the mutually-exclusive executor-selection flags,
// defaulting to claude when none are set.
func selectExecutor() (string, error) {
	set := map[string]bool{
		core.ExecutorCodex:    flagCodex,
		core.ExecutorGemini:   flagGemini,
		core.ExecutorDeepSeek: flagDeepSeek,
		core.ExecutorGLM:      flagGLM,
	}
	chosen := ""
	for name, on := range set {
		if !on {
			continue
		}
		if chosen != "" {
			return "", core.ErrInvalidInput("CONFLICTING_EXECUTOR_FLAGS", "only one of --codex, --gemini, --deep-seek, --glm may be set")
		}
		chosen = name
	}
	if chosen == "" {
		return core.ExecutorClaude, nil
	}
	return chosen, nil
}

const defaultHTTPShutdownTimeout = 5 * time.Second

// newHTTPServer parses --http's host:port and builds the optional registry
// HTTP surface (§4.11), reusing the same Registry and EventBus the
// terminal renderer reads from.
func newHTTPServer(addr string, log *logging.Logger, reg *registry.Registry, bus *events.EventBus) (*web.Server, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, core.ErrInvalidInput("INVALID_HTTP_ADDR", fmt.Sprintf("--http expects host:port, got %q", addr))
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, core.ErrInvalidInput("INVALID_HTTP_ADDR", fmt.Sprintf("--http port must be numeric, got %q", portStr))
	}

	cfg := web.DefaultConfig()
	cfg.Host = host
	cfg.Port = port
	return web.New(cfg, log.Logger, reg, bus), nil
}

// resolveConcurrency layers taskmesh.yaml's concurrency setting beneath
// CLAUDIOMIRO_CONCURRENCY and above the CPU-based default, without
// duplicating the environment-variable parsing already done by
// config.DefaultConcurrency.
func resolveConcurrency(fc config.FileConfig) int {
	if os.Getenv("CLAUDIOMIRO_CONCURRENCY") != "" {
		return 0
	}
	if fc.Concurrency > 0 {
		return fc.Concurrency
	}
	return 0
}

func validateLegacyPaths() error {
	for flag, path := range map[string]string{
		"legacy-system":   flagLegacySystem,
		"legacy-backend":  flagLegacyBackend,
		"legacy-frontend": flagLegacyFrontend,
	} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return core.ErrInvalidInput("LEGACY_PATH_NOT_FOUND", fmt.Sprintf("--%s path does not exist: %s", flag, path))
		}
	}
	return nil
}

// restoreContinuation implements the --continue startup procedure: clear a
// stale clarification flag when its answers are already on disk.
func restoreContinuation(workspaceRoot string, log *logging.Logger) error {
	taskExecDir := filepath.Join(workspaceRoot, graphstore.TaskExecutorDirName)
	flagPath := filepath.Join(taskExecDir, "PENDING_CLARIFICATION.flag")
	answersPath := filepath.Join(taskExecDir, "CLARIFICATION_ANSWERS.json")

	if _, err := os.Stat(flagPath); err != nil {
		return nil
	}
	if _, err := os.Stat(answersPath); err != nil {
		return nil
	}
	if err := os.Remove(flagPath); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to clear pending clarification flag", "error", err)
	}
	return nil
}

func configureMultiRepo(workspaceRoot string, log *logging.Logger) (*config.MultiRepoConfig, error) {
	if flagContinue && flagBackend == "" && flagFrontend == "" {
		return config.RestoreMultiRepo(workspaceRoot, log)
	}

	if flagBackend == "" && flagFrontend == "" {
		return nil, nil
	}
	if flagBackend == "" || flagFrontend == "" {
		return nil, core.ErrInvalidInput("MULTI_REPO_FLAGS_PAIRED", "--backend and --frontend must be set together")
	}

	backendAbs, err := filepath.Abs(flagBackend)
	if err != nil {
		return nil, err
	}
	frontendAbs, err := filepath.Abs(flagFrontend)
	if err != nil {
		return nil, err
	}
	for _, p := range []string{backendAbs, frontendAbs} {
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			return nil, core.ErrInvalidInput("REPO_PATH_NOT_FOUND", fmt.Sprintf("repository path does not exist: %s", p))
		}
	}

	detect, err := config.ProbeGitConfiguration(backendAbs, frontendAbs)
	if err != nil {
		return nil, core.ErrInvalidInput("INVALID_GIT_CONFIGURATION", "Invalid git configuration")
	}

	return config.SetMultiRepo(workspaceRoot, backendAbs, frontendAbs, detect)
}
