// Package supervisor spawns an external AI agent CLI as a child process,
// streams its stdout into a pluggable event parser, enforces an inactivity
// timeout, and mirrors every byte of output to an append-only log file.
//
// It owns exactly one concern: one subprocess invocation per call to Run.
// Everything above it (retry/backoff across phase attempts, the task DAG,
// the terminal UI) is the Phase Runner's and Scheduler's business.
package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/taskmesh/internal/core"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/logging"
)

// MessageSink receives display-worthy messages parsed from a subprocess's
// stdout. The Task State Registry implements this (its updateMessage(name,
// text) operation, per spec).
type MessageSink interface {
	UpdateMessage(name, text string)
}

// UIActiveFunc reports whether a terminal UI renderer currently owns the
// screen; when true the Supervisor suppresses its own stdout echo of agent
// messages (the renderer reads them from the Registry instead).
type UIActiveFunc func() bool

// Options configures a single subprocess invocation.
type Options struct {
	TaskName string
	Tier     core.ModelTier
	WorkDir  string
}

// Supervisor drives one executor variant's subprocess lifecycle.
type Supervisor struct {
	variant  core.ExecutorVariant
	tempDir  string
	logDir   string
	sink     MessageSink
	uiActive UIActiveFunc
	log      *logging.Logger

	inactivityTimeout time.Duration
}

// New creates a Supervisor for the given executor variant. logDir is where
// the per-task append-only log.txt lives; tempDir is where prompt files are
// staged (empty string defaults to os.TempDir()).
func New(variant core.ExecutorVariant, logDir, tempDir string, sink MessageSink, uiActive UIActiveFunc, log *logging.Logger) *Supervisor {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Supervisor{
		variant:           variant,
		tempDir:           tempDir,
		logDir:            logDir,
		sink:              sink,
		uiActive:          uiActive,
		log:               log.WithExecutor(variant.Name()),
		inactivityTimeout: time.Duration(core.DefaultInactivityTimeoutSeconds) * time.Second,
	}
}

// Run spawns the executor variant's child process with promptText, streams
// its output, and blocks until the process exits, the inactivity timer
// fires, or ctx is cancelled. Every exit path closes the log and removes the
// temp prompt file before returning.
func (s *Supervisor) Run(ctx context.Context, promptText string, opts Options) error {
	if strings.TrimSpace(promptText) == "" {
		return core.ErrInvalidPrompt("prompt text is empty")
	}

	promptFile, err := s.writePromptFile(promptText)
	if err != nil {
		return core.ErrSpawnError(err).WithDetail("stage", "write_prompt")
	}
	defer s.cleanupPromptFile(promptFile)

	logFile, err := s.openLog()
	if err != nil {
		return core.ErrSpawnError(err).WithDetail("stage", "open_log")
	}
	defer logFile.Close()

	tier := opts.Tier
	if !core.ValidTier(tier) {
		tier = core.DefaultModelTier
	}

	path, args := s.variant.BuildCommand(promptFile, tier, opts.WorkDir)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(runCtx, path, args...)
	if opts.WorkDir != "" {
		cmd.Dir = opts.WorkDir
	}
	cmd.Stdin = nil

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return core.ErrSpawnError(err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return core.ErrSpawnError(err)
	}

	if err := cmd.Start(); err != nil {
		return core.ErrSpawnError(err)
	}

	var logMu sync.Mutex
	writeLog := func(line string) {
		logMu.Lock()
		defer logMu.Unlock()
		fmt.Fprintln(logFile, line)
	}

	timedOut := make(chan struct{})
	var timedOutOnce sync.Once
	timer := time.AfterFunc(s.inactivityTimeout, func() {
		timedOutOnce.Do(func() { close(timedOut) })
		cancel()
	})
	defer timer.Stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.streamStdout(stdout, opts, timer, writeLog)
	}()
	go func() {
		defer wg.Done()
		s.streamStderr(stderr, writeLog)
	}()
	wg.Wait()

	waitErr := cmd.Wait()
	timer.Stop()

	select {
	case <-timedOut:
		s.log.Warn("subprocess inactive, killed", "task", opts.TaskName)
		return core.ErrSubprocessTimeout(opts.TaskName, s.inactivityTimeout.String())
	default:
	}

	if waitErr == nil {
		return nil
	}

	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		return core.ErrSubprocessExit(exitErr.ExitCode())
	}
	return core.ErrSpawnError(waitErr)
}

func (s *Supervisor) streamStdout(r io.Reader, opts Options, timer *time.Timer, writeLog func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		timer.Reset(s.inactivityTimeout)
		line := scanner.Text()
		writeLog(line)

		message, ok := s.variant.ParseLine([]byte(line))
		if !ok || message == "" {
			continue
		}
		if len(message) > core.MaxStoredMessageLength {
			message = message[:core.MaxStoredMessageLength] + "..."
		}
		if s.sink != nil && opts.TaskName != "" {
			s.sink.UpdateMessage(opts.TaskName, message)
		}
		if opts.TaskName != "" && (s.uiActive == nil || !s.uiActive()) {
			fmt.Println(message)
		}
	}
}

func (s *Supervisor) streamStderr(r io.Reader, writeLog func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		writeLog("[STDERR] " + scanner.Text())
	}
}

func (s *Supervisor) writePromptFile(promptText string) (string, error) {
	if err := os.MkdirAll(s.tempDir, 0o755); err != nil {
		return "", err
	}
	pattern := fmt.Sprintf("taskmesh-prompt-%d-*.md", time.Now().UnixNano())
	f, err := os.CreateTemp(s.tempDir, pattern)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.WriteString(promptText); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func (s *Supervisor) cleanupPromptFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("failed to remove temp prompt file", "path", path, "error", err)
	}
}

func (s *Supervisor) openLog() (*os.File, error) {
	if err := os.MkdirAll(s.logDir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(s.logDir, "log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}
