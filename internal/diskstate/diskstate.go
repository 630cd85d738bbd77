// Package diskstate implements the two pure predicates the Phase Runner
// consults to decide whether a task's on-disk artifacts already represent a
// finished implementation or an approved review, plus the TODO.md/
// TODO.old.md repair rename the spec requires on restart.
package diskstate

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Confidence reflects how certain isImplemented's verdict is, per the
// priority-ordered rules in spec §6.
type Confidence float64

// ImplementationStatus is the result of inspecting a task directory's
// execution marker file.
type ImplementationStatus struct {
	Completed  bool
	Confidence Confidence
	Reason     string
}

type executionMarker struct {
	Status     string `json:"status"`
	Completion struct {
		Status string `json:"status"`
	} `json:"completion"`
	Phases []struct {
		Status string `json:"status"`
	} `json:"phases"`
}

// IsImplemented inspects <dir>/execution.json and reports whether the task
// is implemented, following the priority order:
//  1. completion.status == "completed" → completed, confidence 1.0
//  2. top-level status == "completed" → completed, confidence 0.9
//  3. top-level status == "blocked" → not completed, confidence 1.0
//  4. non-empty phases, all status == "completed" → completed, 0.85
//  5. otherwise → not completed, 0.8
//
// A missing file is not completed with confidence 1.0; a parse error is not
// completed with confidence 0.5.
func IsImplemented(dir string) ImplementationStatus {
	path := filepath.Join(dir, "execution.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return ImplementationStatus{Completed: false, Confidence: 1.0, Reason: "execution.json missing"}
	}

	var marker executionMarker
	if err := json.Unmarshal(data, &marker); err != nil {
		return ImplementationStatus{Completed: false, Confidence: 0.5, Reason: "Failed to parse execution.json"}
	}

	if strings.EqualFold(marker.Completion.Status, "completed") {
		return ImplementationStatus{Completed: true, Confidence: 1.0, Reason: "completion.status == completed"}
	}
	if strings.EqualFold(marker.Status, "completed") {
		return ImplementationStatus{Completed: true, Confidence: 0.9, Reason: "status == completed"}
	}
	if strings.EqualFold(marker.Status, "blocked") {
		return ImplementationStatus{Completed: false, Confidence: 1.0, Reason: "status == blocked"}
	}
	if len(marker.Phases) > 0 {
		allCompleted := true
		for _, p := range marker.Phases {
			if !strings.EqualFold(p.Status, "completed") {
				allCompleted = false
				break
			}
		}
		if allCompleted {
			return ImplementationStatus{Completed: true, Confidence: 0.85, Reason: "all phases completed"}
		}
	}
	return ImplementationStatus{Completed: false, Confidence: 0.8, Reason: "no completion signal found"}
}

// HasApprovedCodeReview locates the case-insensitive "## Status" header in
// <dir>/CODE_REVIEW.md, skips blank lines, and checks whether the first
// non-blank line after it contains the substring "approved"
// (case-insensitive). A missing file, or a missing/empty Status section,
// is not approved.
func HasApprovedCodeReview(dir string) bool {
	path := filepath.Join(dir, "CODE_REVIEW.md")
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	inStatusSection := false
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if !inStatusSection {
			if isStatusHeader(trimmed) {
				inStatusSection = true
			}
			continue
		}

		if trimmed == "" {
			continue
		}
		return strings.Contains(strings.ToLower(trimmed), "approved")
	}
	return false
}

func isStatusHeader(line string) bool {
	lower := strings.ToLower(line)
	lower = strings.TrimLeft(lower, "#")
	lower = strings.TrimSpace(lower)
	return lower == "status"
}

// RepairTodo restores <dir>/TODO.old.md to TODO.md when a prior run's
// temporary rename exists and TODO.md is currently missing — the restart
// repair step the Phase Runner performs before looking at plan/implement
// state.
func RepairTodo(dir string) error {
	oldPath := filepath.Join(dir, "TODO.old.md")
	activePath := filepath.Join(dir, "TODO.md")

	if _, err := os.Stat(activePath); err == nil {
		return nil // TODO.md already present, nothing to repair
	}
	if _, err := os.Stat(oldPath); err != nil {
		return nil // no prior rename to restore
	}
	return os.Rename(oldPath, activePath)
}

// HasPlan reports whether <dir>/TODO.md (the implementation-plan artifact)
// exists.
func HasPlan(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "TODO.md"))
	return err == nil
}

// DirExists reports whether dir is still present — used to detect a plan
// phase that split the task into subtasks by deleting its own directory.
func DirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
