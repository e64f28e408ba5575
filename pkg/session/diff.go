package session

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/aymanbagabas/go-udiff"
)

// TurnDiffTracker accumulates file changes made by tool calls over one turn.
// It is the one piece of mutable shared state threaded through dispatch, so
// it guards itself; callers share it by pointer without locking.
type TurnDiffTracker struct {
	mu        sync.Mutex
	baselines map[string]string
}

// NewTurnDiffTracker creates an empty tracker.
func NewTurnDiffTracker() *TurnDiffTracker {
	return &TurnDiffTracker{
		baselines: make(map[string]string),
	}
}

// RecordBaseline snapshots a file's content before a tool touches it. Only
// the first snapshot per path is kept; a missing file records an empty
// baseline.
func (t *TurnDiffTracker) RecordBaseline(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.baselines[path]; ok {
		return
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.baselines[path] = ""
		return
	}
	t.baselines[path] = string(content)
}

// UnifiedDiff renders the accumulated changes as one unified diff across all
// tracked files, in path order. Unchanged files are omitted.
func (t *TurnDiffTracker) UnifiedDiff() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	paths := make([]string, 0, len(t.baselines))
	for path := range t.baselines {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var out strings.Builder
	for _, path := range paths {
		current, err := os.ReadFile(path)
		if err != nil {
			current = nil
		}
		if string(current) == t.baselines[path] {
			continue
		}
		out.WriteString(udiff.Unified(path, path, t.baselines[path], string(current)))
	}
	return out.String()
}
