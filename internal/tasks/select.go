// Package tasks decides which optional install tasks are active for a run.
package tasks

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/stagehand-labs/stagehand/internal/failure"
	"github.com/stagehand-labs/stagehand/internal/manifest"
)

// Mode selects how tasks are chosen.
type Mode int

const (
	// ModeSilent honors every task's default without prompting.
	ModeSilent Mode = iota
	// ModeExplicit selects exactly the requested ids.
	ModeExplicit
	// ModeInteractive presents a checklist with defaults pre-selected.
	ModeInteractive
)

// String returns a human-readable name for the mode.
func (m Mode) String() string {
	switch m {
	case ModeSilent:
		return "silent"
	case ModeExplicit:
		return "explicit"
	case ModeInteractive:
		return "interactive"
	default:
		return "unknown"
	}
}

// Selection is the set of selected task ids.
type Selection map[string]bool

// Enabled reports whether a gate is satisfied. An empty gate always is.
func (s Selection) Enabled(task string) bool {
	return task == "" || s[task]
}

// IDs returns the selected ids in lexical order.
func (s Selection) IDs() []string {
	ids := make([]string, 0, len(s))
	for id, on := range s {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Request carries the inputs a mode needs.
type Request struct {
	Mode      Mode
	Requested []string  // ModeExplicit
	In        io.Reader // ModeInteractive
	Out       io.Writer // ModeInteractive
}

// Select resolves the active tasks for a run.
func Select(tasks []manifest.TaskEntry, req Request) (Selection, error) {
	switch req.Mode {
	case ModeSilent:
		return defaults(tasks), nil
	case ModeExplicit:
		return explicit(tasks, req.Requested)
	case ModeInteractive:
		if req.In == nil || req.Out == nil {
			return nil, fmt.Errorf("interactive task selection needs an input and an output")
		}
		return interactive(tasks, req.In, req.Out)
	default:
		return nil, fmt.Errorf("unknown selection mode %d", req.Mode)
	}
}

// ParseList splits a comma separated --tasks value.
func ParseList(value string) []string {
	var ids []string
	for _, part := range strings.Split(value, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func defaults(tasks []manifest.TaskEntry) Selection {
	sel := make(Selection, len(tasks))
	for _, t := range tasks {
		if t.Default {
			sel[t.ID] = true
		}
	}
	return sel
}

func explicit(tasks []manifest.TaskEntry, requested []string) (Selection, error) {
	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.ID] = true
	}

	sel := make(Selection, len(requested))
	var unknown []string
	for _, id := range requested {
		if !known[id] {
			unknown = append(unknown, id)
			continue
		}
		sel[id] = true
	}
	if len(unknown) > 0 {
		return nil, failure.New(failure.ErrUnresolvedReference, "unknown task(s): %s", strings.Join(unknown, ", "))
	}
	return sel, nil
}

// interactive toggles tasks by number until the user submits an empty line.
func interactive(tasks []manifest.TaskEntry, r io.Reader, w io.Writer) (Selection, error) {
	sel := defaults(tasks)
	if len(tasks) == 0 {
		return sel, nil
	}
	reader := bufio.NewReader(r)

	for {
		fmt.Fprintf(w, "\nSelect additional tasks:\n")
		for i, t := range tasks {
			mark := " "
			if sel[t.ID] {
				mark = "x"
			}
			fmt.Fprintf(w, "  %d) [%s] %s\n", i+1, mark, t.Description)
		}
		fmt.Fprintf(w, "Toggle a number [1-%d], or press Enter to continue: ", len(tasks))

		line, err := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("reading selection: %w", err)
			}
			return sel, nil
		}

		num, convErr := strconv.Atoi(line)
		if convErr != nil || num < 1 || num > len(tasks) {
			fmt.Fprintf(w, "Invalid selection %q\n", line)
		} else {
			id := tasks[num-1].ID
			sel[id] = !sel[id]
		}

		if err == io.EOF {
			return sel, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading selection: %w", err)
		}
	}
}
