package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchHabits Phase = iota
	FetchTodos
	WriteExport
	WarmNews
	WarmQuote
	PurgeCache
	PurgeSessions
)

func (p Phase) String() string {
	switch p {
	case FetchHabits:
		return "fetch_habits"
	case FetchTodos:
		return "fetch_todos"
	case WriteExport:
		return "write_export"
	case WarmNews:
		return "warm_news"
	case WarmQuote:
		return "warm_quote"
	case PurgeCache:
		return "purge_cache"
	case PurgeSessions:
		return "purge_sessions"
	default:
		return ""
	}
}

// sendProgress sends update without blocking. A nil channel is ignored.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchUpdate(phase Phase, count int) ProgressUpdate {
	noun := "habits"
	if phase == FetchTodos {
		noun = "todos"
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loaded %d %s", count, noun),
		Data:    count,
	}
}

func exportCompletedUpdate(step, total int, file string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteExport,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, file),
	}
}

func exportFailedUpdate(step, total int, file string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteExport,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, file, err),
	}
}

func maintenanceUpdate(phase Phase, step, total int, err error, detail string) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s: %s", step, total, phase, detail)
	if err != nil {
		msg = fmt.Sprintf("[%d/%d] %s failed: %v", step, total, phase, err)
	}
	return ProgressUpdate{Phase: phase, Step: step, Total: total, Message: msg}
}
