package tasks

import (
	"fmt"
)

// Phase tags the stage a run is in.
type Phase int

const (
	Preparing Phase = iota
	Matching
	Exporting
	Completed
	Failed
)

func (p Phase) String() string {
	switch p {
	case Preparing:
		return "preparing"
	case Matching:
		return "matching"
	case Exporting:
		return "exporting"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// ProgressUpdate represents a progress event during a long-running operation.
//
// Current and Total count tracks while matching and tracks handed to the destination while exporting.
type ProgressUpdate struct {
	Phase        Phase
	Current      int
	Total        int
	Percent      float64
	CurrentTrack string
	Message      string
}

// ProgressFunc receives [ProgressUpdate]s synchronously on the running goroutine.
type ProgressFunc func(ProgressUpdate)

// tracker is the single progress accumulator owned by one orchestrator call.
type tracker struct {
	notify ProgressFunc
	state  ProgressUpdate
}

func newTracker(fn ProgressFunc) *tracker {
	return &tracker{notify: fn}
}

// enter switches phase and resets counters to 0/total.
func (t *tracker) enter(phase Phase, total int, msg string) {
	t.state = ProgressUpdate{Phase: phase, Total: total, Message: msg}
	t.emit()
}

// advance records current/total progress within the active phase.
func (t *tracker) advance(current int, track, msg string) {
	t.state.Current = min(current, t.state.Total)
	t.state.CurrentTrack = track
	t.state.Message = msg
	t.emit()
}

func (t *tracker) complete(msg string) {
	t.state.Phase = Completed
	t.state.Current = t.state.Total
	t.state.CurrentTrack = ""
	t.state.Message = msg
	t.emit()
}

func (t *tracker) fail(err error) {
	t.state.Phase = Failed
	t.state.Message = err.Error()
	t.emit()
}

func (t *tracker) emit() {
	if t.state.Total > 0 {
		t.state.Percent = float64(t.state.Current) / float64(t.state.Total) * 100
	} else if t.state.Phase == Completed {
		t.state.Percent = 100
	} else {
		t.state.Percent = 0
	}
	if t.notify != nil {
		t.notify(t.state)
	}
}

func batchMessage(n, of int, size int) string {
	return fmt.Sprintf("[%d/%d] sent %d songs", n, of, size)
}
