package ui

import (
	"fmt"
	"io"

	"github.com/desertthunder/ndx/internal/tasks"
)

// ProgressPrinter writes [tasks.ProgressUpdate]s as plain lines.
//
// Track-level matching lines are only printed when Verbose is set.
type ProgressPrinter struct {
	w       io.Writer
	Verbose bool
	phase   tasks.Phase
	started bool
}

func NewProgressPrinter(w io.Writer, verbose bool) *ProgressPrinter {
	return &ProgressPrinter{w: w, Verbose: verbose}
}

// Update is a [tasks.ProgressFunc].
func (p *ProgressPrinter) Update(u tasks.ProgressUpdate) {
	entered := !p.started || u.Phase != p.phase
	p.started, p.phase = true, u.Phase

	switch u.Phase {
	case tasks.Preparing:
		fmt.Fprintf(p.w, "📥 %s\n", u.Message)
	case tasks.Matching:
		if entered {
			fmt.Fprintf(p.w, "\n🔍 %s\n", u.Message)
		} else if p.Verbose {
			fmt.Fprintf(p.w, "   %s\n", u.Message)
		} else if u.Current == u.Total {
			fmt.Fprintf(p.w, "   matched %d/%d tracks\n", u.Current, u.Total)
		}
	case tasks.Exporting:
		if entered {
			fmt.Fprintf(p.w, "\n📝 %s\n", u.Message)
		} else {
			fmt.Fprintf(p.w, "   %s (%.0f%%)\n", u.Message, u.Percent)
		}
	case tasks.Completed:
		fmt.Fprintf(p.w, "\n%s %s\n", styles.Mark(true), u.Message)
	case tasks.Failed:
		fmt.Fprintf(p.w, "\n%s %s\n", styles.Mark(false), styles.Err(u.Message))
	}
}
