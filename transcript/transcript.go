// Package transcript renders engine events into an append-only markdown
// log file. The transcript is a human-readable record of every cycle a
// run went through: plans committed, steps executed, beliefs learned and
// human interventions.
package transcript

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/hupe1980/intentmesh/core"
)

// Writer is a core.EventSink that appends markdown to a log file. Write
// errors are sticky: the first error disables further output and is
// reported by Err.
type Writer struct {
	f   *os.File
	buf *bufio.Writer
	err error
}

// Open creates or truncates the transcript file and writes the header.
func Open(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create transcript: %w", err)
	}
	w := &Writer{f: f, buf: bufio.NewWriter(f)}
	fmt.Fprintf(w.buf, "# BDI Agent Execution Log\n\n*Started: %s*\n", time.Now().UTC().Format(time.RFC3339))
	return w, nil
}

// Record implements core.EventSink.
func (w *Writer) Record(e core.Event) {
	if w.err != nil {
		return
	}
	if _, werr := w.buf.WriteString(render(e)); werr != nil {
		w.err = werr
	}
}

// render maps an event kind to its markdown block.
func render(e core.Event) string {
	ts := e.Time.Format("15:04:05")
	switch e.Kind {
	case core.KindCycleStart:
		return fmt.Sprintf("\n## Cycle %v\n\n*%s*\n", e.Fields["cycle"], ts)
	case core.KindCycleEnd:
		return fmt.Sprintf("\n*Cycle finished: %v*\n", e.Fields["status"])
	case core.KindStateSnapshot:
		return fmt.Sprintf("\n**State:** %s\n", formatFields(e.Fields))
	case core.KindHITLStart:
		return fmt.Sprintf("\n### Human-in-the-Loop Intervention\n\n%s\n", e.Message)
	case core.KindHITLApplied:
		return fmt.Sprintf("**Guidance:** %v\n**Interpretation:** %v\n**Applied:** %v\n", e.Fields["guidance"], e.Fields["summary"], e.Fields["applied"])
	case core.KindHITLAborted:
		return fmt.Sprintf("**Intervention aborted:** %s\n", e.Message)
	case core.KindPlanCommitted:
		return fmt.Sprintf("\n### Plan Committed\n\n%s\n", e.Message)
	case core.KindStepStart:
		return fmt.Sprintf("\n**Step %v/%v:** %v\n", e.Fields["step"], e.Fields["total"], e.Fields["description"])
	case core.KindStepSuccess:
		return fmt.Sprintf("- ✅ %s *(%s)*\n", e.Message, ts)
	case core.KindStepFailure, core.KindStepError:
		return fmt.Sprintf("- ❌ %s *(%s)*\n", e.Message, ts)
	case core.KindBeliefsExtracted, core.KindBeliefUpdated:
		return fmt.Sprintf("- 💡 %s\n", e.Message)
	case core.KindIntentionCompleted:
		return fmt.Sprintf("- 🏁 %s\n", e.Message)
	case core.KindPlanInvalidated, core.KindIntentionDropped:
		return fmt.Sprintf("- ⚠️ %s\n", e.Message)
	default:
		return fmt.Sprintf("- %s\n", e.Message)
	}
}

func formatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%v", k, fields[k])
	}
	return out
}

// Err reports the first write error, if any.
func (w *Writer) Err() error {
	return w.err
}

// Close flushes buffered output and closes the file.
func (w *Writer) Close() error {
	if ferr := w.buf.Flush(); ferr != nil && w.err == nil {
		w.err = ferr
	}
	if cerr := w.f.Close(); cerr != nil && w.err == nil {
		w.err = cerr
	}
	return w.err
}
