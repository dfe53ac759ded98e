package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// IntentionStep is a single action within a committed plan. A step is either
// a tool invocation hint (IsToolCall with ToolName/ToolParams) or a
// descriptive information-processing task.
type IntentionStep struct {
	Description string         `json:"description"`
	IsToolCall  bool           `json:"is_tool_call"`
	ToolName    string         `json:"tool_name,omitempty"`
	ToolParams  map[string]any `json:"tool_params,omitempty"`
}

// StepRecord captures one executed attempt of a step, including a snapshot
// of the beliefs held at that moment. Records are append-only.
type StepRecord struct {
	StepDescription string            `json:"step_description"`
	StepNumber      int               `json:"step_number"`
	Result          string            `json:"result"`
	Success         bool              `json:"success"`
	Timestamp       time.Time         `json:"timestamp"`
	Beliefs         map[string]Belief `json:"beliefs"`
}

// Intention is a committed, ordered plan adopted to satisfy one desire.
// CurrentStep is the cursor of the next step to execute; the invariant
// 0 <= CurrentStep <= len(Steps) holds at every tick boundary.
type Intention struct {
	DesireID    string          `json:"desire_id"`
	Description string          `json:"description,omitempty"`
	Steps       []IntentionStep `json:"steps"`
	CurrentStep int             `json:"current_step"`
	History     []StepRecord    `json:"step_history"`
}

// Current returns the step at the cursor.
func (in *Intention) Current() (IntentionStep, bool) {
	if in.CurrentStep < 0 || in.CurrentStep >= len(in.Steps) {
		return IntentionStep{}, false
	}
	return in.Steps[in.CurrentStep], true
}

// Remaining returns the steps from the cursor onward.
func (in *Intention) Remaining() []IntentionStep {
	if in.CurrentStep >= len(in.Steps) {
		return nil
	}
	return in.Steps[in.CurrentStep:]
}

// Done reports whether the cursor has passed the final step.
func (in *Intention) Done() bool { return in.CurrentStep >= len(in.Steps) }

// Advance moves the cursor forward by one step.
func (in *Intention) Advance() { in.CurrentStep++ }

// Record appends an execution attempt to the step history.
func (in *Intention) Record(step IntentionStep, result string, success bool, beliefs map[string]Belief) {
	in.History = append(in.History, StepRecord{
		StepDescription: step.Description,
		StepNumber:      in.CurrentStep,
		Result:          result,
		Success:         success,
		Timestamp:       time.Now().UTC(),
		Beliefs:         beliefs,
	})
}

// HistoryContext renders the most recent history entries as a prompt
// fragment. With detailed set, each entry includes its result and the
// beliefs snapshot taken at execution time.
func (in *Intention) HistoryContext(maxEntries int, detailed bool) string {
	if len(in.History) == 0 {
		return "No previous steps executed."
	}
	recent := in.History
	if len(recent) > maxEntries {
		recent = recent[len(recent)-maxEntries:]
	}
	var lines []string
	for _, rec := range recent {
		outcome := "Failed"
		if rec.Success {
			outcome = "Success"
		}
		line := fmt.Sprintf("Step %d: %s - %s", rec.StepNumber+1, rec.StepDescription, outcome)
		if detailed {
			var details []string
			details = append(details, fmt.Sprintf("  Result: %s", rec.Result))
			details = append(details, fmt.Sprintf("  Timestamp: %s", rec.Timestamp.Format(time.RFC3339)))
			if len(rec.Beliefs) > 0 {
				details = append(details, "  Beliefs held:")
				for _, name := range sortedBeliefNames(rec.Beliefs) {
					b := rec.Beliefs[name]
					details = append(details, fmt.Sprintf("    - %s: %v (Certainty: %.2f)", name, b.Value, b.Certainty))
				}
			}
			line += "\n" + strings.Join(details, "\n")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func sortedBeliefNames(beliefs map[string]Belief) []string {
	names := make([]string, 0, len(beliefs))
	for name := range beliefs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IntentionQueue is the FIFO of committed plans. Only the head intention is
// ever active; the API hands out a mutable pointer exclusively through
// Head so that non-head intentions cannot be touched mid-tick.
type IntentionQueue struct {
	items []*Intention
}

// NewIntentionQueue constructs an empty queue.
func NewIntentionQueue() *IntentionQueue {
	return &IntentionQueue{}
}

// Head returns the active intention, if any. The returned pointer is the
// only sanctioned mutation path into the queue's contents.
func (q *IntentionQueue) Head() (*Intention, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	return q.items[0], true
}

// Pop removes and returns the head intention.
func (q *IntentionQueue) Pop() (*Intention, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, true
}

// Push appends an intention to the back of the queue.
func (q *IntentionQueue) Push(in *Intention) {
	q.items = append(q.items, in)
}

// Replace swaps the entire queue contents atomically. The planner commits
// a full generation batch through this single call.
func (q *IntentionQueue) Replace(items []*Intention) {
	q.items = append([]*Intention(nil), items...)
}

// Len returns the number of queued intentions.
func (q *IntentionQueue) Len() int { return len(q.items) }

// Empty reports whether no intentions are queued.
func (q *IntentionQueue) Empty() bool { return len(q.items) == 0 }

// Summaries returns one line per queued intention for state snapshots.
func (q *IntentionQueue) Summaries() []string {
	out := make([]string, 0, len(q.items))
	for _, in := range q.items {
		next := "(Completed)"
		if step, ok := in.Current(); ok {
			next = step.Description
		}
		out = append(out, fmt.Sprintf("Desire '%s': Next -> %s (Step %d/%d)", in.DesireID, next, in.CurrentStep+1, len(in.Steps)))
	}
	return out
}
