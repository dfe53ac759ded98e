// Package executor advances the head intention by exactly one step per
// tick. It builds the step prompt, calls the reasoner, assesses the
// outcome, extracts beliefs from the result and retries failed assessments
// within a fixed in-process budget before escalating to a human or pausing
// the intention for the monitor.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/intentmesh/core"
	"github.com/hupe1980/intentmesh/logging"
	"github.com/hupe1980/intentmesh/reasoner"
)

// defaultMaxAttempts is the per-step execution budget: one initial attempt
// plus two local retries.
const defaultMaxAttempts = 3

// Interventionist escalates an exhausted step failure to a human operator.
// It reports whether a plan edit was applied and whether beliefs changed.
type Interventionist interface {
	Intervene(ctx context.Context, s *core.State, in *core.Intention, step core.IntentionStep, result string) (applied bool, beliefsUpdated bool)
}

// Outcome tells the orchestrator what a human changed during this tick so
// it can skip reconsideration of a freshly edited plan.
type Outcome struct {
	PlanEdited    bool
	BeliefsEdited bool
}

// Executor runs one step of the head intention per call.
type Executor struct {
	reasoner    reasoner.Reasoner
	logger      logging.Logger
	sink        core.EventSink
	hitl        Interventionist
	maxAttempts int
}

// Option customizes an Executor.
type Option func(*Executor)

// WithLogger sets the structured logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithSink sets the event sink.
func WithSink(s core.EventSink) Option {
	return func(e *Executor) { e.sink = s }
}

// WithInterventionist enables human-in-the-loop escalation on exhausted
// retries. A nil interventionist leaves failed intentions paused for the
// monitor instead.
func WithInterventionist(h Interventionist) Option {
	return func(e *Executor) { e.hitl = h }
}

// WithMaxAttempts overrides the per-step execution budget.
func WithMaxAttempts(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// New constructs an Executor around a reasoner.
func New(r reasoner.Reasoner, opts ...Option) *Executor {
	e := &Executor{
		reasoner:    r,
		logger:      logging.NoOpLogger{},
		sink:        core.NoOpSink{},
		maxAttempts: defaultMaxAttempts,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// failedAttempt summarizes one failed execution attempt for retry prompts.
type failedAttempt struct {
	result  string
	beliefs []reasoner.ExtractedBelief
}

// ExecuteStep executes at most one step of the head intention.
//
// A raised error from the step-execution call itself is never retried: it
// immediately fails the owning intention (desire FAILED, intention dropped,
// history recorded). A negative assessment is retried up to the budget,
// then escalated to the interventionist if one is configured, otherwise
// the intention is left paused for reconsideration.
func (e *Executor) ExecuteStep(ctx context.Context, s *core.State) Outcome {
	in, ok := s.Intentions.Head()
	if !ok {
		e.logger.Debug("no intentions to execute")
		return Outcome{}
	}

	// An intention whose cursor already passed the final step is swept
	// here without running anything.
	if in.Done() {
		e.logger.Info("intention already completed", "desire_id", in.DesireID)
		e.sink.Record(core.NewEvent(core.KindIntentionCompleted, fmt.Sprintf("intention for desire '%s' already completed", in.DesireID), nil))
		s.CompleteHead()
		return Outcome{}
	}

	step, _ := in.Current()
	stepNumber := in.CurrentStep + 1
	e.sink.Record(core.NewEvent(core.KindStepStart, fmt.Sprintf("executing step %d/%d for desire '%s'", stepNumber, len(in.Steps), in.DesireID), map[string]any{
		"desire_id":   in.DesireID,
		"step":        stepNumber,
		"total":       len(in.Steps),
		"description": step.Description,
		"tool_name":   step.ToolName,
	}))

	var attempts []failedAttempt
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		prompt := e.buildStepPrompt(s, step, attempts)

		res, err := e.reasoner.Call(ctx, prompt, reasoner.ShapeText)
		if err != nil {
			// A raised execution error is fatal to the intention.
			in.Record(step, fmt.Sprintf("Exception: %v", err), false, s.Beliefs.Snapshot())
			e.logger.Error("step execution raised, failing intention", "desire_id", in.DesireID, "step", stepNumber, "error", err)
			e.sink.Record(core.NewEvent(core.KindStepError, fmt.Sprintf("step %d raised: %v", stepNumber, err), map[string]any{
				"desire_id": in.DesireID,
				"step":      stepNumber,
				"error":     err.Error(),
			}))
			s.FailHead()
			e.sink.Record(core.NewEvent(core.KindIntentionDropped, fmt.Sprintf("intention for desire '%s' dropped after execution error", in.DesireID), nil))
			return Outcome{}
		}
		result := res.(reasoner.Text).Output

		success := e.assess(ctx, in, step, result)
		extracted := e.extractBeliefs(ctx, s, in, step, result, success)
		in.Record(step, result, success, s.Beliefs.Snapshot())
		e.logStepAttempt(in.DesireID, stepNumber, attempt, success)

		if success {
			e.sink.Record(core.NewEvent(core.KindStepSuccess, fmt.Sprintf("step %d succeeded", stepNumber), map[string]any{
				"desire_id": in.DesireID,
				"step":      stepNumber,
				"attempt":   attempt,
			}))
			in.Advance()
			if in.Done() {
				e.logger.Info("final step completed, intention finished", "desire_id", in.DesireID)
				e.sink.Record(core.NewEvent(core.KindIntentionCompleted, fmt.Sprintf("intention for desire '%s' finished", in.DesireID), nil))
				s.CompleteHead()
			}
			return Outcome{}
		}

		e.sink.Record(core.NewEvent(core.KindStepFailure, fmt.Sprintf("step %d failed assessment (attempt %d/%d)", stepNumber, attempt, e.maxAttempts), map[string]any{
			"desire_id": in.DesireID,
			"step":      stepNumber,
			"attempt":   attempt,
		}))
		attempts = append(attempts, failedAttempt{result: result, beliefs: extracted})
	}

	// Retry budget exhausted without a raised error.
	last := attempts[len(attempts)-1]
	if e.hitl != nil {
		applied, beliefsUpdated := e.hitl.Intervene(ctx, s, in, step, last.result)
		return Outcome{PlanEdited: applied, BeliefsEdited: beliefsUpdated}
	}
	e.logger.Warn("step failed all attempts, intention paused pending reconsideration", "desire_id", in.DesireID, "step", stepNumber, "attempts", e.maxAttempts)
	return Outcome{}
}

func (e *Executor) logStepAttempt(desireID string, stepNumber, attempt int, success bool) {
	if el, ok := e.logger.(*logging.EngineLogger); ok {
		el.LogStepExecution(desireID, stepNumber, attempt, success)
		return
	}
	e.logger.Info("step attempt finished", "desire_id", desireID, "step", stepNumber, "attempt", attempt, "success", success)
}

// buildStepPrompt constructs the execution prompt for the current step.
// Tool-call steps embed the tool name and suggested parameters; descriptive
// steps embed the task text. Retries additionally carry a summary of the
// prior failed attempts and the beliefs learned from them.
func (e *Executor) buildStepPrompt(s *core.State, step core.IntentionStep, prior []failedAttempt) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Current known information (beliefs):\n%s\n\n", s.Beliefs.FormatContext())

	if step.IsToolCall && step.ToolName != "" {
		params := "{}"
		if len(step.ToolParams) > 0 {
			if raw, err := json.Marshal(step.ToolParams); err == nil {
				params = string(raw)
			}
		}
		fmt.Fprintf(&sb, "Execute the tool '%s' with the suggested parameters: %s\n\n", step.ToolName, params)
		sb.WriteString("You may adjust parameters if current beliefs suggest better values or if conditions have changed.\nPerform this action now.")
	} else {
		fmt.Fprintf(&sb, "Task: %s\n\nConsider the current beliefs when executing this task.", step.Description)
	}

	if len(prior) > 0 {
		sb.WriteString("\n\nPrevious attempts at this step failed:")
		for i, a := range prior {
			fmt.Fprintf(&sb, "\n- Attempt %d result: %s", i+1, a.result)
			for _, b := range a.beliefs {
				fmt.Fprintf(&sb, "\n  Learned: %s = %s", b.Name, b.Value)
			}
		}
		sb.WriteString("\nTake a different approach that accounts for these failures.")
	}
	return sb.String()
}

// assess asks the reasoner for a boolean success judgement of the step
// result. A failed assessment call counts as a negative judgement.
func (e *Executor) assess(ctx context.Context, in *core.Intention, step core.IntentionStep, result string) bool {
	prompt := fmt.Sprintf(`Original objective for the step: "%s"
Result obtained: "%s"

Recent step history:
%s

Based on the result obtained and recent history, did the step successfully achieve its original objective?
Consider the context of previous steps and their outcomes in your assessment.`,
		step.Description, result, in.HistoryContext(3, false))

	res, err := e.reasoner.Call(ctx, prompt, reasoner.ShapeAssessment)
	if err != nil {
		e.logger.Error("success assessment call failed", "error", err)
		return false
	}
	assessment, ok := res.(reasoner.Assessment)
	return ok && assessment.Success
}

// extractBeliefs runs after every assessed outcome, success or failure,
// and merges surfaced facts into the belief store tagged with the step as
// source. Extraction errors are logged and swallowed; they never affect
// the step outcome.
func (e *Executor) extractBeliefs(ctx context.Context, s *core.State, in *core.Intention, step core.IntentionStep, result string, success bool) []reasoner.ExtractedBelief {
	prompt := fmt.Sprintf(`Analyze the following step execution and extract any factual information that should be recorded as beliefs.

Step Objective: "%s"
Step Result: "%s"
Step Success: %t

Extract beliefs about:
- Factual information discovered (e.g. file paths, status values, API responses)
- Error causes or constraints (e.g. "path does not exist", "network unavailable")
- State changes or conditions revealed
- Tool availability or limitations learned

For FAILED steps, focus on extracting information about WHY it failed - these constraints are valuable.
For SUCCESSFUL steps, extract the positive information discovered.

Return a list of beliefs with concise names and clear values. Set certainty based on how definitive the information is.
If no meaningful beliefs can be extracted, return an empty list with an explanation.`,
		step.Description, result, success)

	res, err := e.reasoner.Call(ctx, prompt, reasoner.ShapeBeliefExtraction)
	if err != nil {
		e.logger.Error("belief extraction call failed", "error", err)
		return nil
	}
	extraction, ok := res.(reasoner.BeliefExtraction)
	if !ok || len(extraction.Beliefs) == 0 {
		e.logger.Debug("no beliefs extracted", "explanation", extraction.Explanation)
		return nil
	}

	source := fmt.Sprintf("step_%d_%s", in.CurrentStep+1, truncate(step.Description, 30))
	for _, b := range extraction.Beliefs {
		s.Beliefs.Update(b.Name, b.Value, source, b.Certainty)
	}
	e.sink.Record(core.NewEvent(core.KindBeliefsExtracted, fmt.Sprintf("extracted %d belief(s) from step result", len(extraction.Beliefs)), map[string]any{
		"count":       len(extraction.Beliefs),
		"explanation": extraction.Explanation,
		"source":      source,
	}))
	return extraction.Beliefs
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
