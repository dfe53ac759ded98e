package core

import "sort"

// ManipulationType enumerates the structured plan edits a human directive
// may request. The set is closed; unrecognized values are treated as
// comments with no structural effect.
type ManipulationType string

const (
	// RetryCurrentAsIs retries the current step without changes.
	RetryCurrentAsIs ManipulationType = "RETRY_CURRENT_AS_IS"
	// ModifyCurrentAndRetry overwrites fields of the current step, then retries.
	ModifyCurrentAndRetry ManipulationType = "MODIFY_CURRENT_AND_RETRY"
	// ReplaceCurrentStepWithNew splices new steps in place of the current one.
	ReplaceCurrentStepWithNew ManipulationType = "REPLACE_CURRENT_STEP_WITH_NEW"
	// InsertNewStepsBeforeCurrent inserts new steps ahead of the cursor.
	InsertNewStepsBeforeCurrent ManipulationType = "INSERT_NEW_STEPS_BEFORE_CURRENT"
	// InsertNewStepsAfterCurrent inserts new steps just past the cursor.
	InsertNewStepsAfterCurrent ManipulationType = "INSERT_NEW_STEPS_AFTER_CURRENT"
	// ReplaceRemainderOfPlan discards the rest of the plan in favor of new steps.
	ReplaceRemainderOfPlan ManipulationType = "REPLACE_REMAINDER_OF_PLAN"
	// SkipCurrentStep advances past the current step without executing it.
	SkipCurrentStep ManipulationType = "SKIP_CURRENT_STEP"
	// AbortIntention removes the intention and resets its desire to PENDING.
	AbortIntention ManipulationType = "ABORT_INTENTION"
	// UpdateBeliefsAndRetry applies belief updates and retries the step.
	UpdateBeliefsAndRetry ManipulationType = "UPDATE_BELIEFS_AND_RETRY"
	// CommentNoAction records a comment with no structural change.
	CommentNoAction ManipulationType = "COMMENT_NO_ACTION"
)

// BeliefPatch is the wire form of one belief update inside a directive.
// Source defaults to "human_guidance" and Certainty to 1.0 when omitted.
type BeliefPatch struct {
	Value     any      `json:"value"`
	Source    string   `json:"source,omitempty"`
	Certainty *float64 `json:"certainty,omitempty"`
}

// Directive is the structured result of interpreting free-text human
// guidance: one manipulation of the current plan, optional field edits for
// the current step, optional replacement steps and optional belief updates.
type Directive struct {
	Manipulation  ManipulationType       `json:"manipulationType"`
	StepChanges   map[string]any         `json:"currentStepModifications,omitempty"`
	NewSteps      []IntentionStep        `json:"newStepsDefinition,omitempty"`
	BeliefUpdates map[string]BeliefPatch `json:"beliefsToUpdate,omitempty"`
	Summary       string                 `json:"userGuidanceSummary"`
}

// ApplyDirective mutates the head intention according to the directive.
//
// Belief updates are applied first and unconditionally, independent of the
// manipulation type. The returned tuple reports whether the plan edit was
// applied and whether any beliefs were updated; every call path returns
// this same tuple form. An empty step list after REPLACE_REMAINDER_OF_PLAN
// is equivalent to ABORT_INTENTION.
func (s *State) ApplyDirective(d Directive) (applied bool, beliefsUpdated bool) {
	beliefsUpdated = s.applyBeliefPatches(d.BeliefUpdates)

	in, ok := s.Intentions.Head()
	if !ok {
		return false, beliefsUpdated
	}
	idx := in.CurrentStep

	switch d.Manipulation {
	case RetryCurrentAsIs:
		applied = true

	case ModifyCurrentAndRetry:
		if idx < len(in.Steps) {
			applyStepChanges(&in.Steps[idx], d.StepChanges)
		}
		// Retrying as-is when no modifications were supplied still counts
		// as an applied edit; the step will be re-attempted next tick.
		applied = true

	case ReplaceCurrentStepWithNew:
		if len(d.NewSteps) == 0 || idx >= len(in.Steps) {
			return false, beliefsUpdated
		}
		in.Steps = spliceSteps(in.Steps, idx, idx+1, d.NewSteps)
		applied = true

	case InsertNewStepsBeforeCurrent:
		if len(d.NewSteps) == 0 {
			return false, beliefsUpdated
		}
		in.Steps = spliceSteps(in.Steps, idx, idx, d.NewSteps)
		applied = true

	case InsertNewStepsAfterCurrent:
		if len(d.NewSteps) == 0 {
			return false, beliefsUpdated
		}
		at := idx + 1
		if at > len(in.Steps) {
			at = len(in.Steps)
		}
		in.Steps = spliceSteps(in.Steps, at, at, d.NewSteps)
		applied = true

	case ReplaceRemainderOfPlan:
		in.Steps = append(in.Steps[:idx:idx], d.NewSteps...)
		if len(in.Steps) == 0 {
			s.AbortHead()
			return true, beliefsUpdated
		}
		applied = true

	case SkipCurrentStep:
		if idx >= len(in.Steps) {
			return false, beliefsUpdated
		}
		in.Advance()
		if in.Done() {
			s.CompleteHead()
		}
		applied = true

	case AbortIntention:
		s.AbortHead()
		applied = true

	case UpdateBeliefsAndRetry:
		// Belief application already happened above; the step is simply
		// retried on the next tick.
		applied = true

	case CommentNoAction:
		applied = false

	default:
		applied = false
	}

	return applied, beliefsUpdated
}

func (s *State) applyBeliefPatches(patches map[string]BeliefPatch) bool {
	if len(patches) == 0 {
		return false
	}
	for _, name := range sortedPatchNames(patches) {
		p := patches[name]
		source := p.Source
		if source == "" {
			source = "human_guidance"
		}
		certainty := 1.0
		if p.Certainty != nil {
			certainty = *p.Certainty
		}
		s.Beliefs.Update(name, p.Value, source, certainty)
	}
	return true
}

func sortedPatchNames(patches map[string]BeliefPatch) []string {
	names := make([]string, 0, len(patches))
	for name := range patches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// applyStepChanges overwrites recognized fields of a step from a directive's
// field/value map. Keys follow the directive wire shape.
func applyStepChanges(step *IntentionStep, changes map[string]any) {
	for key, value := range changes {
		switch key {
		case "description":
			if v, ok := value.(string); ok {
				step.Description = v
			}
		case "is_tool_call":
			if v, ok := value.(bool); ok {
				step.IsToolCall = v
			}
		case "tool_name":
			if v, ok := value.(string); ok {
				step.ToolName = v
			}
		case "tool_params":
			if v, ok := value.(map[string]any); ok {
				step.ToolParams = v
			}
		}
	}
}

// spliceSteps replaces steps[from:to] with the given replacement.
func spliceSteps(steps []IntentionStep, from, to int, replacement []IntentionStep) []IntentionStep {
	out := make([]IntentionStep, 0, len(steps)-(to-from)+len(replacement))
	out = append(out, steps[:from]...)
	out = append(out, replacement...)
	out = append(out, steps[to:]...)
	return out
}
