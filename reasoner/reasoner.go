package reasoner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/intentmesh/core"
)

// Shape tags the structured result a caller expects from a reasoner call.
// The set is closed; each tag maps onto exactly one Result variant.
type Shape string

const (
	// ShapeText expects a free-form textual result (step execution).
	ShapeText Shape = "text"
	// ShapeIntentList expects a list of high-level intents (planning stage 1).
	ShapeIntentList Shape = "intent_list"
	// ShapeStepList expects an ordered step list (planning stage 2).
	ShapeStepList Shape = "step_list"
	// ShapeAssessment expects a boolean success judgement.
	ShapeAssessment Shape = "assessment"
	// ShapeReconsider expects a plan validity verdict.
	ShapeReconsider Shape = "reconsider"
	// ShapeDirective expects a structured plan-manipulation directive.
	ShapeDirective Shape = "directive"
	// ShapeBeliefExtraction expects beliefs extracted from a step outcome.
	ShapeBeliefExtraction Shape = "belief_extraction"
)

// ErrEmptyResult reports a structurally valid but unusable reasoner result,
// e.g. an intent list with zero intents. Callers classify it separately
// from transport or parse failures.
var ErrEmptyResult = errors.New("reasoner returned an empty result")

// Reasoner is the single capability the engine requires from the external
// reasoning component. Implementations send the prompt, obtain a completion
// and decode it into the Result variant matching the expected shape.
//
// Any call may fail; the caller decides whether a failure aborts a batch,
// fails an intention or is swallowed fail-open. Calls carry no timeout of
// their own beyond what the transport enforces.
type Reasoner interface {
	Call(ctx context.Context, prompt string, shape Shape) (Result, error)
}

// Result is the sealed variant set of reasoner outputs. Exactly one
// concrete type exists per Shape.
type Result interface {
	ResultShape() Shape
}

// Text is the free-form output of a step execution call.
type Text struct {
	Output string `json:"output"`
}

// ResultShape implements Result.
func (Text) ResultShape() Shape { return ShapeText }

// Intent is one high-level intent proposed for a desire.
type Intent struct {
	DesireID    string `json:"desire_id"`
	Description string `json:"description"`
}

// IntentList is the stage-1 planning output.
type IntentList struct {
	Intents []Intent `json:"intentions"`
}

// ResultShape implements Result.
func (IntentList) ResultShape() Shape { return ShapeIntentList }

// StepList is the stage-2 planning output.
type StepList struct {
	Steps []core.IntentionStep `json:"steps"`
}

// ResultShape implements Result.
func (StepList) ResultShape() Shape { return ShapeStepList }

// Assessment is the boolean success judgement of a step outcome.
type Assessment struct {
	Success bool `json:"success"`
}

// ResultShape implements Result.
func (Assessment) ResultShape() Shape { return ShapeAssessment }

// Reconsider is the plan validity verdict produced during monitoring.
type Reconsider struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// ResultShape implements Result.
func (Reconsider) ResultShape() Shape { return ShapeReconsider }

// DirectiveResult wraps the structured interpretation of human guidance.
type DirectiveResult struct {
	Directive core.Directive
}

// ResultShape implements Result.
func (DirectiveResult) ResultShape() Shape { return ShapeDirective }

// ExtractedBelief is one fact surfaced from a step execution result.
type ExtractedBelief struct {
	Name      string  `json:"name"`
	Value     string  `json:"value"`
	Certainty float64 `json:"certainty"`
}

// BeliefExtraction is the outcome of scanning a step result for facts.
type BeliefExtraction struct {
	Beliefs     []ExtractedBelief `json:"beliefs"`
	Explanation string            `json:"explanation"`
}

// ResultShape implements Result.
func (BeliefExtraction) ResultShape() Shape { return ShapeBeliefExtraction }

// Decode parses a raw completion into the Result variant for the given
// shape. Adapters share this so provider packages only deal with transport.
func Decode(shape Shape, raw string) (Result, error) {
	switch shape {
	case ShapeText:
		return Text{Output: raw}, nil
	case ShapeIntentList:
		var out IntentList
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("decode intent list: %w", err)
		}
		return out, nil
	case ShapeStepList:
		var out StepList
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("decode step list: %w", err)
		}
		return out, nil
	case ShapeAssessment:
		var out Assessment
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("decode assessment: %w", err)
		}
		return out, nil
	case ShapeReconsider:
		var out Reconsider
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("decode reconsider result: %w", err)
		}
		return out, nil
	case ShapeDirective:
		var d core.Directive
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, fmt.Errorf("decode directive: %w", err)
		}
		return DirectiveResult{Directive: d}, nil
	case ShapeBeliefExtraction:
		var out BeliefExtraction
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("decode belief extraction: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown result shape %q", shape)
	}
}

// StripFences removes a wrapping markdown code fence from a completion so
// structured payloads decode even when the provider adds ```json markers.
func StripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// FormatInstruction returns the output-format instruction adapters append
// to the prompt for a structured shape. ShapeText gets no instruction.
func FormatInstruction(shape Shape) string {
	switch shape {
	case ShapeIntentList:
		return "Respond with only a JSON object of the form " +
			`{"intentions": [{"desire_id": "...", "description": "..."}]}.`
	case ShapeStepList:
		return "Respond with only a JSON object of the form " +
			`{"steps": [{"description": "...", "is_tool_call": false, "tool_name": "...", "tool_params": {}}]}.`
	case ShapeAssessment:
		return `Respond with only a JSON object of the form {"success": true} or {"success": false}.`
	case ShapeReconsider:
		return `Respond with only a JSON object of the form {"valid": true, "reason": "..."}.`
	case ShapeDirective:
		return "Respond with only a JSON object of the form " +
			`{"manipulationType": "...", "currentStepModifications": {}, "newStepsDefinition": [], ` +
			`"beliefsToUpdate": {"name": {"value": "...", "source": "...", "certainty": 1.0}}, ` +
			`"userGuidanceSummary": "..."}.`
	case ShapeBeliefExtraction:
		return "Respond with only a JSON object of the form " +
			`{"beliefs": [{"name": "...", "value": "...", "certainty": 0.8}], "explanation": "..."}.`
	default:
		return ""
	}
}
