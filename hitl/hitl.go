// Package hitl implements the human-in-the-loop intervention flow. When a
// step has exhausted its retry budget the controller presents the failure
// to an operator, interprets their natural language guidance through the
// reasoner into a structured directive, confirms the interpretation and
// applies it to the agent state.
package hitl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hupe1980/intentmesh/core"
	"github.com/hupe1980/intentmesh/logging"
	"github.com/hupe1980/intentmesh/reasoner"
)

// phase is the controller's position in the intervention dialogue.
type phase int

const (
	phasePresentFailure phase = iota
	phaseAwaitInput
	phaseInterpret
	phaseAwaitConfirmation
	phaseApply
	phaseDone
)

// Controller drives the intervention dialogue over a line-oriented
// input/output pair, typically stdin and stdout.
type Controller struct {
	reasoner reasoner.Reasoner
	in       *bufio.Reader
	out      io.Writer
	logger   logging.Logger
	sink     core.EventSink
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithSink sets the event sink.
func WithSink(s core.EventSink) Option {
	return func(c *Controller) { c.sink = s }
}

// New constructs a Controller reading guidance from in and writing
// prompts to out. Callers that feed the same stream to more than one
// reader should pass a shared *bufio.Reader so no input is lost to a
// second buffer.
func New(r reasoner.Reasoner, in io.Reader, out io.Writer, opts ...Option) *Controller {
	br, ok := in.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(in)
	}
	c := &Controller{
		reasoner: r,
		in:       br,
		out:      out,
		logger:   logging.NoOpLogger{},
		sink:     core.NoOpSink{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Intervene runs the full intervention dialogue for a failed step. It
// returns whether a plan manipulation was applied and whether beliefs
// changed. Quitting, empty guidance or an uninterpretable instruction
// leaves the state untouched and returns (false, false); belief updates
// survive even when the plan manipulation itself does not apply.
func (c *Controller) Intervene(ctx context.Context, s *core.State, in *core.Intention, step core.IntentionStep, result string) (applied bool, beliefsUpdated bool) {
	c.logger.Info("starting human intervention", "desire_id", in.DesireID, "step", in.CurrentStep+1)
	c.sink.Record(core.NewEvent(core.KindHITLStart, fmt.Sprintf("human intervention for desire '%s', step %d", in.DesireID, in.CurrentStep+1), map[string]any{
		"desire_id": in.DesireID,
		"step":      in.CurrentStep + 1,
	}))

	var (
		guidance  string
		directive core.Directive
		haveDir   bool
	)

	for p := phasePresentFailure; p != phaseDone; {
		switch p {
		case phasePresentFailure:
			c.presentFailure(s, in, step, result)
			p = phaseAwaitInput

		case phaseAwaitInput:
			fmt.Fprintln(c.out, "\nPlease provide guidance on how to proceed (or 'quit' to exit):")
			line, ok := c.readLine()
			if !ok {
				c.abort(in, "input closed during intervention")
				return false, false
			}
			switch strings.ToLower(line) {
			case "quit", "exit", "q", "":
				c.abort(in, "operator provided no guidance")
				return false, false
			}
			guidance = line
			p = phaseInterpret

		case phaseInterpret:
			d, err := c.interpret(ctx, s, in, step, result, guidance)
			if err != nil {
				fmt.Fprintf(c.out, "Failed to interpret guidance: %v. Continuing without changes.\n", err)
				c.abort(in, "guidance could not be interpreted")
				return false, false
			}
			directive = d
			haveDir = true
			p = phaseAwaitConfirmation

		case phaseAwaitConfirmation:
			fmt.Fprintf(c.out, "\nInterpretation of your guidance:\n%s\n\nApply this guidance? (y/n/edit):\n", summarize(directive))
			line, ok := c.readLine()
			if !ok {
				c.abort(in, "input closed during confirmation")
				return false, false
			}
			switch strings.ToLower(line) {
			case "n", "no":
				fmt.Fprintln(c.out, "Guidance declined. Let's try again.")
				p = phasePresentFailure
			case "e", "edit":
				fmt.Fprintln(c.out, "Please provide revised guidance:")
				revised, ok := c.readLine()
				if ok && revised != "" {
					if d, err := c.interpret(ctx, s, in, step, result, revised); err != nil {
						fmt.Fprintln(c.out, "Failed to interpret revised guidance. Using original.")
					} else {
						directive = d
						guidance = revised
					}
				} else {
					fmt.Fprintln(c.out, "No revised guidance provided. Using original.")
				}
				// An edit is its own confirmation: apply whichever
				// directive survived the re-interpretation.
				p = phaseApply
			case "y", "yes":
				p = phaseApply
			default:
				fmt.Fprintln(c.out, "Invalid response. Assuming 'yes'.")
				p = phaseApply
			}

		case phaseApply:
			applied, beliefsUpdated = s.ApplyDirective(directive)
			p = phaseDone
		}
	}

	if !haveDir {
		return false, false
	}

	c.logger.Info("intervention finished", "manipulation", string(directive.Manipulation), "applied", applied, "beliefs_updated", beliefsUpdated)
	c.sink.Record(core.NewEvent(core.KindHITLApplied, fmt.Sprintf("guidance interpreted as %s", directive.Manipulation), map[string]any{
		"manipulation":    string(directive.Manipulation),
		"guidance":        guidance,
		"summary":         directive.Summary,
		"applied":         applied,
		"beliefs_updated": beliefsUpdated,
	}))
	if applied {
		fmt.Fprintln(c.out, "Guidance applied.")
	} else {
		fmt.Fprintln(c.out, "Guidance could not be applied to the plan.")
	}
	return applied, beliefsUpdated
}

func (c *Controller) abort(in *core.Intention, reason string) {
	fmt.Fprintln(c.out, "Continuing without guidance.")
	c.logger.Info("intervention aborted", "desire_id", in.DesireID, "reason", reason)
	c.sink.Record(core.NewEvent(core.KindHITLAborted, fmt.Sprintf("intervention for desire '%s' aborted: %s", in.DesireID, reason), nil))
}

func (c *Controller) readLine() (string, bool) {
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.TrimSpace(line), true
}

// presentFailure prints the failure context in a readable form.
func (c *Controller) presentFailure(s *core.State, in *core.Intention, step core.IntentionStep, result string) {
	fmt.Fprintln(c.out, "------------------------------------------------------------")
	fmt.Fprintf(c.out, "HUMAN INTERVENTION REQUIRED for Desire '%s'\n", in.DesireID)
	fmt.Fprintln(c.out, "------------------------------------------------------------")
	fmt.Fprintf(c.out, "Failed Step (%d/%d): %s\n", in.CurrentStep+1, len(in.Steps), step.Description)
	if step.IsToolCall && step.ToolName != "" {
		params := "{}"
		if len(step.ToolParams) > 0 {
			if raw, err := json.Marshal(step.ToolParams); err == nil {
				params = string(raw)
			}
		}
		fmt.Fprintf(c.out, "  Tool Call: %s(%s)\n", step.ToolName, params)
	}
	fmt.Fprintf(c.out, "Step Result: %s\n", result)
	fmt.Fprintln(c.out, "\nCurrent Beliefs:")
	if s.Beliefs.Len() == 0 {
		fmt.Fprintln(c.out, "  (None)")
	} else {
		fmt.Fprintln(c.out, s.Beliefs.FormatDetailed())
	}
	remaining := in.Remaining()
	if len(remaining) > 1 {
		fmt.Fprintln(c.out, "\nRemaining Plan Steps:")
		for i, st := range remaining[1:] {
			fmt.Fprintf(c.out, "  %d. %s\n", i+1, st.Description)
		}
	} else {
		fmt.Fprintln(c.out, "\nNo remaining steps in this plan.")
	}
	fmt.Fprintln(c.out, "------------------------------------------------------------")
}

// interpret turns the operator's natural language guidance into a
// structured directive via the reasoner.
func (c *Controller) interpret(ctx context.Context, s *core.State, in *core.Intention, step core.IntentionStep, result, guidance string) (core.Directive, error) {
	stepJSON, _ := json.Marshal(step)
	remaining := in.Remaining()
	var after []core.IntentionStep
	if len(remaining) > 1 {
		after = remaining[1:]
	}
	remainingJSON, _ := json.Marshal(after)

	prompt := fmt.Sprintf(`The agent encountered a failure during plan execution.
The user has provided natural language guidance on how to proceed.
Your task is to interpret this guidance and translate it into a structured plan manipulation directive.

Current Failure Context:
- Desire ID: %s
- Failed Step (%d/%d): "%s"
- Original Failed Step Object: %s
- Step Result: %q
- Current Beliefs:
%s
- Remaining Plan Steps (after failed one): %s

User's Natural Language Guidance:
"%s"

Instructions:
1. Analyze the user's guidance in the context of the failure.
2. Determine the most appropriate manipulationType.

CRITICAL: Extract Factual Information to Beliefs
3. ALWAYS populate beliefsToUpdate when the user provides factual information, REGARDLESS of manipulationType.
   Belief extraction is independent of plan modification. You can extract beliefs AND modify the plan in the same directive.
   Examples: file paths, status values, configuration values, constraints, error causes.

Plan Manipulation:
4. If the user suggests modifying the current step, populate currentStepModifications with the changed fields.
5. If the user suggests new steps, populate newStepsDefinition with complete step objects (description, is_tool_call, tool_name, tool_params).

Summary:
6. Provide a concise userGuidanceSummary explaining your interpretation, chosen action and any beliefs extracted.
7. If the guidance is unclear or merely a comment, use COMMENT_NO_ACTION and explain in the summary, but still extract beliefs if factual information was provided.`,
		in.DesireID, in.CurrentStep+1, len(in.Steps), step.Description,
		stepJSON, result, s.Beliefs.FormatDetailed(), remainingJSON, guidance)

	res, err := c.reasoner.Call(ctx, prompt, reasoner.ShapeDirective)
	if err != nil {
		c.logger.Error("guidance interpretation failed", "error", err)
		return core.Directive{}, err
	}
	return res.(reasoner.DirectiveResult).Directive, nil
}

// summarize renders a directive as a human-readable confirmation text.
func summarize(d core.Directive) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Action Type: %s\n", titleWords(string(d.Manipulation)))
	fmt.Fprintf(&sb, "Understanding: %s", d.Summary)
	if len(d.StepChanges) > 0 {
		raw, _ := json.Marshal(d.StepChanges)
		fmt.Fprintf(&sb, "\n  - Modifications to current step: %s", raw)
	}
	if len(d.NewSteps) > 0 {
		sb.WriteString("\n  - New Steps Proposed:")
		for i, st := range d.NewSteps {
			fmt.Fprintf(&sb, "\n    %d. %s", i+1, st.Description)
			if st.ToolName != "" {
				params := "{}"
				if len(st.ToolParams) > 0 {
					if raw, err := json.Marshal(st.ToolParams); err == nil {
						params = string(raw)
					}
				}
				fmt.Fprintf(&sb, " (Tool: %s, Params: %s)", st.ToolName, params)
			}
		}
	}
	if len(d.BeliefUpdates) > 0 {
		sb.WriteString("\n  - Belief Updates Proposed:")
		names := make([]string, 0, len(d.BeliefUpdates))
		for name := range d.BeliefUpdates {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "\n    - '%s': %v", name, d.BeliefUpdates[name].Value)
		}
	}
	return sb.String()
}

// titleWords renders MANIPULATION_TYPE constants as "Manipulation Type".
func titleWords(s string) string {
	words := strings.Split(strings.ToLower(s), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
