// Package planner turns pending desires into committed plans through a
// two-stage reasoner conversation: desires are first condensed into
// high-level intents, then each intent is expanded into an ordered step
// list. The whole batch is committed to the intention queue atomically.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/intentmesh/core"
	"github.com/hupe1980/intentmesh/logging"
	"github.com/hupe1980/intentmesh/reasoner"
)

// ErrNoIntents reports a stage-1 result that contained zero intents; the
// generation batch is aborted without partial commits.
var ErrNoIntents = errors.New("no high-level intents generated")

// Planner produces intention batches from the agent's actionable desires.
type Planner struct {
	reasoner reasoner.Reasoner
	logger   logging.Logger
	sink     core.EventSink
}

// Option customizes a Planner.
type Option func(*Planner)

// WithLogger sets the structured logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Planner) { p.logger = l }
}

// WithSink sets the event sink.
func WithSink(s core.EventSink) Option {
	return func(p *Planner) { p.sink = s }
}

// New constructs a Planner around a reasoner.
func New(r reasoner.Reasoner, opts ...Option) *Planner {
	p := &Planner{reasoner: r, logger: logging.NoOpLogger{}, sink: core.NoOpSink{}}
	for _, o := range opts {
		o(p)
	}
	return p
}

// GeneratePlans runs the two-stage generation and replaces the intention
// queue with the result. It is a no-op unless the queue is empty and at
// least one desire is actionable.
//
// Stage-1 failures (call error or empty intent list) abort the whole batch
// and return an error; stage-2 failures are isolated to their intent and
// merely skip it.
func (p *Planner) GeneratePlans(ctx context.Context, s *core.State) error {
	if !s.Intentions.Empty() {
		p.logger.Debug("intentions already exist, skipping generation")
		return nil
	}
	actionable := s.Desires.Actionable()
	if len(actionable) == 0 {
		p.logger.Debug("no actionable desires, skipping generation")
		return nil
	}

	intents, err := p.generateIntents(ctx, s, actionable)
	if err != nil {
		p.sink.Record(core.NewEvent(core.KindPlanSkipped, "stage 1 intent generation failed", map[string]any{"error": err.Error()}))
		return fmt.Errorf("stage 1 intent generation: %w", err)
	}
	p.logger.Info("stage 1 complete", "intents", len(intents))

	var batch []*core.Intention
	for _, intent := range intents {
		steps, err := p.generateSteps(ctx, s, intent)
		if err != nil {
			p.logger.Warn("stage 2 failed for intent, skipping", "desire_id", intent.DesireID, "error", err)
			p.sink.Record(core.NewEvent(core.KindPlanSkipped, "stage 2 step generation failed for intent", map[string]any{
				"desire_id":   intent.DesireID,
				"description": intent.Description,
				"error":       err.Error(),
			}))
			continue
		}
		batch = append(batch, &core.Intention{
			DesireID:    intent.DesireID,
			Description: intent.Description,
			Steps:       steps,
		})
	}

	s.Intentions.Replace(batch)
	for _, in := range batch {
		if d, ok := s.Desires.Get(in.DesireID); ok && d.Status == core.DesirePending {
			s.Desires.SetStatus(d.ID, core.DesireActive)
		}
	}
	p.sink.Record(core.NewEvent(core.KindPlanCommitted, fmt.Sprintf("committed %d intention(s)", len(batch)), map[string]any{"intentions": len(batch)}))
	p.logger.Info("intention generation complete", "intentions", len(batch))
	return nil
}

func (p *Planner) generateIntents(ctx context.Context, s *core.State, desires []*core.Desire) ([]reasoner.Intent, error) {
	var desireLines []string
	for _, d := range desires {
		desireLines = append(desireLines, fmt.Sprintf("- ID: %s, Description: %s", d.ID, d.Description))
	}

	guidanceSection := ""
	if len(s.Guidance) > 0 {
		var lines []string
		for _, g := range s.Guidance {
			lines = append(lines, "- "+g)
		}
		guidanceSection = fmt.Sprintf("\n\nUser-Provided Strategic Guidance (consider these as high-level intentions to guide planning):\n%s", strings.Join(lines, "\n"))
	}

	prompt := fmt.Sprintf(`Given the following overall desires and current beliefs, identify high-level intentions required to fulfill these desires.
For each relevant desire, propose one or more concise intentions. Each intention should represent a distinct goal or task achievable by you, the agent.

Focus ONLY on WHAT needs to be done at a high level, but ensure these goals are achievable through information processing, analysis, or using the available tools.
Do not propose intentions that require physical actions in the real world or capabilities you do not possess.

Overall Desires:
%s%s

Current Beliefs:
%s

Respond with a list of high-level intentions. Associate each intention with its corresponding desire ID.`,
		strings.Join(desireLines, "\n"), guidanceSection, s.Beliefs.FormatDetailed())

	res, err := p.reasoner.Call(ctx, prompt, reasoner.ShapeIntentList)
	if err != nil {
		return nil, err
	}
	list, ok := res.(reasoner.IntentList)
	if !ok || len(list.Intents) == 0 {
		return nil, ErrNoIntents
	}
	return list.Intents, nil
}

func (p *Planner) generateSteps(ctx context.Context, s *core.State, intent reasoner.Intent) ([]core.IntentionStep, error) {
	prompt := fmt.Sprintf(`Your task is to create a detailed, step-by-step action plan to achieve the following high-level intention:
'%s' (This contributes to overall Desire ID: %s)

Each step in the plan must be a single, concrete action that you, the agent, can perform. Steps MUST be one of the following:
1. A specific call to an available tool, including necessary parameters based on context and beliefs.
2. An internal information processing or analysis task (e.g. 'Analyze sensor data', 'Summarize report X', 'Decide next action based on criteria Y').

Do not generate steps requiring physical actions or capabilities you do not possess.

Current Beliefs:
%s

IMPORTANT: When planning steps, actively use current beliefs:
- Skip discovery steps if beliefs already contain the needed information
- Use belief values to set initial tool parameters
- Account for constraints or limitations revealed in beliefs
- Build upon information already known rather than re-discovering it

Generate a sequence of detailed steps required to execute this intention. Ensure the steps are logical and sequential.
Focus exclusively on HOW to achieve the intention '%s' using only the allowed action types.`,
		intent.Description, intent.DesireID, s.Beliefs.FormatDetailed(), intent.Description)

	res, err := p.reasoner.Call(ctx, prompt, reasoner.ShapeStepList)
	if err != nil {
		return nil, err
	}
	list, ok := res.(reasoner.StepList)
	if !ok || len(list.Steps) == 0 {
		return nil, reasoner.ErrEmptyResult
	}
	return list.Steps, nil
}
