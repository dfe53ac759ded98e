// Package monitor reconsiders the head intention after each executed step.
// A plan judged invalid against current beliefs is dropped and its desire
// returned to the pending pool for replanning.
package monitor

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/intentmesh/core"
	"github.com/hupe1980/intentmesh/logging"
	"github.com/hupe1980/intentmesh/reasoner"
)

// Monitor validates the remaining steps of the head intention against the
// current belief state.
type Monitor struct {
	reasoner reasoner.Reasoner
	logger   logging.Logger
	sink     core.EventSink
}

// Option customizes a Monitor.
type Option func(*Monitor)

// WithLogger sets the structured logger.
func WithLogger(l logging.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// WithSink sets the event sink.
func WithSink(s core.EventSink) Option {
	return func(m *Monitor) { m.sink = s }
}

// New constructs a Monitor around a reasoner.
func New(r reasoner.Reasoner, opts ...Option) *Monitor {
	m := &Monitor{
		reasoner: r,
		logger:   logging.NoOpLogger{},
		sink:     core.NoOpSink{},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Reconsider checks whether the head intention's remaining steps are still
// worth pursuing. A reasoner failure is treated as a validation of the
// plan: dropping work on a transient judgement error would be worse than
// one extra step of a stale plan.
func (m *Monitor) Reconsider(ctx context.Context, s *core.State) error {
	in, ok := s.Intentions.Head()
	if !ok || in.Done() || len(in.Steps) == 0 {
		return nil
	}

	prompt := m.buildPrompt(s, in)
	res, err := m.reasoner.Call(ctx, prompt, reasoner.ShapeReconsider)
	if err != nil {
		m.logger.Warn("reconsideration call failed, keeping plan", "desire_id", in.DesireID, "error", err)
		m.sink.Record(core.NewEvent(core.KindMonitorError, fmt.Sprintf("reconsideration failed for desire '%s': %v", in.DesireID, err), map[string]any{
			"desire_id": in.DesireID,
			"error":     err.Error(),
		}))
		return nil
	}

	rec, ok := res.(reasoner.Reconsider)
	if !ok || rec.Valid {
		m.logger.Debug("plan still valid", "desire_id", in.DesireID)
		return nil
	}

	m.logger.Info("plan invalidated, returning desire to pending", "desire_id", in.DesireID, "reason", rec.Reason)
	m.sink.Record(core.NewEvent(core.KindPlanInvalidated, fmt.Sprintf("plan for desire '%s' no longer valid: %s", in.DesireID, rec.Reason), map[string]any{
		"desire_id": in.DesireID,
		"reason":    rec.Reason,
	}))
	s.AbortHead()
	return nil
}

func (m *Monitor) buildPrompt(s *core.State, in *core.Intention) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Current beliefs about the world:\n%s\n\n", s.Beliefs.FormatDetailed())
	fmt.Fprintf(&sb, "Recent execution history:\n%s\n\n", in.HistoryContext(5, true))
	fmt.Fprintf(&sb, "Active plan for desire '%s' (%s), remaining steps:\n", in.DesireID, in.Description)
	for i, step := range in.Remaining() {
		fmt.Fprintf(&sb, "%d. %s\n", in.CurrentStep+i+1, step.Description)
	}
	sb.WriteString(`
Given the current beliefs and the execution history, is this plan still valid and worth continuing?
A plan is invalid if its assumptions no longer hold, if the goal has already been achieved, or if the remaining steps cannot succeed under the known constraints.
Explain your judgement briefly.`)
	return sb.String()
}
