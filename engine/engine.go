// Package engine orchestrates the deliberation cycle. Each tick runs one
// pass of plan generation, single-step execution and plan reconsideration
// over shared agent state, or prompts the operator for a new goal when the
// agent has nothing left to do.
//
// The engine is strictly single-threaded: all state mutation happens
// inside Tick on the caller's goroutine. Cancellation is observed between
// ticks and between the phases of a tick, never mid-phase.
package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hupe1980/intentmesh/core"
	"github.com/hupe1980/intentmesh/executor"
	"github.com/hupe1980/intentmesh/logging"
	"github.com/hupe1980/intentmesh/monitor"
	"github.com/hupe1980/intentmesh/planner"
)

// Status reports how a tick concluded.
type Status string

const (
	// StatusExecuted means the tick ran at least one phase against an
	// active workload.
	StatusExecuted Status = "executed"

	// StatusIdlePrompted means the agent was idle and the operator
	// supplied a new goal.
	StatusIdlePrompted Status = "idlePrompted"

	// StatusStopped means the agent was idle and the operator declined
	// to supply a new goal.
	StatusStopped Status = "stopped"

	// StatusInterrupted means the context was cancelled between phases.
	StatusInterrupted Status = "interrupted"
)

// Options configures an Engine.
type Options struct {
	// Input supplies operator goal lines when the agent goes idle.
	// A nil Input disables the idle prompt: an idle tick stops instead.
	Input io.Reader

	// Output receives the idle prompt text.
	Output io.Writer

	// Logger provides structured logging. Defaults to NoOpLogger.
	Logger logging.Logger

	// Sink receives lifecycle events. Defaults to NoOpSink.
	Sink core.EventSink
}

// Engine runs the deliberation cycle over a shared State.
type Engine struct {
	state    *core.State
	planner  *planner.Planner
	executor *executor.Executor
	monitor  *monitor.Monitor
	in       *bufio.Reader
	out      io.Writer
	logger   logging.Logger
	sink     core.EventSink
}

// New constructs an Engine from its three phase components.
func New(s *core.State, p *planner.Planner, e *executor.Executor, m *monitor.Monitor, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Logger: logging.NoOpLogger{},
		Sink:   core.NoOpSink{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	eng := &Engine{
		state:    s,
		planner:  p,
		executor: e,
		monitor:  m,
		out:      opts.Output,
		logger:   opts.Logger,
		sink:     opts.Sink,
	}
	if opts.Input != nil {
		if br, ok := opts.Input.(*bufio.Reader); ok {
			eng.in = br
		} else {
			eng.in = bufio.NewReader(opts.Input)
		}
	}
	if eng.out == nil {
		eng.out = io.Discard
	}
	return eng
}

// State returns the shared agent state. Callers must not mutate it while
// a tick is in flight.
func (e *Engine) State() *core.State {
	return e.state
}

// Tick runs one deliberation cycle: generate plans if the queue is empty
// and goals remain, execute one step of the head intention, then
// reconsider the plan against updated beliefs. Reconsideration is skipped
// when a human edited the plan during this tick, so the fresh edit gets
// one execution attempt before being judged.
func (e *Engine) Tick(ctx context.Context) Status {
	start := time.Now()
	e.state.Cycle++
	e.logger.Info("cycle start", "cycle", e.state.Cycle)
	e.sink.Record(core.NewEvent(core.KindCycleStart, fmt.Sprintf("cycle %d", e.state.Cycle), map[string]any{"cycle": e.state.Cycle}))
	e.sink.Record(core.NewEvent(core.KindStateSnapshot, "state at cycle start", e.state.Snapshot()))

	status := StatusExecuted
	defer func() {
		e.sink.Record(core.NewEvent(core.KindCycleEnd, fmt.Sprintf("cycle %d finished: %s", e.state.Cycle, status), map[string]any{
			"cycle":  e.state.Cycle,
			"status": string(status),
		}))
		e.logCycle(time.Since(start), status)
	}()

	if err := ctx.Err(); err != nil {
		status = StatusInterrupted
		return status
	}

	// PLAN: only when no intention is in flight.
	if e.state.Intentions.Empty() && len(e.state.Desires.Actionable()) > 0 {
		if err := e.planner.GeneratePlans(ctx, e.state); err != nil {
			e.logger.Error("plan generation failed", "error", err)
		}
	}

	if err := ctx.Err(); err != nil {
		status = StatusInterrupted
		return status
	}

	// Idle: nothing to execute and nothing left to plan for.
	if e.state.Intentions.Empty() {
		if len(e.state.Desires.Actionable()) > 0 {
			// Planning produced no intentions this cycle; the
			// pending desires get another attempt next tick.
			e.logger.Warn("no intentions after planning, retrying next cycle", "actionable_desires", len(e.state.Desires.Actionable()))
			return status
		}
		status = e.promptForGoal()
		return status
	}

	// EXECUTE one step of the head intention.
	outcome := e.executor.ExecuteStep(ctx, e.state)

	if err := ctx.Err(); err != nil {
		status = StatusInterrupted
		return status
	}

	// RECONSIDER, unless the plan was just edited by a human.
	if outcome.PlanEdited {
		e.logger.Debug("skipping reconsideration after human plan edit")
	} else if err := e.monitor.Reconsider(ctx, e.state); err != nil {
		e.logger.Error("reconsideration failed", "error", err)
	}

	return status
}

// promptForGoal asks the operator for a new goal when idle. An empty line
// or a quit keyword stops the agent.
func (e *Engine) promptForGoal() Status {
	if e.in == nil {
		e.logger.Info("agent idle with no input source, stopping")
		return StatusStopped
	}

	fmt.Fprintln(e.out, "\nAgent is idle. Enter a new goal (or press Enter to stop):")
	line, err := e.in.ReadString('\n')
	goal := strings.TrimSpace(line)
	if err != nil && goal == "" {
		return StatusStopped
	}
	switch strings.ToLower(goal) {
	case "", "quit", "exit", "q":
		e.logger.Info("operator stopped the agent")
		return StatusStopped
	}

	id := e.state.Desires.AddGoal(goal, 1)
	e.logger.Info("goal added", "desire_id", id, "description", goal)
	e.sink.Record(core.NewEvent(core.KindGoalAdded, fmt.Sprintf("new goal '%s' as desire '%s'", goal, id), map[string]any{
		"desire_id":   id,
		"description": goal,
	}))
	return StatusIdlePrompted
}

// Run ticks until the operator stops the agent or the context is
// cancelled.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		switch e.Tick(ctx) {
		case StatusStopped:
			return nil
		case StatusInterrupted:
			return ctx.Err()
		}
	}
}

func (e *Engine) logCycle(d time.Duration, status Status) {
	if el, ok := e.logger.(*logging.EngineLogger); ok {
		el.LogCycle(e.state.Cycle, string(status), d)
		return
	}
	e.logger.Info("cycle end", "cycle", e.state.Cycle, "status", string(status), "duration", d.String())
}
