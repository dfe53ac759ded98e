// Package intentmesh provides a high-level façade over the BDI engine and
// its components (beliefs, desires, planning, execution, monitoring and
// human intervention). Most applications interact with this package by:
//  1. Creating an Agent via New() with a reasoner backend
//  2. Seeding goals and optional strategic guidance
//  3. Running the deliberation cycle via Run() or stepping it via RunCycle()
//
// The façade delegates orchestration to engine.Engine while keeping setup
// ergonomics concise. Defaults are safe for local development: no-op
// logging, no transcript and no human intervention unless enabled.
package intentmesh

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/hupe1980/intentmesh/core"
	"github.com/hupe1980/intentmesh/engine"
	"github.com/hupe1980/intentmesh/executor"
	"github.com/hupe1980/intentmesh/hitl"
	"github.com/hupe1980/intentmesh/logging"
	"github.com/hupe1980/intentmesh/monitor"
	"github.com/hupe1980/intentmesh/planner"
	"github.com/hupe1980/intentmesh/reasoner"
	"github.com/hupe1980/intentmesh/transcript"
)

// Options configures an Agent.
type Options struct {
	// Desires seeds the registry with initial goal descriptions.
	Desires []string

	// Guidance is strategic advice injected into planning prompts.
	Guidance []string

	// EnableHITL escalates exhausted step failures to a human operator
	// on Input/Output instead of leaving the plan paused.
	EnableHITL bool

	// TranscriptPath enables the markdown execution log when non-empty.
	TranscriptPath string

	// MaxAttempts overrides the per-step execution budget. Zero keeps
	// the default of three attempts.
	MaxAttempts int

	// Input supplies operator lines for idle goal prompts and HITL.
	// Defaults to os.Stdin.
	Input io.Reader

	// Output receives prompts and intervention dialogue. Defaults to
	// os.Stdout.
	Output io.Writer

	// Logger provides structured logging. Defaults to NoOpLogger.
	Logger logging.Logger

	// Sink receives lifecycle events in addition to the transcript.
	Sink core.EventSink
}

// Agent is the high-level façade aggregating state, engine and transcript.
type Agent struct {
	state  *core.State
	engine *engine.Engine
	tw     *transcript.Writer
	logger logging.Logger
}

// New creates an Agent around a reasoner backend with optional overrides.
func New(r reasoner.Reasoner, optFns ...func(o *Options)) (*Agent, error) {
	opts := Options{
		Input:  os.Stdin,
		Output: os.Stdout,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	sinks := core.MultiSink{}
	if opts.Sink != nil {
		sinks = append(sinks, opts.Sink)
	}

	var tw *transcript.Writer
	if opts.TranscriptPath != "" {
		var err error
		tw, err = transcript.Open(opts.TranscriptPath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, tw)
	}

	var sink core.EventSink = sinks
	if len(sinks) == 0 {
		sink = core.NoOpSink{}
	}

	s := core.NewState()
	s.Desires.Seed(opts.Desires)
	s.Guidance = append(s.Guidance, opts.Guidance...)

	// A single buffered reader is shared between the idle goal prompt
	// and the intervention dialogue; two independent buffers over the
	// same stream would steal lines from each other.
	var input io.Reader
	if opts.Input != nil {
		input = bufio.NewReader(opts.Input)
	}

	execOpts := []executor.Option{
		executor.WithLogger(opts.Logger),
		executor.WithSink(sink),
	}
	if opts.MaxAttempts > 0 {
		execOpts = append(execOpts, executor.WithMaxAttempts(opts.MaxAttempts))
	}
	if opts.EnableHITL {
		ctrl := hitl.New(r, input, opts.Output,
			hitl.WithLogger(opts.Logger),
			hitl.WithSink(sink),
		)
		execOpts = append(execOpts, executor.WithInterventionist(ctrl))
	}

	eng := engine.New(s,
		planner.New(r, planner.WithLogger(opts.Logger), planner.WithSink(sink)),
		executor.New(r, execOpts...),
		monitor.New(r, monitor.WithLogger(opts.Logger), monitor.WithSink(sink)),
		func(o *engine.Options) {
			o.Input = input
			o.Output = opts.Output
			o.Logger = opts.Logger
			o.Sink = sink
		},
	)

	return &Agent{
		state:  s,
		engine: eng,
		tw:     tw,
		logger: opts.Logger,
	}, nil
}

// RunCycle executes a single deliberation cycle and reports its status.
func (a *Agent) RunCycle(ctx context.Context) engine.Status {
	return a.engine.Tick(ctx)
}

// Run executes deliberation cycles until the operator stops the agent or
// the context is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	return a.engine.Run(ctx)
}

// AddGoal registers a new goal and returns its desire id.
func (a *Agent) AddGoal(description string, priority float64) string {
	return a.state.Desires.AddGoal(description, priority)
}

// State exposes the agent's BDI state for inspection. Callers must not
// mutate it while a cycle is in flight.
func (a *Agent) State() *core.State {
	return a.state
}

// Close flushes and closes the transcript, if one was opened.
func (a *Agent) Close() error {
	if a.tw == nil {
		return nil
	}
	return a.tw.Close()
}
