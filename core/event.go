package core

import (
	"time"

	"github.com/google/uuid"
)

// EventKind classifies engine events. The set is closed; sinks may switch
// on it exhaustively.
type EventKind string

const (
	// KindCycleStart marks the beginning of a reasoning cycle.
	KindCycleStart EventKind = "cycle_start"
	// KindCycleEnd marks the end of a reasoning cycle.
	KindCycleEnd EventKind = "cycle_end"
	// KindStateSnapshot carries belief/desire/intention counts.
	KindStateSnapshot EventKind = "state_snapshot"
	// KindPlanCommitted marks an atomic intention-queue replacement.
	KindPlanCommitted EventKind = "plan_committed"
	// KindPlanSkipped marks an aborted or skipped plan-generation batch.
	KindPlanSkipped EventKind = "plan_skipped"
	// KindStepStart marks the start of a step execution attempt.
	KindStepStart EventKind = "step_start"
	// KindStepSuccess marks a step judged successful.
	KindStepSuccess EventKind = "step_success"
	// KindStepFailure marks a step judged failed by assessment.
	KindStepFailure EventKind = "step_failure"
	// KindStepError marks a raised step-execution error (fatal to the intention).
	KindStepError EventKind = "step_error"
	// KindBeliefsExtracted marks beliefs merged from a step outcome.
	KindBeliefsExtracted EventKind = "beliefs_extracted"
	// KindBeliefUpdated marks a single belief upsert.
	KindBeliefUpdated EventKind = "belief_updated"
	// KindDesireStatus marks a desire lifecycle transition.
	KindDesireStatus EventKind = "desire_status"
	// KindIntentionCompleted marks an intention whose final step succeeded.
	KindIntentionCompleted EventKind = "intention_completed"
	// KindIntentionDropped marks an intention removed before completion.
	KindIntentionDropped EventKind = "intention_dropped"
	// KindPlanInvalidated marks a plan the monitor judged unsound.
	KindPlanInvalidated EventKind = "plan_invalidated"
	// KindMonitorError marks a failed reconsideration call (fail-open).
	KindMonitorError EventKind = "monitor_error"
	// KindHITLStart marks the start of a human intervention.
	KindHITLStart EventKind = "hitl_start"
	// KindHITLApplied marks an applied human directive.
	KindHITLApplied EventKind = "hitl_applied"
	// KindHITLAborted marks an intervention the operator declined or exited.
	KindHITLAborted EventKind = "hitl_aborted"
	// KindGoalAdded marks a new desire supplied by the operator while idle.
	KindGoalAdded EventKind = "goal_added"
)

// Event is one record emitted by the engine or its components. Events are
// dispatched to an injected EventSink instead of passing logger closures
// down the call tree.
type Event struct {
	ID      string         `json:"id"`
	Kind    EventKind      `json:"kind"`
	Time    time.Time      `json:"time"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// NewEvent constructs an event stamped with a fresh id and UTC time.
func NewEvent(kind EventKind, message string, fields map[string]any) Event {
	return Event{
		ID:      NewID(),
		Kind:    kind,
		Time:    time.Now().UTC(),
		Message: message,
		Fields:  fields,
	}
}

// NewID generates a unique identifier for events and operator-added goals.
func NewID() string { return uuid.NewString() }

// EventSink receives engine events. Implementations must not retain the
// Fields map beyond the call.
type EventSink interface {
	Record(e Event)
}

// NoOpSink discards all events. Used when no transcript or collector is
// configured.
type NoOpSink struct{}

// Record implements EventSink.
func (NoOpSink) Record(Event) {}

// MultiSink fans events out to several sinks in order.
type MultiSink []EventSink

// Record implements EventSink.
func (m MultiSink) Record(e Event) {
	for _, s := range m {
		s.Record(e)
	}
}
