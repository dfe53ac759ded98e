package core

// State is the explicit agent-state handle passed into every component
// call. Beliefs, desires and intentions are owned exclusively by this
// handle; components read and mutate them through it, never through
// package-level state.
type State struct {
	Beliefs    *BeliefStore
	Desires    *DesireRegistry
	Intentions *IntentionQueue

	// Guidance holds operator-provided strategic hints folded into the
	// first planning stage.
	Guidance []string

	// Cycle counts completed reasoning cycles.
	Cycle int
}

// NewState constructs an empty agent state.
func NewState() *State {
	return &State{
		Beliefs:    NewBeliefStore(),
		Desires:    NewDesireRegistry(),
		Intentions: NewIntentionQueue(),
	}
}

// CompleteHead pops the head intention and marks its desire ACHIEVED.
func (s *State) CompleteHead() {
	if in, ok := s.Intentions.Pop(); ok {
		s.Desires.SetStatus(in.DesireID, DesireAchieved)
	}
}

// AbortHead pops the head intention and resets its desire to PENDING so
// the planner may produce a fresh plan.
func (s *State) AbortHead() {
	if in, ok := s.Intentions.Pop(); ok {
		s.Desires.SetStatus(in.DesireID, DesirePending)
	}
}

// FailHead pops the head intention and marks its desire FAILED.
func (s *State) FailHead() {
	if in, ok := s.Intentions.Pop(); ok {
		s.Desires.SetStatus(in.DesireID, DesireFailed)
	}
}

// Snapshot summarizes the state for snapshot events.
func (s *State) Snapshot() map[string]any {
	return map[string]any{
		"cycle":      s.Cycle,
		"beliefs":    s.Beliefs.Len(),
		"desires":    s.Desires.Len(),
		"intentions": s.Intentions.Len(),
	}
}
