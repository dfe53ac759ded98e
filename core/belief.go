package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Belief is a single named fact the agent currently holds about the world,
// together with where it came from and how much the agent trusts it.
// Value is an opaque payload; the engine never interprets it beyond
// formatting it into reasoner prompts.
type Belief struct {
	Name      string    `json:"name"`
	Value     any       `json:"value"`
	Source    string    `json:"source"`
	Certainty float64   `json:"certainty"`
	Timestamp time.Time `json:"timestamp"`
}

// BeliefStore is the agent's keyed fact table. There is exactly one belief
// per name; Update always succeeds and overwrites every field.
//
// The store is not safe for concurrent use. The engine runs a single logical
// thread of control, so no locking is required (see the concurrency notes in
// the engine package).
type BeliefStore struct {
	beliefs map[string]*Belief
}

// NewBeliefStore constructs an empty belief store.
func NewBeliefStore() *BeliefStore {
	return &BeliefStore{beliefs: make(map[string]*Belief)}
}

// Update upserts a belief. A new belief is created with the current time if
// the name is unknown; otherwise all fields are overwritten and the
// timestamp bumped.
func (s *BeliefStore) Update(name string, value any, source string, certainty float64) {
	if b, ok := s.beliefs[name]; ok {
		b.Value = value
		b.Source = source
		b.Certainty = certainty
		b.Timestamp = time.Now().UTC()
		return
	}
	s.beliefs[name] = &Belief{
		Name:      name,
		Value:     value,
		Source:    source,
		Certainty: certainty,
		Timestamp: time.Now().UTC(),
	}
}

// Get returns a copy of the named belief.
func (s *BeliefStore) Get(name string) (Belief, bool) {
	b, ok := s.beliefs[name]
	if !ok {
		return Belief{}, false
	}
	return *b, true
}

// Remove deletes a belief. Removing an unknown name is a no-op.
func (s *BeliefStore) Remove(name string) {
	delete(s.beliefs, name)
}

// Len returns the number of beliefs currently held.
func (s *BeliefStore) Len() int { return len(s.beliefs) }

// Names returns all belief names in sorted order. Sorting keeps prompt
// construction and snapshots deterministic.
func (s *BeliefStore) Names() []string {
	names := make([]string, 0, len(s.beliefs))
	for name := range s.beliefs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a point-in-time copy of every belief, keyed by name.
// Step history entries capture these snapshots.
func (s *BeliefStore) Snapshot() map[string]Belief {
	snap := make(map[string]Belief, len(s.beliefs))
	for name, b := range s.beliefs {
		snap[name] = *b
	}
	return snap
}

// FormatContext renders beliefs as a prompt fragment in the short form
// used by step execution and planning prompts.
func (s *BeliefStore) FormatContext() string {
	if len(s.beliefs) == 0 {
		return "No beliefs recorded yet."
	}
	var sb strings.Builder
	for i, name := range s.Names() {
		if i > 0 {
			sb.WriteString("\n")
		}
		b := s.beliefs[name]
		fmt.Fprintf(&sb, "- %s: %v (Certainty: %.2f)", name, b.Value, b.Certainty)
	}
	return sb.String()
}

// FormatDetailed renders beliefs including provenance, used by planning,
// reconsideration and failure-context prompts.
func (s *BeliefStore) FormatDetailed() string {
	if len(s.beliefs) == 0 {
		return "No current beliefs."
	}
	var sb strings.Builder
	for i, name := range s.Names() {
		if i > 0 {
			sb.WriteString("\n")
		}
		b := s.beliefs[name]
		fmt.Fprintf(&sb, "- %s: %v (Source: %s, Certainty: %.2f)", name, b.Value, b.Source, b.Certainty)
	}
	return sb.String()
}
