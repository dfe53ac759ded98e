package core

import (
	"fmt"
	"time"
)

// DesireStatus tracks the lifecycle of a desire.
type DesireStatus string

const (
	// DesirePending marks a desire waiting for a plan.
	DesirePending DesireStatus = "pending"
	// DesireActive marks a desire with a committed plan in flight.
	DesireActive DesireStatus = "active"
	// DesireAchieved marks a desire whose plan completed successfully.
	DesireAchieved DesireStatus = "achieved"
	// DesireFailed marks a desire abandoned after an unrecoverable failure.
	DesireFailed DesireStatus = "failed"
)

// Desire is a goal the agent is pursuing, independent of any specific plan.
// Desires and intentions are linked only by DesireID, never by pointer.
type Desire struct {
	ID          string       `json:"id"`
	Description string       `json:"description"`
	Priority    float64      `json:"priority"`
	Status      DesireStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	AchievedAt  *time.Time   `json:"achieved_at,omitempty"`
}

// DesireRegistry holds the agent's goals in insertion order.
//
// Status transitions follow the lifecycle rules: PENDING/ACTIVE may move to
// ACHIEVED or FAILED, and any status may be reset to PENDING to trigger
// re-planning.
type DesireRegistry struct {
	desires []*Desire
	byID    map[string]*Desire
}

// NewDesireRegistry constructs an empty registry.
func NewDesireRegistry() *DesireRegistry {
	return &DesireRegistry{byID: make(map[string]*Desire)}
}

// Add registers a new desire. A desire with a duplicate id is rejected.
func (r *DesireRegistry) Add(d Desire) error {
	if d.ID == "" {
		return fmt.Errorf("desire id must not be empty")
	}
	if _, exists := r.byID[d.ID]; exists {
		return fmt.Errorf("desire %q already registered", d.ID)
	}
	if d.Status == "" {
		d.Status = DesirePending
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	stored := d
	r.desires = append(r.desires, &stored)
	r.byID[d.ID] = &stored
	return nil
}

// AddGoal registers a new pending desire from a plain description and
// returns its generated id.
func (r *DesireRegistry) AddGoal(description string, priority float64) string {
	id := fmt.Sprintf("desire_%s", NewID()[:8])
	_ = r.Add(Desire{ID: id, Description: description, Priority: priority})
	return id
}

// Seed registers pending desires from plain descriptions with ordinal ids
// (desire_1, desire_2, ...) and the default priority of 0.5.
func (r *DesireRegistry) Seed(descriptions []string) {
	for _, desc := range descriptions {
		_ = r.Add(Desire{
			ID:          fmt.Sprintf("desire_%d", len(r.desires)+1),
			Description: desc,
			Priority:    0.5,
		})
	}
}

// Get returns the desire with the given id.
func (r *DesireRegistry) Get(id string) (*Desire, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// All returns the desires in insertion order.
func (r *DesireRegistry) All() []*Desire {
	out := make([]*Desire, len(r.desires))
	copy(out, r.desires)
	return out
}

// Actionable returns the desires that can still drive planning, i.e. those
// in PENDING or ACTIVE status.
func (r *DesireRegistry) Actionable() []*Desire {
	var out []*Desire
	for _, d := range r.desires {
		if d.Status == DesirePending || d.Status == DesireActive {
			out = append(out, d)
		}
	}
	return out
}

// SetStatus updates a desire's status. Moving to ACHIEVED stamps AchievedAt.
// Updating an unknown id is a no-op and reports false.
func (r *DesireRegistry) SetStatus(id string, status DesireStatus) bool {
	d, ok := r.byID[id]
	if !ok {
		return false
	}
	d.Status = status
	if status == DesireAchieved {
		now := time.Now().UTC()
		d.AchievedAt = &now
	}
	return true
}

// Len returns the number of registered desires.
func (r *DesireRegistry) Len() int { return len(r.desires) }
