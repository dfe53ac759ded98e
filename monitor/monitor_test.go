package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/intentmesh/core"
	"github.com/hupe1980/intentmesh/reasoner"
)

func newMonitorState(stepDescriptions ...string) *core.State {
	s := core.NewState()
	s.Desires.Seed([]string{"goal"})
	s.Desires.SetStatus("desire_1", core.DesireActive)
	steps := make([]core.IntentionStep, 0, len(stepDescriptions))
	for _, d := range stepDescriptions {
		steps = append(steps, core.IntentionStep{Description: d})
	}
	s.Intentions.Push(&core.Intention{DesireID: "desire_1", Steps: steps})
	return s
}

func TestReconsiderKeepsValidPlan(t *testing.T) {
	mock := reasoner.NewMock()
	mock.Enqueue(reasoner.ShapeReconsider, reasoner.Reconsider{Valid: true})

	s := newMonitorState("a", "b")
	require.NoError(t, New(mock).Reconsider(context.Background(), s))

	assert.Equal(t, 1, s.Intentions.Len())
	d, _ := s.Desires.Get("desire_1")
	assert.Equal(t, core.DesireActive, d.Status)
}

func TestReconsiderDropsInvalidPlan(t *testing.T) {
	mock := reasoner.NewMock()
	mock.Enqueue(reasoner.ShapeReconsider, reasoner.Reconsider{
		Valid:  false,
		Reason: "goal already achieved",
	})

	s := newMonitorState("a", "b")
	require.NoError(t, New(mock).Reconsider(context.Background(), s))

	assert.True(t, s.Intentions.Empty())
	// The desire goes back to the planning pool.
	d, _ := s.Desires.Get("desire_1")
	assert.Equal(t, core.DesirePending, d.Status)
}

func TestReconsiderFailsOpenOnReasonerError(t *testing.T) {
	mock := reasoner.NewMock()
	mock.EnqueueError(reasoner.ShapeReconsider, errors.New("model timeout"))

	s := newMonitorState("a")
	require.NoError(t, New(mock).Reconsider(context.Background(), s))

	// The plan survives a failed judgement call.
	assert.Equal(t, 1, s.Intentions.Len())
	d, _ := s.Desires.Get("desire_1")
	assert.Equal(t, core.DesireActive, d.Status)
}

func TestReconsiderSkipsEmptyQueue(t *testing.T) {
	mock := reasoner.NewMock()
	s := core.NewState()

	require.NoError(t, New(mock).Reconsider(context.Background(), s))
	assert.Empty(t, mock.Calls())
}

func TestReconsiderSkipsCompletedIntention(t *testing.T) {
	mock := reasoner.NewMock()
	s := newMonitorState("a")
	head, _ := s.Intentions.Head()
	head.Advance()

	require.NoError(t, New(mock).Reconsider(context.Background(), s))
	assert.Empty(t, mock.Calls())
}

func TestReconsiderPromptIncludesBeliefsAndHistory(t *testing.T) {
	mock := reasoner.NewMock()
	mock.Enqueue(reasoner.ShapeReconsider, reasoner.Reconsider{Valid: true})

	s := newMonitorState("a", "b")
	s.Beliefs.Update("disk_full", "true", "step_1_check", 0.9)
	head, _ := s.Intentions.Head()
	head.Record(head.Steps[0], "disk is at 100%", false, s.Beliefs.Snapshot())

	require.NoError(t, New(mock).Reconsider(context.Background(), s))

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "disk_full")
	assert.Contains(t, calls[0].Prompt, "disk is at 100%")
	assert.Contains(t, calls[0].Prompt, "desire_1")
}
