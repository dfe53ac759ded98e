package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/intentmesh/core"
	"github.com/hupe1980/intentmesh/reasoner"
)

func seededState(goals ...string) *core.State {
	s := core.NewState()
	s.Desires.Seed(goals)
	return s
}

func TestGeneratePlansTwoStage(t *testing.T) {
	mock := reasoner.NewMock()
	mock.Enqueue(reasoner.ShapeIntentList, reasoner.IntentList{
		Intents: []reasoner.Intent{
			{DesireID: "desire_1", Description: "survey the system"},
		},
	})
	mock.Enqueue(reasoner.ShapeStepList, reasoner.StepList{
		Steps: []core.IntentionStep{
			{Description: "list files", IsToolCall: true, ToolName: "ls"},
			{Description: "summarize findings"},
		},
	})

	s := seededState("learn about the system")
	p := New(mock)

	require.NoError(t, p.GeneratePlans(context.Background(), s))

	require.Equal(t, 1, s.Intentions.Len())
	head, _ := s.Intentions.Head()
	assert.Equal(t, "desire_1", head.DesireID)
	assert.Len(t, head.Steps, 2)
	assert.Equal(t, 0, head.CurrentStep)

	d, _ := s.Desires.Get("desire_1")
	assert.Equal(t, core.DesireActive, d.Status)
}

func TestGeneratePlansStage1FailureAbortsBatch(t *testing.T) {
	mock := reasoner.NewMock()
	mock.EnqueueError(reasoner.ShapeIntentList, errors.New("model unavailable"))

	s := seededState("a goal")
	p := New(mock)

	err := p.GeneratePlans(context.Background(), s)

	require.Error(t, err)
	assert.True(t, s.Intentions.Empty())
	assert.Equal(t, 0, mock.CallCount(reasoner.ShapeStepList))

	d, _ := s.Desires.Get("desire_1")
	assert.Equal(t, core.DesirePending, d.Status)
}

func TestGeneratePlansEmptyIntentListIsError(t *testing.T) {
	mock := reasoner.NewMock()
	mock.Enqueue(reasoner.ShapeIntentList, reasoner.IntentList{})

	s := seededState("a goal")
	p := New(mock)

	err := p.GeneratePlans(context.Background(), s)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoIntents)
}

func TestGeneratePlansStage2FailureIsolatedPerIntent(t *testing.T) {
	mock := reasoner.NewMock()
	mock.Enqueue(reasoner.ShapeIntentList, reasoner.IntentList{
		Intents: []reasoner.Intent{
			{DesireID: "desire_1", Description: "first"},
			{DesireID: "desire_2", Description: "second"},
		},
	})
	mock.EnqueueError(reasoner.ShapeStepList, errors.New("bad structure"))
	mock.Enqueue(reasoner.ShapeStepList, reasoner.StepList{
		Steps: []core.IntentionStep{{Description: "do it"}},
	})

	s := seededState("g1", "g2")
	p := New(mock)

	require.NoError(t, p.GeneratePlans(context.Background(), s))

	// The failing intent is skipped, the other still commits.
	require.Equal(t, 1, s.Intentions.Len())
	head, _ := s.Intentions.Head()
	assert.Equal(t, "desire_2", head.DesireID)

	d1, _ := s.Desires.Get("desire_1")
	assert.Equal(t, core.DesirePending, d1.Status)
	d2, _ := s.Desires.Get("desire_2")
	assert.Equal(t, core.DesireActive, d2.Status)
}

func TestGeneratePlansSkipsWhenQueueNotEmpty(t *testing.T) {
	mock := reasoner.NewMock()
	s := seededState("a goal")
	s.Intentions.Push(&core.Intention{DesireID: "desire_1", Steps: []core.IntentionStep{{Description: "x"}}})

	p := New(mock)
	require.NoError(t, p.GeneratePlans(context.Background(), s))

	assert.Empty(t, mock.Calls())
	assert.Equal(t, 1, s.Intentions.Len())
}

func TestGeneratePlansSkipsWithoutActionableDesires(t *testing.T) {
	mock := reasoner.NewMock()
	s := seededState("a goal")
	s.Desires.SetStatus("desire_1", core.DesireAchieved)

	p := New(mock)
	require.NoError(t, p.GeneratePlans(context.Background(), s))
	assert.Empty(t, mock.Calls())
}

func TestGeneratePlansIncludesGuidanceInPrompt(t *testing.T) {
	mock := reasoner.NewMock()
	mock.Enqueue(reasoner.ShapeIntentList, reasoner.IntentList{
		Intents: []reasoner.Intent{{DesireID: "desire_1", Description: "d"}},
	})
	mock.Enqueue(reasoner.ShapeStepList, reasoner.StepList{
		Steps: []core.IntentionStep{{Description: "s"}},
	})

	s := seededState("a goal")
	s.Guidance = []string{"prefer read-only operations"}

	p := New(mock)
	require.NoError(t, p.GeneratePlans(context.Background(), s))

	calls := mock.Calls()
	require.NotEmpty(t, calls)
	assert.Contains(t, calls[0].Prompt, "prefer read-only operations")
	assert.Contains(t, calls[0].Prompt, "desire_1")
}
