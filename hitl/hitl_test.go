package hitl

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/intentmesh/core"
	"github.com/hupe1980/intentmesh/reasoner"
)

func newHITLState(stepDescriptions ...string) *core.State {
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

func directiveStub(m core.ManipulationType, summary string) reasoner.DirectiveResult {
	return reasoner.DirectiveResult{Directive: core.Directive{Manipulation: m, Summary: summary}}
}

func TestInterveneQuitAborts(t *testing.T) {
	mock := reasoner.NewMock()
	s := newHITLState("a")
	head, _ := s.Intentions.Head()
	var out bytes.Buffer

	c := New(mock, strings.NewReader("quit\n"), &out)
	applied, beliefs := c.Intervene(context.Background(), s, head, head.Steps[0], "it broke")

	assert.False(t, applied)
	assert.False(t, beliefs)
	assert.Empty(t, mock.Calls())
	assert.Contains(t, out.String(), "HUMAN INTERVENTION REQUIRED")
}

func TestInterveneEmptyGuidanceAborts(t *testing.T) {
	mock := reasoner.NewMock()
	s := newHITLState("a")
	head, _ := s.Intentions.Head()
	var out bytes.Buffer

	c := New(mock, strings.NewReader("\n"), &out)
	applied, beliefs := c.Intervene(context.Background(), s, head, head.Steps[0], "it broke")

	assert.False(t, applied)
	assert.False(t, beliefs)
}

func TestInterveneConfirmYesApplies(t *testing.T) {
	mock := reasoner.NewMock()
	mock.Enqueue(reasoner.ShapeDirective, directiveStub(core.SkipCurrentStep, "skip it"))

	s := newHITLState("a", "b")
	head, _ := s.Intentions.Head()
	var out bytes.Buffer

	c := New(mock, strings.NewReader("just skip this step\ny\n"), &out)
	applied, beliefs := c.Intervene(context.Background(), s, head, head.Steps[0], "it broke")

	assert.True(t, applied)
	assert.False(t, beliefs)
	assert.Equal(t, 1, head.CurrentStep)
	assert.Contains(t, out.String(), "Skip Current Step")
}

func TestInterveneInterpretationFailureAborts(t *testing.T) {
	mock := reasoner.NewMock()
	mock.EnqueueError(reasoner.ShapeDirective, errors.New("cannot interpret"))

	s := newHITLState("a")
	head, _ := s.Intentions.Head()
	var out bytes.Buffer

	c := New(mock, strings.NewReader("do something\n"), &out)
	applied, beliefs := c.Intervene(context.Background(), s, head, head.Steps[0], "it broke")

	assert.False(t, applied)
	assert.False(t, beliefs)
	assert.Contains(t, out.String(), "Failed to interpret guidance")
}

func TestInterveneDeclineLoopsBackToPresentation(t *testing.T) {
	mock := reasoner.NewMock()
	mock.Enqueue(reasoner.ShapeDirective, directiveStub(core.AbortIntention, "give up"))
	mock.Enqueue(reasoner.ShapeDirective, directiveStub(core.RetryCurrentAsIs, "try again"))

	s := newHITLState("a")
	head, _ := s.Intentions.Head()
	var out bytes.Buffer

	input := "abort it\nn\nactually retry\ny\n"
	c := New(mock, strings.NewReader(input), &out)
	applied, _ := c.Intervene(context.Background(), s, head, head.Steps[0], "it broke")

	assert.True(t, applied)
	// The declined abort never ran: the intention is still queued.
	assert.Equal(t, 1, s.Intentions.Len())
	assert.Equal(t, 2, mock.CallCount(reasoner.ShapeDirective))
	assert.Equal(t, 2, strings.Count(out.String(), "HUMAN INTERVENTION REQUIRED"))
}

func TestInterveneEditReinterpretsAndApplies(t *testing.T) {
	mock := reasoner.NewMock()
	mock.Enqueue(reasoner.ShapeDirective, directiveStub(core.AbortIntention, "give up"))
	mock.Enqueue(reasoner.ShapeDirective, directiveStub(core.SkipCurrentStep, "skip"))

	s := newHITLState("a", "b")
	head, _ := s.Intentions.Head()
	var out bytes.Buffer

	// No confirmation follows the revised guidance: the edit applies
	// the re-interpreted directive directly.
	input := "abort it\ne\nskip instead\n"
	c := New(mock, strings.NewReader(input), &out)
	applied, _ := c.Intervene(context.Background(), s, head, head.Steps[0], "it broke")

	assert.True(t, applied)
	assert.Equal(t, 2, mock.CallCount(reasoner.ShapeDirective))
	// The revised directive won: the step was skipped, not aborted.
	assert.Equal(t, 1, s.Intentions.Len())
	assert.Equal(t, 1, head.CurrentStep)
	assert.Equal(t, 1, strings.Count(out.String(), "Apply this guidance?"))
}

func TestInterveneEditFailureAppliesOriginal(t *testing.T) {
	mock := reasoner.NewMock()
	mock.Enqueue(reasoner.ShapeDirective, directiveStub(core.RetryCurrentAsIs, "retry"))
	mock.EnqueueError(reasoner.ShapeDirective, errors.New("garbled"))

	s := newHITLState("a")
	head, _ := s.Intentions.Head()
	var out bytes.Buffer

	input := "retry it\ne\nnew words\n"
	c := New(mock, strings.NewReader(input), &out)
	applied, _ := c.Intervene(context.Background(), s, head, head.Steps[0], "it broke")

	assert.True(t, applied)
	assert.Contains(t, out.String(), "Using original")
	assert.Equal(t, 1, s.Intentions.Len())
}

func TestInterveneInvalidConfirmationAssumesYes(t *testing.T) {
	mock := reasoner.NewMock()
	mock.Enqueue(reasoner.ShapeDirective, directiveStub(core.RetryCurrentAsIs, "retry"))

	s := newHITLState("a")
	head, _ := s.Intentions.Head()
	var out bytes.Buffer

	c := New(mock, strings.NewReader("retry it\nwhatever\n"), &out)
	applied, _ := c.Intervene(context.Background(), s, head, head.Steps[0], "it broke")

	assert.True(t, applied)
	assert.Contains(t, out.String(), "Assuming 'yes'")
}

func TestInterveneAppliesBeliefUpdates(t *testing.T) {
	mock := reasoner.NewMock()
	mock.Enqueue(reasoner.ShapeDirective, reasoner.DirectiveResult{Directive: core.Directive{
		Manipulation: core.UpdateBeliefsAndRetry,
		BeliefUpdates: map[string]core.BeliefPatch{
			"repo_path": {Value: "/srv/repo"},
		},
		Summary: "the repo lives at /srv/repo",
	}})

	s := newHITLState("a")
	head, _ := s.Intentions.Head()
	var out bytes.Buffer

	c := New(mock, strings.NewReader("the repo is at /srv/repo\ny\n"), &out)
	applied, beliefs := c.Intervene(context.Background(), s, head, head.Steps[0], "path not found")

	assert.True(t, applied)
	assert.True(t, beliefs)
	b, ok := s.Beliefs.Get("repo_path")
	require.True(t, ok)
	assert.Equal(t, "human_guidance", b.Source)
}

func TestIntervenePromptCarriesFailureContext(t *testing.T) {
	mock := reasoner.NewMock()
	mock.Enqueue(reasoner.ShapeDirective, directiveStub(core.RetryCurrentAsIs, "retry"))

	s := newHITLState("read the file", "summarize")
	s.Beliefs.Update("file_missing", "true", "step_1_read", 1.0)
	head, _ := s.Intentions.Head()
	var out bytes.Buffer

	c := New(mock, strings.NewReader("try once more\ny\n"), &out)
	c.Intervene(context.Background(), s, head, head.Steps[0], "no such file")

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "read the file")
	assert.Contains(t, calls[0].Prompt, "no such file")
	assert.Contains(t, calls[0].Prompt, "file_missing")
	assert.Contains(t, calls[0].Prompt, "try once more")
}
