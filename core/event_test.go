package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type captureSink struct {
	events []Event
}

func (c *captureSink) Record(e Event) { c.events = append(c.events, e) }

func TestNewEvent(t *testing.T) {
	e := NewEvent(KindStepSuccess, "done", map[string]any{"step": 1})

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, KindStepSuccess, e.Kind)
	assert.Equal(t, "done", e.Message)
	assert.Equal(t, 1, e.Fields["step"])
	assert.False(t, e.Time.IsZero())
}

func TestMultiSinkFansOut(t *testing.T) {
	a := &captureSink{}
	b := &captureSink{}
	sink := MultiSink{a, b}

	sink.Record(NewEvent(KindCycleStart, "cycle 1", nil))

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
	assert.Equal(t, a.events[0].ID, b.events[0].ID)
}
