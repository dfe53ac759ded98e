package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeliefStoreUpdateAndGet(t *testing.T) {
	s := NewBeliefStore()
	s.Update("room_temp", "18.5", "sensor", 0.9)

	b, ok := s.Get("room_temp")
	require.True(t, ok)
	assert.Equal(t, "18.5", b.Value)
	assert.Equal(t, "sensor", b.Source)
	assert.Equal(t, 0.9, b.Certainty)
	assert.False(t, b.Timestamp.IsZero())
}

func TestBeliefStoreUpsertBumpsTimestamp(t *testing.T) {
	s := NewBeliefStore()
	s.Update("status", "offline", "probe", 0.5)
	first, _ := s.Get("status")

	s.Update("status", "online", "probe", 1.0)
	second, _ := s.Get("status")

	assert.Equal(t, "online", second.Value)
	assert.Equal(t, 1.0, second.Certainty)
	assert.False(t, second.Timestamp.Before(first.Timestamp))
	assert.Equal(t, 1, s.Len())
}

func TestBeliefStoreGetReturnsCopy(t *testing.T) {
	s := NewBeliefStore()
	s.Update("path", "/tmp/a", "human", 1.0)

	b, _ := s.Get("path")
	b.Value = "/tmp/b"

	again, _ := s.Get("path")
	assert.Equal(t, "/tmp/a", again.Value)
}

func TestBeliefStoreRemove(t *testing.T) {
	s := NewBeliefStore()
	s.Update("a", 1, "x", 1.0)
	s.Remove("a")

	_, ok := s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestBeliefStoreNamesSorted(t *testing.T) {
	s := NewBeliefStore()
	s.Update("zeta", 1, "x", 1.0)
	s.Update("alpha", 2, "x", 1.0)
	s.Update("mid", 3, "x", 1.0)

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, s.Names())
}

func TestBeliefStoreFormatContext(t *testing.T) {
	s := NewBeliefStore()
	assert.Contains(t, s.FormatContext(), "No beliefs recorded yet")

	s.Update("server_port", "8080", "human_guidance", 1.0)
	out := s.FormatContext()
	assert.Contains(t, out, "server_port: 8080")
	assert.Contains(t, out, "1.00")

	detailed := s.FormatDetailed()
	assert.Contains(t, detailed, "human_guidance")
}
