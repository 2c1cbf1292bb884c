package call

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	sess := NewSession(100)
	assert.Equal(t, StateAwaitingStart, sess.State())

	require.True(t, sess.Start("MZ1", "Ayşe", "+905551112233"))
	assert.Equal(t, StateStreaming, sess.State())
	assert.Equal(t, "MZ1", sess.StreamSID)
	assert.Equal(t, "Ayşe", sess.CalleeName)

	// a second start is ignored
	assert.False(t, sess.Start("MZ2", "x", "y"))
	assert.Equal(t, "MZ1", sess.StreamSID)

	sess.End(false)
	assert.Equal(t, StateEnded, sess.State())
}

func TestSessionDropsMediaBeforeStart(t *testing.T) {
	sess := NewSession(10)

	_, ready := sess.AppendMedia(make([]byte, 50))
	assert.False(t, ready)
	assert.Equal(t, 0, sess.BufferLen())
}

func TestSessionSegmentsAtThreshold(t *testing.T) {
	sess := NewSession(10)
	require.True(t, sess.Start("MZ1", "", ""))

	_, ready := sess.AppendMedia(bytes.Repeat([]byte{1}, 4))
	assert.False(t, ready)
	_, ready = sess.AppendMedia(bytes.Repeat([]byte{2}, 4))
	assert.False(t, ready)
	assert.Equal(t, 8, sess.BufferLen())

	utterance, ready := sess.AppendMedia(bytes.Repeat([]byte{3}, 4))
	require.True(t, ready)
	assert.Len(t, utterance, 12)
	assert.Equal(t, 0, sess.BufferLen(), "buffer drained after segmentation")

	// the next payload starts a fresh utterance
	_, ready = sess.AppendMedia(make([]byte, 4))
	assert.False(t, ready)
	assert.Equal(t, 4, sess.BufferLen())
}

func TestSessionBuffersMediaWhileProcessing(t *testing.T) {
	sess := NewSession(10)
	require.True(t, sess.Start("MZ1", "", ""))

	sess.BeginTurn()
	assert.Equal(t, StateProcessing, sess.State())

	_, ready := sess.AppendMedia(make([]byte, 6))
	assert.False(t, ready)
	assert.Equal(t, 6, sess.BufferLen())

	utterance, ready := sess.AppendMedia(make([]byte, 6))
	assert.True(t, ready, "threshold crossing segments even mid-turn")
	assert.Len(t, utterance, 12)

	sess.EndTurn()
	assert.Equal(t, StateStreaming, sess.State())
}

func TestSessionEndDiscardsRemainderByDefault(t *testing.T) {
	sess := NewSession(100)
	require.True(t, sess.Start("MZ1", "", ""))
	sess.AppendMedia(make([]byte, 40))

	assert.Nil(t, sess.End(false))
	assert.Equal(t, 0, sess.BufferLen())
}

func TestSessionEndFlushesRemainder(t *testing.T) {
	sess := NewSession(100)
	require.True(t, sess.Start("MZ1", "", ""))
	sess.AppendMedia(make([]byte, 40))

	remainder := sess.End(true)
	assert.Len(t, remainder, 40)

	// idempotent: a second end returns nothing
	assert.Nil(t, sess.End(true))
}

func TestSessionEndCancelsContextAndDropsMedia(t *testing.T) {
	sess := NewSession(10)
	require.True(t, sess.Start("MZ1", "", ""))

	sess.End(false)

	select {
	case <-sess.Context().Done():
	default:
		t.Fatal("session context not cancelled on end")
	}

	_, ready := sess.AppendMedia(make([]byte, 50))
	assert.False(t, ready)
	assert.Equal(t, 0, sess.BufferLen())
	assert.False(t, sess.Start("MZ2", "", ""), "no restart after end")
}

func TestSessionRecentHistory(t *testing.T) {
	sess := NewSession(10)
	for i := 0; i < 4; i++ {
		sess.AppendTurn("user", "u")
		sess.AppendTurn("assistant", "a")
	}

	recent := sess.RecentHistory(6)
	require.Len(t, recent, 6)
	assert.Equal(t, "user", recent[0].Role)
	assert.Equal(t, "assistant", recent[5].Role)

	all := sess.RecentHistory(100)
	assert.Len(t, all, 8)
}
