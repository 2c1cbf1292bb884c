package call

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, 0, reg.Len())

	sess := NewSession(10)
	require.True(t, sess.Start("MZ1", "", ""))
	reg.Add(sess)

	got, ok := reg.Get("MZ1")
	require.True(t, ok)
	assert.Same(t, sess, got)
	assert.Equal(t, 1, reg.Len())

	_, ok = reg.Get("MZ2")
	assert.False(t, ok)

	reg.Remove("MZ1")
	_, ok = reg.Get("MZ1")
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())

	// removing an unknown SID is a no-op
	reg.Remove("MZ1")
}
