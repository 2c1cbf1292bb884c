package audio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pcmFrames(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestNewDecimatorRejectsUnsupportedRates(t *testing.T) {
	for _, pair := range [][2]int{{44100, 8000}, {24000, 16000}, {8000, 24000}, {0, 0}} {
		_, err := NewDecimator(pair[0], pair[1])
		assert.Error(t, err, "%d -> %d", pair[0], pair[1])
	}

	d, err := NewDecimator(24000, 8000)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Factor())
}

func TestDownsampleLengthLaw(t *testing.T) {
	d, err := NewDecimator(24000, 8000)
	require.NoError(t, err)

	// floor(N/3) output frames, partial trailing groups dropped
	cases := []struct{ in, out int }{
		{0, 0}, {1, 0}, {2, 0}, {3, 1}, {4, 1}, {5, 1}, {6, 2}, {7, 2}, {300, 100},
	}
	for _, tc := range cases {
		got := d.Downsample(make([]byte, tc.in*2))
		assert.Equal(t, tc.out*2, len(got), "%d input frames", tc.in)
	}
}

func TestDownsampleKeepsFirstOfEachGroup(t *testing.T) {
	d, err := NewDecimator(24000, 8000)
	require.NoError(t, err)

	in := pcmFrames(10, 11, 12, 20, 21, 22, 30, 31)
	got := d.Downsample(in)

	assert.Equal(t, pcmFrames(10, 20), got)
}
