package audio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWAVFromPCM16Header(t *testing.T) {
	pcm := pcmFrames(1, 2, 3, 4)
	wav := WAVFromPCM16(pcm, 8000)

	require.Len(t, wav, 44+len(pcm))
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(wav[4:]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "fmt ", string(wav[12:16]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[20:]), "PCM format tag")
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:]), "mono")
	assert.Equal(t, uint32(8000), binary.LittleEndian.Uint32(wav[24:]), "sample rate")
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(wav[28:]), "byte rate")
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(wav[32:]), "block align")
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:]), "bits per sample")
	assert.Equal(t, "data", string(wav[36:40]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(wav[40:]))
	assert.Equal(t, pcm, wav[44:])
}

func TestWAVFromPCM16Empty(t *testing.T) {
	wav := WAVFromPCM16(nil, 8000)
	require.Len(t, wav, 44)
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(wav[40:]))
}
