package server

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	f, err := parseFrame([]byte(`{"event":"start","start":{"streamSid":"MZ1"}}`))
	require.NoError(t, err)
	assert.Equal(t, "start", f.Event)
	assert.Equal(t, "MZ1", f.Start.StreamSID)

	f, err = parseFrame([]byte(`{"event":"media","media":{"payload":"AAAA"}}`))
	require.NoError(t, err)
	assert.Equal(t, "AAAA", f.Media.Payload)

	f, err = parseFrame([]byte(`{"event":"stop"}`))
	require.NoError(t, err)
	assert.Equal(t, "stop", f.Event)
}

func TestParseFrameRejectsGarbage(t *testing.T) {
	cases := map[string]string{
		"malformed json":      `{"event":`,
		"not json":            `hello`,
		"missing event":       `{"start":{"streamSid":"MZ1"}}`,
		"unknown event":       `{"event":"mark"}`,
		"start without block": `{"event":"start"}`,
		"media without block": `{"event":"media"}`,
	}
	for name, raw := range cases {
		_, err := parseFrame([]byte(raw))
		assert.Error(t, err, name)
	}
}

func TestDecodeMediaPayload(t *testing.T) {
	audio := []byte{0xFF, 0x7F, 0x00}
	f := &streamFrame{
		Event: "media",
		Media: &mediaBlock{Payload: base64.StdEncoding.EncodeToString(audio)},
	}

	got, err := decodeMediaPayload(f)
	require.NoError(t, err)
	assert.Equal(t, audio, got)

	f.Media.Payload = "not base64!!!"
	_, err = decodeMediaPayload(f)
	assert.Error(t, err)
}

func TestEncodeMediaFrame(t *testing.T) {
	ulaw := []byte{0x9F, 0xFF, 0x1F}
	data, err := encodeMediaFrame("MZ1", ulaw)
	require.NoError(t, err)

	var f streamFrame
	require.NoError(t, json.Unmarshal(data, &f))
	assert.Equal(t, "media", f.Event)
	assert.Equal(t, "MZ1", f.StreamSID)

	decoded, err := base64.StdEncoding.DecodeString(f.Media.Payload)
	require.NoError(t, err)
	assert.Equal(t, ulaw, decoded)
}
