package twiml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoiceWithIntro(t *testing.T) {
	doc, err := Voice("Merhaba", "tr", "wss://example.com/stream?name=Ay%C5%9Fe")
	require.NoError(t, err)

	got := string(doc)
	assert.Contains(t, got, `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, got, `<Say language="tr">Merhaba</Say>`)
	assert.Contains(t, got, `<Stream url="wss://example.com/stream?name=Ay%C5%9Fe"`)
	assert.Contains(t, got, `<Connect>`)
}

func TestVoiceWithoutIntro(t *testing.T) {
	doc, err := Voice("", "tr", "wss://example.com/stream")
	require.NoError(t, err)

	got := string(doc)
	assert.NotContains(t, got, "<Say")
	assert.Contains(t, got, `<Stream url="wss://example.com/stream"`)
}

func TestMessage(t *testing.T) {
	doc, err := Message("Yarın görüşürüz", "")
	require.NoError(t, err)

	got := string(doc)
	assert.Contains(t, got, "<Body>Yarın görüşürüz</Body>")
	assert.NotContains(t, got, "<Media>")

	doc, err = Message("bak", "https://example.com/brochure.jpg")
	require.NoError(t, err)
	assert.Contains(t, string(doc), "<Media>https://example.com/brochure.jpg</Media>")
}
