package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azzazafer/akropol-ai/internal/call"
	"github.com/azzazafer/akropol-ai/internal/config"
	"github.com/azzazafer/akropol-ai/internal/event"
)

type fakeSTT struct{ text string }

func (f *fakeSTT) Transcribe(context.Context, []byte, string) (string, error) {
	return f.text, nil
}

type fakeResponder struct {
	reply string
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeResponder) GenerateReply(ctx context.Context, _ []call.Turn, _ string) (string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, nil
}

type fakeTTS struct{ pcm []byte }

func (f *fakeTTS) Synthesize(context.Context, string, string) ([]byte, error) {
	return f.pcm, nil
}

// eventSink collects bus events for assertions.
type eventSink struct {
	mu     sync.Mutex
	events []*event.Event
}

func (s *eventSink) handle(evt *event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *eventSink) byType(eventType string) []*event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*event.Event
	for _, evt := range s.events {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

const streamTestConfig = `
[voice]
threshold_bytes = 400
greeting = ""
frame_bytes = 160
frame_interval_ms = 0
flush_on_stop = false
`

func newStreamTestServer(t *testing.T, cfgTOML string, responder call.Responder) (*Server, *eventSink, *httptest.Server) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "akropol.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgTOML), 0644))
	cfgMgr, err := config.NewManager(cfgPath)
	require.NoError(t, err)
	t.Cleanup(cfgMgr.Stop)

	cfg := cfgMgr.Get()
	// 480 synthesis samples per reply: exactly one 160-byte outbound frame
	pipeline, err := call.NewPipeline(
		&fakeSTT{text: "merhaba"}, responder, &fakeTTS{pcm: make([]byte, 960)},
		24000,
		call.Settings{
			Language:           cfg.Voice.Language,
			Voice:              cfg.Voice.Voice,
			HistoryDepth:       6,
			FrameBytes:         cfg.Voice.FrameBytes,
			FallbackTranscript: "[?]",
			ApologyReply:       "bir saniye",
		},
	)
	require.NoError(t, err)

	s := &Server{
		config:   cfgMgr,
		bus:      event.NewBus(),
		registry: call.NewRegistry(),
		pipeline: pipeline,
	}
	sink := &eventSink{}
	s.bus.Subscribe([]string{"call.*"}, sink.handle)

	ts := httptest.NewServer(http.HandlerFunc(s.handleStream))
	t.Cleanup(ts.Close)
	return s, sink, ts
}

func dialStream(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(raw)))
}

func sendMedia(t *testing.T, conn *websocket.Conn, n int) {
	t.Helper()
	payload := base64.StdEncoding.EncodeToString(make([]byte, n))
	sendJSON(t, conn, `{"event":"media","media":{"payload":"`+payload+`"}}`)
}

func readMediaFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) *streamFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var f streamFrame
	require.NoError(t, json.Unmarshal(data, &f))
	require.Equal(t, "media", f.Event)
	return &f
}

func TestStreamRoundTrip(t *testing.T) {
	responder := &fakeResponder{reply: "Hoş geldiniz!"}
	s, sink, ts := newStreamTestServer(t, streamTestConfig, responder)

	conn := dialStream(t, ts, "?name=Ay%C5%9Fe&phone=%2B905551112233")
	sendJSON(t, conn, `{"event":"start","start":{"streamSid":"MZ1"}}`)

	require.Eventually(t, func() bool { return s.registry.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	sess, ok := s.registry.Get("MZ1")
	require.True(t, ok)
	assert.Equal(t, "Ayşe", sess.CalleeName)
	assert.Equal(t, "+905551112233", sess.CalleePhone)

	sendMedia(t, conn, 400)

	frame := readMediaFrame(t, conn, 5*time.Second)
	assert.Equal(t, "MZ1", frame.StreamSID)
	audio, err := base64.StdEncoding.DecodeString(frame.Media.Payload)
	require.NoError(t, err)
	assert.Len(t, audio, 160)

	sendJSON(t, conn, `{"event":"stop"}`)

	require.Eventually(t, func() bool { return s.registry.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return len(sink.byType(event.TypeCallStarted)) == 1 &&
			len(sink.byType(event.TypeCallTurn)) == 2 &&
			len(sink.byType(event.TypeCallEnded)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	turns := sink.byType(event.TypeCallTurn)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "merhaba", turns[0].Content)
	assert.Equal(t, "assistant", turns[1].Role)
	assert.Equal(t, "Hoş geldiniz!", turns[1].Content)
}

// Inbound media keeps flowing while a slow collaborator round trip is in
// flight: the second utterance is segmented and answered even though it
// arrives entirely during the first turn's delay.
func TestStreamInboundNotBlockedByProcessing(t *testing.T) {
	responder := &fakeResponder{reply: "tamam", delay: 1500 * time.Millisecond}
	_, _, ts := newStreamTestServer(t, streamTestConfig, responder)

	conn := dialStream(t, ts, "")
	sendJSON(t, conn, `{"event":"start","start":{"streamSid":"MZ2"}}`)

	sendMedia(t, conn, 400) // first turn, blocks the processor for 1.5s
	for i := 0; i < 4; i++ {
		sendMedia(t, conn, 100) // second utterance arrives mid-turn
	}

	deadline := time.Now().Add(2*responder.delay + 3*time.Second)
	for i := 0; i < 2; i++ {
		frame := readMediaFrame(t, conn, time.Until(deadline))
		assert.Equal(t, "MZ2", frame.StreamSID)
	}
	assert.Equal(t, int32(2), responder.calls.Load())
}

func TestStreamDisconnectWithoutStop(t *testing.T) {
	s, sink, ts := newStreamTestServer(t, streamTestConfig, &fakeResponder{reply: "ok"})

	conn := dialStream(t, ts, "")
	sendJSON(t, conn, `{"event":"start","start":{"streamSid":"MZ3"}}`)
	require.Eventually(t, func() bool { return s.registry.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool { return s.registry.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return len(sink.byType(event.TypeCallEnded)) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStreamSurvivesMalformedFrames(t *testing.T) {
	s, _, ts := newStreamTestServer(t, streamTestConfig, &fakeResponder{reply: "ok"})

	conn := dialStream(t, ts, "")
	sendJSON(t, conn, `this is not json`)
	sendJSON(t, conn, `{"event":"mark"}`)
	sendJSON(t, conn, `{"event":"media","media":{"payload":"!!!"}}`)
	sendJSON(t, conn, `{"event":"start","start":{"streamSid":"MZ4"}}`)

	require.Eventually(t, func() bool { return s.registry.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestStreamSpeaksGreetingOnStart(t *testing.T) {
	cfg := strings.Replace(streamTestConfig, `greeting = ""`, `greeting = "Merhaba, ben Aura."`, 1)
	_, sink, ts := newStreamTestServer(t, cfg, &fakeResponder{reply: "ok"})

	conn := dialStream(t, ts, "")
	sendJSON(t, conn, `{"event":"start","start":{"streamSid":"MZ5"}}`)

	frame := readMediaFrame(t, conn, 5*time.Second)
	assert.Equal(t, "MZ5", frame.StreamSID)

	require.Eventually(t, func() bool {
		turns := sink.byType(event.TypeCallTurn)
		return len(turns) == 1 && turns[0].Content == "Merhaba, ben Aura."
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStreamFlushOnStop(t *testing.T) {
	cfg := strings.Replace(streamTestConfig, "flush_on_stop = false", "flush_on_stop = true", 1)
	_, sink, ts := newStreamTestServer(t, cfg, &fakeResponder{reply: "ok"})

	conn := dialStream(t, ts, "")
	sendJSON(t, conn, `{"event":"start","start":{"streamSid":"MZ6"}}`)
	sendMedia(t, conn, 100) // below threshold, would normally be discarded
	sendJSON(t, conn, `{"event":"stop"}`)

	require.Eventually(t, func() bool {
		turns := sink.byType(event.TypeCallTurn)
		return len(turns) == 1 && turns[0].Role == "user" && turns[0].Content == "merhaba"
	}, 5*time.Second, 10*time.Millisecond)
}
