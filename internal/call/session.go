package call

import (
	"context"
	"log"
	"sync"
)

// State is the lifecycle state of a call session.
type State int

const (
	StateAwaitingStart State = iota
	StateStreaming
	StateProcessing
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateAwaitingStart:
		return "awaiting_start"
	case StateStreaming:
		return "streaming"
	case StateProcessing:
		return "processing"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Turn is one entry of the dialogue history.
type Turn struct {
	Role    string
	Content string
}

// Session holds the per-call state: identity, turn history and the inbound
// audio accumulator. One session corresponds to exactly one media stream
// connection. All methods are safe for concurrent use by the reader and
// processor goroutines of that connection.
type Session struct {
	StreamSID   string
	CalleeName  string
	CalleePhone string

	mu        sync.Mutex
	state     State
	buffer    []byte
	threshold int
	history   []Turn

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession creates a session in the awaiting-start state. threshold is the
// utterance segmentation length in raw mu-law bytes. The segmentation policy
// is a plain byte-length proxy for "enough speech", not voice activity
// detection.
func NewSession(threshold int) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		state:     StateAwaitingStart,
		threshold: threshold,
		buffer:    make([]byte, 0, threshold),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Context is cancelled when the session ends, which cancels any in-flight
// collaborator calls for this call.
func (s *Session) Context() context.Context { return s.ctx }

// Start moves the session from awaiting-start to streaming and captures the
// stream identity. Returns false if the session is not awaiting a start event.
func (s *Session) Start(streamSID, name, phone string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingStart {
		log.Printf("[Session] Ignoring start in state %s", s.state)
		return false
	}
	s.StreamSID = streamSID
	s.CalleeName = name
	s.CalleePhone = phone
	s.state = StateStreaming
	return true
}

// AppendMedia adds inbound mu-law bytes to the utterance buffer. When the
// buffer reaches the segmentation threshold the accumulated utterance is
// drained and returned with ready=true; the buffer is empty afterwards.
// Media arriving while a previous turn is still processing is buffered too,
// so a slow collaborator round trip never blocks reception. Media before
// start or after end is dropped.
func (s *Session) AppendMedia(payload []byte) (utterance []byte, ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStreaming && s.state != StateProcessing {
		return nil, false
	}
	s.buffer = append(s.buffer, payload...)
	if len(s.buffer) < s.threshold {
		return nil, false
	}
	utterance = s.buffer
	s.buffer = make([]byte, 0, s.threshold)
	return utterance, true
}

// BeginTurn marks the start of a pipeline round trip.
func (s *Session) BeginTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStreaming {
		s.state = StateProcessing
	}
}

// EndTurn marks the completion of a pipeline round trip, successful or not.
func (s *Session) EndTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateProcessing {
		s.state = StateStreaming
	}
}

// End terminates the session and cancels its context. Any buffered audio
// below the threshold is drained; it is returned only when flush is true,
// otherwise it is discarded untranscribed. End is idempotent.
func (s *Session) End(flush bool) (remainder []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateEnded {
		return nil
	}
	s.state = StateEnded
	if flush && len(s.buffer) > 0 {
		remainder = s.buffer
	}
	s.buffer = nil
	s.cancel()
	return remainder
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BufferLen returns the current size of the unsegmented inbound buffer.
func (s *Session) BufferLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

// AppendTurn records a completed dialogue turn. Only the owning connection's
// processing path calls this.
func (s *Session) AppendTurn(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Turn{Role: role, Content: content})
}

// RecentHistory returns a copy of the most recent n turns in order.
func (s *Session) RecentHistory(n int) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if len(s.history) > n {
		start = len(s.history) - n
	}
	out := make([]Turn, len(s.history)-start)
	copy(out, s.history[start:])
	return out
}
