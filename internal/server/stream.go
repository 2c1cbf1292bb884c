package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/azzazafer/akropol-ai/internal/call"
	"github.com/azzazafer/akropol-ai/internal/event"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size. Media frames are a few hundred bytes of
	// base64; anything near this limit is not call audio.
	maxFrameSize = 1 << 20

	// turnQueueSize bounds utterances waiting for a pipeline round trip. The
	// reader never blocks on processing; if a caller somehow outruns this
	// queue the oldest unprocessed speech is dropped, not the connection.
	turnQueueSize = 8

	// sendQueueSize bounds outbound frames waiting for the paced writer.
	// A full reply at 160 bytes per frame is a few hundred frames.
	sendQueueSize = 1024

	// finalTurnTimeout bounds the optional flush round trip after stop. The
	// session context is already cancelled at that point.
	finalTurnTimeout = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // telephony provider connects from its own infrastructure
	},
}

// turnJob is one unit of work for the processing goroutine.
type turnJob struct {
	greeting string // spoken verbatim, no transcription round trip
	ulaw     []byte // segmented utterance
	final    bool   // flushed remainder after stop; audio reply is discarded
}

// CallClient is one live media stream connection. Three goroutines share it:
// readPump parses inbound frames and segments utterances, processPump runs
// pipeline round trips serially, and writePump paces outbound frames onto
// the socket. The reader hands work to the processor over a bounded queue so
// a slow collaborator round trip never blocks inbound audio.
type CallClient struct {
	server  *Server
	conn    *websocket.Conn
	session *call.Session

	send  chan []byte
	turns chan turnJob

	// identity from the TwiML stream URL, applied on the start event
	name  string
	phone string

	greeting    string
	flushOnStop bool
}

// handleStream upgrades /stream to a websocket and starts the pump trio.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Stream] Upgrade failed: %v", err)
		return
	}

	cfg := s.config.Get()
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "Misafirimiz"
	}

	client := &CallClient{
		server:      s,
		conn:        conn,
		session:     call.NewSession(cfg.Voice.ThresholdBytes),
		send:        make(chan []byte, sendQueueSize),
		turns:       make(chan turnJob, turnQueueSize),
		name:        name,
		phone:       r.URL.Query().Get("phone"),
		greeting:    cfg.Voice.Greeting,
		flushOnStop: cfg.Voice.FlushOnStop,
	}

	go client.writePump(time.Duration(cfg.Voice.FrameIntervalMS) * time.Millisecond)
	go client.processPump()
	go client.readPump()
}

// readPump reads frames until the peer goes away or sends stop. It owns the
// connection's read side and the session teardown.
func (c *CallClient) readPump() {
	defer func() {
		// A disconnect without a stop frame tears the call down the same way.
		c.endCall()
		close(c.turns)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Stream] Read error: %v", err)
			}
			return
		}

		frame, err := parseFrame(data)
		if err != nil {
			log.Printf("[Stream] Dropping frame: %v", err)
			continue
		}

		switch frame.Event {
		case "start":
			c.handleStart(frame)
		case "media":
			c.handleMedia(frame)
		case "stop":
			log.Printf("[Stream] Stop received for %s", c.session.StreamSID)
			return
		}
	}
}

func (c *CallClient) handleStart(frame *streamFrame) {
	sid := frame.Start.StreamSID
	if sid == "" || !c.session.Start(sid, c.name, c.phone) {
		return
	}
	c.server.registry.Add(c.session)
	log.Printf("[Stream] Call started: %s (%s, %s)", sid, c.name, c.phone)

	c.server.bus.Publish(&event.Event{
		Type:        event.TypeCallStarted,
		StreamSID:   sid,
		CalleeName:  c.name,
		CalleePhone: c.phone,
		Timestamp:   time.Now(),
	})

	if c.greeting != "" {
		c.enqueueTurn(turnJob{greeting: c.greeting})
	}
}

func (c *CallClient) handleMedia(frame *streamFrame) {
	payload, err := decodeMediaPayload(frame)
	if err != nil {
		log.Printf("[Stream] Dropping frame: %v", err)
		return
	}
	utterance, ready := c.session.AppendMedia(payload)
	if !ready {
		return
	}
	c.enqueueTurn(turnJob{ulaw: utterance})
}

func (c *CallClient) enqueueTurn(job turnJob) {
	select {
	case c.turns <- job:
	default:
		log.Printf("[Stream] Turn queue full for %s, dropping utterance", c.session.StreamSID)
	}
}

// endCall terminates the session, hands any flushed remainder to the
// processor and publishes the lifecycle event. Safe to call twice.
func (c *CallClient) endCall() {
	if c.session.State() == call.StateEnded {
		return
	}
	sid := c.session.StreamSID

	remainder := c.session.End(c.flushOnStop)
	if len(remainder) > 0 {
		c.enqueueTurn(turnJob{ulaw: remainder, final: true})
	}

	if sid == "" {
		return // never started
	}
	c.server.registry.Remove(sid)
	log.Printf("[Stream] Call ended: %s", sid)

	c.server.bus.Publish(&event.Event{
		Type:        event.TypeCallEnded,
		StreamSID:   sid,
		CalleeName:  c.name,
		CalleePhone: c.phone,
		Timestamp:   time.Now(),
	})
}

// processPump drains the turn queue serially: one pipeline round trip at a
// time per call, in arrival order. Closing the turn queue (reader exit)
// finishes pending work, then releases the writer.
func (c *CallClient) processPump() {
	for job := range c.turns {
		switch {
		case job.greeting != "":
			c.speakGreeting(job.greeting)
		case job.final:
			c.processFinalTurn(job.ulaw)
		default:
			c.processTurn(job.ulaw)
		}
	}
	close(c.send)
}

func (c *CallClient) processTurn(ulaw []byte) {
	c.session.BeginTurn()
	result := c.server.pipeline.ProcessTurn(c.session.Context(), c.session, ulaw)
	c.session.EndTurn()

	c.publishTurn("user", result.UserText)
	c.publishTurn("assistant", result.ReplyText)
	c.sendFrames(result.Frames)
}

// processFinalTurn transcribes a flushed sub-threshold remainder after the
// call has ended, so the trailing words still land in the transcript. There
// is nobody left to hear a reply, so synthesis is skipped.
func (c *CallClient) processFinalTurn(ulaw []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), finalTurnTimeout)
	defer cancel()

	result := c.server.pipeline.TranscribeFinal(ctx, c.session, ulaw)
	c.publishTurn("user", result.UserText)
	c.publishTurn("assistant", result.ReplyText)
}

// speakGreeting synthesizes the opening line without a transcription round
// trip and records it as the first assistant turn.
func (c *CallClient) speakGreeting(text string) {
	frames, err := c.server.pipeline.Speak(c.session.Context(), text)
	if err != nil {
		log.Printf("[Stream] Greeting synthesis failed for %s: %v", c.session.StreamSID, err)
		return
	}
	c.session.AppendTurn("assistant", text)
	c.publishTurn("assistant", text)
	c.sendFrames(frames)
}

func (c *CallClient) publishTurn(role, content string) {
	if content == "" {
		return
	}
	c.server.bus.Publish(&event.Event{
		Type:      event.TypeCallTurn,
		StreamSID: c.session.StreamSID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}

func (c *CallClient) sendFrames(frames [][]byte) {
	for _, frame := range frames {
		data, err := encodeMediaFrame(c.session.StreamSID, frame)
		if err != nil {
			continue
		}
		select {
		case c.send <- data:
		default:
			log.Printf("[Stream] Send queue full for %s, dropping frame", c.session.StreamSID)
			return
		}
	}
}

// writePump owns the connection's write side. Media frames are paced at the
// telephony playback rate instead of being blasted out as fast as synthesis
// finishes, so the provider's jitter buffer is never flooded.
func (c *CallClient) writePump(frameInterval time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
			if frameInterval > 0 {
				time.Sleep(frameInterval)
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
