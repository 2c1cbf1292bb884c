package call

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/azzazafer/akropol-ai/internal/audio"
)

// TelephonyRate is the sample rate of the phone leg.
const TelephonyRate = 8000

// Transcriber converts call audio (a WAV container) to text.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte, language string) (string, error)
}

// Responder generates the assistant reply for a dialogue history.
type Responder interface {
	GenerateReply(ctx context.Context, history []Turn, persona string) (string, error)
}

// Synthesizer renders text as 16-bit mono PCM at its native sample rate.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// MediaFetcher downloads externally referenced inbound audio.
type MediaFetcher interface {
	FetchRemoteMedia(ctx context.Context, url string) ([]byte, error)
}

// Settings are the tunables of a pipeline round trip. They can be swapped at
// runtime when the configuration or persona file changes.
type Settings struct {
	Language           string
	Voice              string
	Persona            string
	HistoryDepth       int
	FrameBytes         int
	FallbackTranscript string
	ApologyReply       string
}

// TurnResult is the outcome of one processed utterance. Frames may be empty
// when synthesis failed; the dialogue turns are recorded regardless.
type TurnResult struct {
	UserText  string
	ReplyText string
	Frames    [][]byte
}

// Pipeline sequences one utterance through transcription, reply generation,
// speech synthesis and re-encoding for the telephony leg. Collaborator
// failures degrade to scripted fallbacks; they never abort the turn. A
// pipeline is shared by all sessions and is safe for concurrent use.
type Pipeline struct {
	stt  Transcriber
	llm  Responder
	tts  Synthesizer
	down *audio.Decimator

	mu       sync.RWMutex
	settings Settings
}

// NewPipeline wires the three collaborators. synthesisRate is the native rate
// of the synthesizer output; only rates the decimator supports are accepted.
func NewPipeline(stt Transcriber, llm Responder, tts Synthesizer, synthesisRate int, settings Settings) (*Pipeline, error) {
	down, err := audio.NewDecimator(synthesisRate, TelephonyRate)
	if err != nil {
		return nil, fmt.Errorf("pipeline resampler: %w", err)
	}
	if settings.FrameBytes <= 0 {
		return nil, fmt.Errorf("invalid outbound frame size %d", settings.FrameBytes)
	}
	if settings.HistoryDepth <= 0 {
		settings.HistoryDepth = 6
	}
	return &Pipeline{
		stt:      stt,
		llm:      llm,
		tts:      tts,
		down:     down,
		settings: settings,
	}, nil
}

// UpdateSettings swaps the runtime tunables. In-flight turns keep the
// settings they started with.
func (p *Pipeline) UpdateSettings(settings Settings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if settings.FrameBytes <= 0 {
		settings.FrameBytes = p.settings.FrameBytes
	}
	if settings.HistoryDepth <= 0 {
		settings.HistoryDepth = p.settings.HistoryDepth
	}
	p.settings = settings
}

// Snapshot returns the current settings.
func (p *Pipeline) Snapshot() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings
}

// ProcessTurn runs one transcribe -> reply -> synthesize round trip for a
// segmented mu-law utterance and returns the outbound frames. Exactly one
// user turn and one assistant turn are appended to the session history.
func (p *Pipeline) ProcessTurn(ctx context.Context, sess *Session, ulaw []byte) *TurnResult {
	cfg := p.Snapshot()

	pcm := audio.PCM16FromUlaw(ulaw)
	wav := audio.WAVFromPCM16(pcm, TelephonyRate)

	text, err := p.stt.Transcribe(ctx, wav, cfg.Language)
	if err != nil {
		log.Printf("[Pipeline] Transcription failed for %s: %v", sess.StreamSID, err)
		text = cfg.FallbackTranscript
	}
	sess.AppendTurn("user", text)

	reply, err := p.llm.GenerateReply(ctx, sess.RecentHistory(cfg.HistoryDepth), cfg.Persona)
	if err != nil {
		log.Printf("[Pipeline] Reply generation failed for %s: %v", sess.StreamSID, err)
		reply = cfg.ApologyReply
	}
	sess.AppendTurn("assistant", reply)

	result := &TurnResult{UserText: text, ReplyText: reply}

	frames, err := p.Speak(ctx, reply)
	if err != nil {
		// Reply stays recorded; the call just hears nothing for this turn.
		log.Printf("[Pipeline] Synthesis failed for %s: %v", sess.StreamSID, err)
		return result
	}
	result.Frames = frames
	return result
}

// TranscribeFinal transcribes a flushed sub-threshold remainder after a call
// ended and records it as a trailing user turn. No reply is generated; there
// is nobody on the line to hear one.
func (p *Pipeline) TranscribeFinal(ctx context.Context, sess *Session, ulaw []byte) *TurnResult {
	cfg := p.Snapshot()

	pcm := audio.PCM16FromUlaw(ulaw)
	wav := audio.WAVFromPCM16(pcm, TelephonyRate)

	text, err := p.stt.Transcribe(ctx, wav, cfg.Language)
	if err != nil {
		log.Printf("[Pipeline] Final transcription failed for %s: %v", sess.StreamSID, err)
		text = cfg.FallbackTranscript
	}
	sess.AppendTurn("user", text)
	return &TurnResult{UserText: text}
}

// Speak synthesizes text and returns it as telephony-ready mu-law frames,
// downsampled to 8 kHz and chunked to the configured frame size so the writer
// can pace them at playback rate.
func (p *Pipeline) Speak(ctx context.Context, text string) ([][]byte, error) {
	cfg := p.Snapshot()

	pcm, err := p.tts.Synthesize(ctx, text, cfg.Voice)
	if err != nil {
		return nil, err
	}
	ulaw := audio.UlawFromPCM16(p.down.Downsample(pcm))
	return chunkFrames(ulaw, cfg.FrameBytes), nil
}

func chunkFrames(data []byte, size int) [][]byte {
	if len(data) == 0 {
		return nil
	}
	frames := make([][]byte, 0, (len(data)+size-1)/size)
	for i := 0; i < len(data); i += size {
		end := i + size
		if end > len(data) {
			end = len(data)
		}
		frames = append(frames, data[i:end])
	}
	return frames
}
