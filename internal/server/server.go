package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/azzazafer/akropol-ai/internal/call"
	"github.com/azzazafer/akropol-ai/internal/config"
	"github.com/azzazafer/akropol-ai/internal/event"
	"github.com/azzazafer/akropol-ai/internal/llm"
	"github.com/azzazafer/akropol-ai/internal/persona"
	"github.com/azzazafer/akropol-ai/internal/storage"
	"github.com/azzazafer/akropol-ai/internal/voice"
)

// Options are process-level overrides applied over the config file, set from
// flags or the environment.
type Options struct {
	ConfigPath   string
	PersonaDir   string
	Addr         string
	DBPath       string
	OpenAIKey    string
	AnthropicKey string
}

// Server owns the call bridge: the HTTP/websocket surface and every
// collaborator behind it.
type Server struct {
	config   *config.Manager
	bus      *event.Bus
	registry *call.Registry
	pipeline *call.Pipeline
	router   *llm.Router
	reply    *llmResponder
	personas *persona.Manager
	stt      *voice.WhisperSTT
	fetcher  *voice.Fetcher
	recorder *storage.Recorder
	mqtt     *event.MQTTPublisher

	httpServer *http.Server
}

// New wires the full server from configuration.
func New(opts Options) (*Server, error) {
	cfgMgr, err := config.NewManager(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg := cfgMgr.Get()

	addr := cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	dbPath := cfg.Storage.DBPath
	if opts.DBPath != "" {
		dbPath = opts.DBPath
	}
	personaDir := opts.PersonaDir
	if personaDir == "" {
		personaDir = "personas"
	}

	if err := storage.Init(dbPath); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	bus := event.NewBus()
	recorder := storage.NewRecorder(bus)

	router := llm.NewRouter()
	router.RegisterProvider(llm.NewOpenAIProvider(opts.OpenAIKey, cfg.LLM.Model))
	if opts.AnthropicKey != "" {
		router.RegisterProvider(llm.NewAnthropicProvider(opts.AnthropicKey, ""))
	}
	if err := router.SetDefaultProvider(cfg.LLM.Provider); err != nil {
		log.Printf("[Server] %v, keeping default", err)
	}
	reply := &llmResponder{router: router, provider: cfg.LLM.Provider}

	personas, err := persona.NewManager(personaDir)
	if err != nil {
		return nil, fmt.Errorf("personas: %w", err)
	}

	stt := voice.NewWhisperSTT(opts.OpenAIKey)
	tts := voice.NewOpenAITTS(opts.OpenAIKey)

	pipeline, err := call.NewPipeline(stt, reply, tts, voice.SynthesisRate, pipelineSettings(cfg, personas))
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	s := &Server{
		config:   cfgMgr,
		bus:      bus,
		registry: call.NewRegistry(),
		pipeline: pipeline,
		router:   router,
		reply:    reply,
		personas: personas,
		stt:      stt,
		fetcher:  voice.NewFetcher(),
		recorder: recorder,
	}

	// Config or persona edits retune live calls; in-flight turns finish with
	// the settings they started with.
	cfgMgr.OnReload(func(fresh *config.Config) {
		pipeline.UpdateSettings(pipelineSettings(fresh, personas))
		reply.setProvider(fresh.LLM.Provider)
	})
	personas.OnChange(func() {
		pipeline.UpdateSettings(pipelineSettings(cfgMgr.Get(), personas))
	})

	if cfg.MQTT.BrokerURL != "" {
		pub, err := event.NewMQTTPublisher(bus, cfg.MQTT.BrokerURL, "akropol-"+uuid.New().String()[:8], cfg.MQTT.Topic)
		if err != nil {
			log.Printf("[Server] MQTT disabled: %v", err)
		} else {
			s.mqtt = pub
		}
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func pipelineSettings(cfg *config.Config, personas *persona.Manager) call.Settings {
	return call.Settings{
		Language:           cfg.Voice.Language,
		Voice:              cfg.Voice.Voice,
		Persona:            personas.SystemPrompt(cfg.LLM.Persona),
		HistoryDepth:       cfg.LLM.HistoryDepth,
		FrameBytes:         cfg.Voice.FrameBytes,
		FallbackTranscript: cfg.LLM.FallbackTranscript,
		ApologyReply:       cfg.LLM.ApologyReply,
	}
}

// Start runs the HTTP server until ctx is cancelled, then shuts down.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] Shutdown: %v", err)
	}
	s.Stop()
	return nil
}

// Stop releases the server's background collaborators.
func (s *Server) Stop() {
	if s.mqtt != nil {
		s.mqtt.Close()
	}
	s.recorder.Stop()
	s.personas.Stop()
	s.config.Stop()
}

// llmResponder adapts the provider router to the pipeline's reply interface,
// framing the persona prompt and dialogue history as chat messages.
type llmResponder struct {
	router *llm.Router

	mu       sync.RWMutex
	provider string
}

func (r *llmResponder) setProvider(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.provider = name
}

func (r *llmResponder) providerName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.provider
}

// GenerateReply implements call.Responder.
func (r *llmResponder) GenerateReply(ctx context.Context, history []call.Turn, personaPrompt string) (string, error) {
	messages := make([]llm.Message, 0, len(history)+1)
	if personaPrompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: personaPrompt})
	}
	for _, t := range history {
		messages = append(messages, llm.Message{Role: t.Role, Content: t.Content})
	}

	resp, err := r.router.Chat(ctx, messages, r.providerName())
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
