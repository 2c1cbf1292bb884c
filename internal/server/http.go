package server

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"

	"github.com/azzazafer/akropol-ai/internal/storage"
	"github.com/azzazafer/akropol-ai/internal/twiml"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// telephony provider surface
	mux.HandleFunc("/voice", s.handleVoice)
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/stream", s.handleStream)

	// operator surface
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/calls", s.handleListCalls)
	mux.HandleFunc("GET /api/calls/{sid}", s.handleGetCall)
	mux.HandleFunc("GET /api/providers", s.handleListProviders)
	mux.HandleFunc("GET /api/personas", s.handleListPersonas)

	return mux
}

// handleVoice answers the provider's call webhook with a document that
// connects the call to the media stream socket. The caller identity rides
// along as stream URL query parameters.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	phone := r.URL.Query().Get("phone")

	doc, err := twiml.Voice("", s.config.Get().Voice.Language, s.streamURL(name, phone))
	if err != nil {
		http.Error(w, "twiml render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write(doc)
}

// streamURL derives the websocket endpoint from the configured public URL.
func (s *Server) streamURL(name, phone string) string {
	cfg := s.config.Get()
	u, err := url.Parse(cfg.Server.PublicURL)
	if err != nil {
		log.Printf("[Server] Bad public_url %q: %v", cfg.Server.PublicURL, err)
		u = &url.URL{Scheme: "https", Host: "localhost"}
	}
	if u.Scheme == "http" {
		u.Scheme = "ws"
	} else {
		u.Scheme = "wss"
	}
	u.Path = "/stream"

	q := url.Values{}
	if name != "" {
		q.Set("name", name)
	}
	if phone != "" {
		q.Set("phone", phone)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":       "ok",
		"active_calls": s.registry.Len(),
	})
}

func (s *Server) handleListCalls(w http.ResponseWriter, r *http.Request) {
	calls, err := storage.GetCalls(50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, calls)
}

func (s *Server) handleGetCall(w http.ResponseWriter, r *http.Request) {
	c, err := storage.GetCall(r.PathValue("sid"))
	if err != nil {
		http.Error(w, "call not found", http.StatusNotFound)
		return
	}
	writeJSON(w, c)
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.router.ListProviders())
}

func (s *Server) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	personas, err := s.personas.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, personas)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Server] Response encode failed: %v", err)
	}
}
