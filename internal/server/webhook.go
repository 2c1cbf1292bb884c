package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/azzazafer/akropol-ai/internal/llm"
	"github.com/azzazafer/akropol-ai/internal/storage"
	"github.com/azzazafer/akropol-ai/internal/twiml"
)

const webhookTimeout = 45 * time.Second

// handleWebhook serves the WhatsApp message webhook: text messages go to the
// dialogue model directly, voice notes are fetched and transcribed first.
// The reply comes back as a messaging document.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	from := r.FormValue("From")
	body := r.FormValue("Body")
	mediaURL := r.FormValue("MediaUrl0")
	if from == "" || (body == "" && mediaURL == "") {
		http.Error(w, "empty message", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), webhookTimeout)
	defer cancel()

	userText := body
	if mediaURL != "" {
		userText = s.transcribeVoiceNote(ctx, mediaURL)
	}

	// reply is generated before the inbound message is saved, so the loaded
	// history does not already contain it
	reply := s.messageReply(ctx, from, userText)
	s.saveMessage(from, "user", userText, mediaURL)
	s.saveMessage(from, "assistant", reply, "")

	doc, err := twiml.Message(reply, "")
	if err != nil {
		http.Error(w, "twiml render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write(doc)
}

// transcribeVoiceNote downloads a voice note and runs it through the
// transcriber. Failures degrade to a marker so the thread keeps flowing.
func (s *Server) transcribeVoiceNote(ctx context.Context, mediaURL string) string {
	cfg := s.config.Get()

	data, err := s.fetcher.FetchRemoteMedia(ctx, mediaURL)
	if err != nil {
		log.Printf("[Webhook] Media fetch failed: %v", err)
		return cfg.LLM.FallbackTranscript
	}
	text, err := s.stt.Transcribe(ctx, data, cfg.Voice.Language)
	if err != nil {
		log.Printf("[Webhook] Voice note transcription failed: %v", err)
		return cfg.LLM.FallbackTranscript
	}
	return text
}

// messageReply builds the chat context from the recent thread and asks the
// dialogue model. Failures degrade to the scripted apology.
func (s *Server) messageReply(ctx context.Context, from, userText string) string {
	cfg := s.config.Get()

	history, err := storage.RecentMessages(from, cfg.LLM.HistoryDepth)
	if err != nil {
		log.Printf("[Webhook] History load failed for %s: %v", from, err)
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    "system",
		Content: s.personas.SystemPrompt(cfg.LLM.Persona),
	})
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: userText})

	resp, err := s.router.Chat(ctx, messages, cfg.LLM.Provider)
	if err != nil {
		log.Printf("[Webhook] Reply generation failed for %s: %v", from, err)
		return cfg.LLM.ApologyReply
	}
	return resp.Content
}

func (s *Server) saveMessage(phone, role, content, mediaURL string) {
	err := storage.SaveMessage(&storage.Message{
		ID:       uuid.New().String(),
		Phone:    phone,
		Role:     role,
		Content:  content,
		MediaURL: mediaURL,
	})
	if err != nil {
		log.Printf("[Webhook] Failed to save message for %s: %v", phone, err)
	}
}
