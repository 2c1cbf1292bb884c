package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

const ttsEndpoint = "https://api.openai.com/v1/audio/speech"

// SynthesisRate is the sample rate of the raw PCM the speech endpoint
// produces: 24 kHz, mono, signed 16-bit little-endian.
const SynthesisRate = 24000

// OpenAITTS synthesizes speech using the OpenAI TTS API. Safe for concurrent
// use by multiple call sessions.
type OpenAITTS struct {
	apiKey string
	model  string
	voice  string
	client *http.Client
}

// NewOpenAITTS creates a new OpenAI TTS instance
func NewOpenAITTS(apiKey string) *OpenAITTS {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	return &OpenAITTS{
		apiKey: apiKey,
		model:  "tts-1",
		voice:  "shimmer",
		client: &http.Client{},
	}
}

// SetModel sets the TTS model (tts-1 or tts-1-hd)
func (t *OpenAITTS) SetModel(model string) {
	t.model = model
}

// Synthesize converts text to raw PCM at SynthesisRate. An empty voice falls
// back to the instance default.
func (t *OpenAITTS) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = t.voice
	}
	reqBody := map[string]string{
		"model":           t.model,
		"input":           text,
		"voice":           voice,
		"response_format": "pcm",
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", ttsEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("TTS API error: %s", string(errBody))
	}

	return io.ReadAll(resp.Body)
}
