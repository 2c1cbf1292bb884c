package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
)

const whisperEndpoint = "https://api.openai.com/v1/audio/transcriptions"

// WhisperSTT transcribes call audio using OpenAI Whisper. Safe for concurrent
// use by multiple call sessions.
type WhisperSTT struct {
	apiKey string
	model  string
	client *http.Client
}

// NewWhisperSTT creates a new Whisper STT instance
func NewWhisperSTT(apiKey string) *WhisperSTT {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	return &WhisperSTT{
		apiKey: apiKey,
		model:  "whisper-1",
		client: &http.Client{},
	}
}

// Transcribe converts a WAV-packaged utterance to text. language is an ISO
// language hint ("tr", "en", ...); empty lets the model detect.
func (w *WhisperSTT) Transcribe(ctx context.Context, wav []byte, language string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(wav); err != nil {
		return "", err
	}

	if err := writer.WriteField("model", w.model); err != nil {
		return "", err
	}
	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			return "", err
		}
	}
	if err := writer.WriteField("response_format", "json"); err != nil {
		return "", err
	}

	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", whisperEndpoint, &buf)
	if err != nil {
		return "", err
	}

	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Whisper API error: %s", string(body))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}

	return result.Text, nil
}
