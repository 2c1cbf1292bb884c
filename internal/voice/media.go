package voice

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxMediaBytes caps remote voice note downloads. A WhatsApp voice note is a
// few hundred kilobytes; anything past this is not conversational audio.
const maxMediaBytes = 16 << 20

// Fetcher downloads externally referenced inbound audio, e.g. the media URL
// of a WhatsApp voice note delivered by the telephony provider.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a remote media fetcher.
func NewFetcher() *Fetcher {
	return &Fetcher{client: &http.Client{}}
}

// FetchRemoteMedia downloads the audio at url.
func (f *Fetcher) FetchRemoteMedia(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media fetch error: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxMediaBytes {
		return nil, fmt.Errorf("media too large (> %d bytes)", maxMediaBytes)
	}
	return data, nil
}
