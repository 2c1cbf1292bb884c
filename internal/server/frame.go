package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// streamFrame is one JSON frame on the media stream socket. The provider
// sends start/media/stop events inbound; outbound audio goes back as media
// frames addressed by stream SID.
type streamFrame struct {
	Event     string      `json:"event"`
	StreamSID string      `json:"streamSid,omitempty"`
	Start     *startBlock `json:"start,omitempty"`
	Media     *mediaBlock `json:"media,omitempty"`
}

type startBlock struct {
	StreamSID string `json:"streamSid"`
}

type mediaBlock struct {
	Payload string `json:"payload"`
}

// parseFrame decodes and validates one inbound frame. Malformed JSON, an
// unknown event type, or a frame missing its event block is an error; the
// reader drops such frames and keeps the connection alive.
func parseFrame(data []byte) (*streamFrame, error) {
	var f streamFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	switch f.Event {
	case "start":
		if f.Start == nil {
			return nil, fmt.Errorf("start frame missing start block")
		}
	case "media":
		if f.Media == nil {
			return nil, fmt.Errorf("media frame missing media block")
		}
	case "stop":
	case "":
		return nil, fmt.Errorf("frame missing event type")
	default:
		return nil, fmt.Errorf("unknown event type %q", f.Event)
	}
	return &f, nil
}

// decodeMediaPayload unwraps the base64 audio of a media frame.
func decodeMediaPayload(f *streamFrame) ([]byte, error) {
	payload, err := base64.StdEncoding.DecodeString(f.Media.Payload)
	if err != nil {
		return nil, fmt.Errorf("invalid media payload: %w", err)
	}
	return payload, nil
}

// encodeMediaFrame wraps one outbound mu-law frame for the wire.
func encodeMediaFrame(streamSID string, ulaw []byte) ([]byte, error) {
	return json.Marshal(&streamFrame{
		Event:     "media",
		StreamSID: streamSID,
		Media:     &mediaBlock{Payload: base64.StdEncoding.EncodeToString(ulaw)},
	})
}
