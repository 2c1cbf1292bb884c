package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full application configuration, loaded from a TOML file over
// these defaults.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Voice   VoiceConfig   `toml:"voice"`
	LLM     LLMConfig     `toml:"llm"`
	Storage StorageConfig `toml:"storage"`
	MQTT    MQTTConfig    `toml:"mqtt"`
}

// ServerConfig holds the HTTP/websocket listener settings.
type ServerConfig struct {
	Addr      string `toml:"addr"`
	PublicURL string `toml:"public_url"`
}

// VoiceConfig tunes the call audio bridge.
type VoiceConfig struct {
	// ThresholdBytes is the utterance segmentation length in raw mu-law
	// bytes: 20000 bytes is roughly 2.5 seconds at 8 kHz. A byte threshold
	// is a stand-in for real voice activity detection.
	ThresholdBytes int `toml:"threshold_bytes"`
	// FlushOnStop transcribes a trailing sub-threshold buffer when the call
	// ends instead of discarding it.
	FlushOnStop bool   `toml:"flush_on_stop"`
	Language    string `toml:"language"`
	Voice       string `toml:"voice"`
	Greeting    string `toml:"greeting"`
	// FrameBytes and FrameIntervalMS pace outbound audio: 160 mu-law bytes
	// every 20 ms matches the 8 kHz playback rate of the phone leg.
	FrameBytes      int `toml:"frame_bytes"`
	FrameIntervalMS int `toml:"frame_interval_ms"`
}

// LLMConfig selects the dialogue provider and scripts.
type LLMConfig struct {
	Provider           string `toml:"provider"`
	Model              string `toml:"model"`
	Persona            string `toml:"persona"` // persona file name, without extension
	HistoryDepth       int    `toml:"history_depth"`
	ApologyReply       string `toml:"apology_reply"`
	FallbackTranscript string `toml:"fallback_transcript"`
}

// StorageConfig holds the call log location.
type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// MQTTConfig enables the call-event publisher when a broker URL is set.
type MQTTConfig struct {
	BrokerURL string `toml:"broker_url"`
	Topic     string `toml:"topic"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      ":8080",
			PublicURL: "https://akropol-ai.onrender.com",
		},
		Voice: VoiceConfig{
			ThresholdBytes:  20000,
			FlushOnStop:     false,
			Language:        "tr",
			Voice:           "shimmer",
			Greeting:        "Merhaba, ben Aura. Akropol Termal hakkında size nasıl yardımcı olabilirim?",
			FrameBytes:      160,
			FrameIntervalMS: 20,
		},
		LLM: LLMConfig{
			Provider:           "openai",
			Model:              "gpt-4o",
			Persona:            "default",
			HistoryDepth:       6,
			ApologyReply:       "Hatlarımızda yoğunluk var, hemen döneceğim.",
			FallbackTranscript: "[anlaşılamayan ses]",
		},
		Storage: StorageConfig{
			DBPath: "akropol.db",
		},
		MQTT: MQTTConfig{
			Topic: "akropol/calls",
		},
	}
}

// Load reads a TOML config file over the defaults. A missing file is not an
// error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
