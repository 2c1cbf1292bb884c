package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/azzazafer/akropol-ai/internal/server"
)

func main() {
	configPath := flag.String("config", "akropol.toml", "TOML configuration file path")
	personaDir := flag.String("personas", "personas", "Persona files directory")
	httpAddr := flag.String("http", "", "HTTP/WebSocket listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	openaiKey := flag.String("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY)")
	anthropicKey := flag.String("anthropic-key", "", "Anthropic API key (or set ANTHROPIC_API_KEY)")
	flag.Parse()

	srv, err := server.New(server.Options{
		ConfigPath:   *configPath,
		PersonaDir:   *personaDir,
		Addr:         *httpAddr,
		DBPath:       *dbPath,
		OpenAIKey:    *openaiKey,
		AnthropicKey: *anthropicKey,
	})
	if err != nil {
		log.Fatalf("Startup error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
