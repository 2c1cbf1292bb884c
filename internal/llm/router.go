package llm

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Provider represents an LLM provider
type Provider interface {
	Name() string
	Chat(ctx context.Context, messages []Message) (*Response, error)
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Response represents an LLM response
type Response struct {
	Content string `json:"content"`
}

// Router routes chat requests to the configured LLM provider. Providers are
// registered once at startup; Chat is called concurrently by all active call
// sessions.
type Router struct {
	mu              sync.RWMutex
	providers       map[string]Provider
	defaultProvider string
}

// NewRouter creates a new LLM router
func NewRouter() *Router {
	return &Router{providers: make(map[string]Provider)}
}

// RegisterProvider adds an LLM provider
func (r *Router) RegisterProvider(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
	if r.defaultProvider == "" {
		r.defaultProvider = provider.Name()
	}
	log.Printf("[LLM Router] Registered provider: %s", provider.Name())
}

// SetDefaultProvider sets the default provider
func (r *Router) SetDefaultProvider(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("provider %s not found", name)
	}
	r.defaultProvider = name
	return nil
}

// ProviderInfo contains information about an LLM provider
type ProviderInfo struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// ListProviders returns all registered providers
func (r *Router) ListProviders() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]ProviderInfo, 0, len(r.providers))
	for name := range r.providers {
		result = append(result, ProviderInfo{
			Name:      name,
			IsDefault: name == r.defaultProvider,
		})
	}
	return result
}

// Chat sends messages to the named provider, or the default when name is
// empty.
func (r *Router) Chat(ctx context.Context, messages []Message, providerName string) (*Response, error) {
	r.mu.RLock()
	if providerName == "" {
		providerName = r.defaultProvider
	}
	provider, ok := r.providers[providerName]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no LLM provider available (requested %q)", providerName)
	}
	return provider.Chat(ctx, messages)
}
