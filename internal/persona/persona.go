package persona

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/azzazafer/akropol-ai/internal/config"
)

// Persona is a sales persona profile: the system prompt spoken through the
// bot's voice on the phone.
type Persona struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// DefaultPrompt is the built-in sales persona, used when no persona file
// matches. Mirrors the production Aura script: short sentences, always close
// with a question or next step.
const DefaultPrompt = `Sen 'Aura', Akropol Termal'in dijital satış danışmanısın.

HEDEF: Müşteriyi 'Ücretsiz Tanıtım Tatili'ne getirmek.

TON: Kıdemli, samimi, güvenilir. Bir abla/arkadaş gibi konuş.

KURALLAR:
1. Cümlelerin KISA ve VURUCU olsun (en fazla 15 kelime).
2. Her cevabın sonu mutlaka bir KAPANIŞ SORUSU veya SONRAKİ ADIM ile bitsin.
3. Asla "üzgünüm" veya "robotum" deme.
4. ŞU AN TELEFONDASIN. Cevabın sesli okunacak. Noktalama işaretlerine dikkat et. Kısa konuş.`

// ChangeHandler is called when persona files change
type ChangeHandler func()

// Manager handles persona files (<name>.md) in a directory and reloads them
// when edited, so the sales script can be tuned mid-deployment.
type Manager struct {
	dir           string
	mu            sync.RWMutex
	watcher       *config.FileWatcher
	changeHandler ChangeHandler
}

// NewManager creates a persona manager over dir, creating the directory and
// a default persona file if none exist.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create persona directory: %w", err)
	}

	m := &Manager{dir: dir}

	personas, _ := m.List()
	if len(personas) == 0 {
		m.Save(&Persona{Name: "default", Content: DefaultPrompt})
	}

	watcher, err := config.NewFileWatcher(config.WatcherConfig{
		Handler: func() {
			m.mu.RLock()
			handler := m.changeHandler
			m.mu.RUnlock()
			if handler != nil {
				handler()
			}
		},
		Filter: func(name string) bool {
			return strings.HasSuffix(name, ".md")
		},
		LogPrefix: "Persona",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(dir); err != nil {
		return nil, fmt.Errorf("failed to watch persona directory: %w", err)
	}

	m.watcher = watcher
	log.Printf("[Persona] Watching directory: %s", dir)

	return m, nil
}

// OnChange sets the handler called when persona files change
func (m *Manager) OnChange(handler ChangeHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changeHandler = handler
}

// Stop stops the file watcher
func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Stop()
	}
}

// List returns all available personas
func (m *Manager) List() ([]*Persona, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, err
	}

	var personas []*Persona
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".md")
		content, err := os.ReadFile(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			continue
		}

		personas = append(personas, &Persona{
			Name:    name,
			Content: string(content),
		})
	}

	return personas, nil
}

// Get returns a persona by name
func (m *Manager) Get(name string) (*Persona, error) {
	path := filepath.Join(m.dir, name+".md")
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("persona not found: %s", name)
	}

	return &Persona{
		Name:    name,
		Content: string(content),
	}, nil
}

// SystemPrompt returns the system prompt for a persona by name, falling back
// to the built-in default.
func (m *Manager) SystemPrompt(name string) string {
	if name == "" {
		name = "default"
	}
	p, err := m.Get(name)
	if err != nil {
		return DefaultPrompt
	}
	return p.Content
}

// Save creates or updates a persona
func (m *Manager) Save(p *Persona) error {
	name := sanitizeName(p.Name)
	if name == "" {
		return fmt.Errorf("invalid persona name")
	}

	path := filepath.Join(m.dir, name+".md")
	return os.WriteFile(path, []byte(p.Content), 0644)
}

func sanitizeName(name string) string {
	var result strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
