package chatcore

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// BackendID represents a unique backend identifier.
// Using a typed constant prevents typos and provides compile-time safety.
type BackendID string

// Known backend identifiers
const (
	// BackendDummy streams a fixed sentence, word by word
	BackendDummy BackendID = "dummy"

	// BackendDummyCoder streams a fixed fenced javascript snippet
	BackendDummyCoder BackendID = "dummy_coder"

	// BackendLorem streams generated lorem ipsum words
	BackendLorem BackendID = "lorem"

	// BackendOpenAICompatible streams chat completions from an OpenAI compatible server
	BackendOpenAICompatible BackendID = "openai_compatible"

	// BackendAnthropic streams Claude messages
	BackendAnthropic BackendID = "anthropic"
)

// String returns the string representation of the backend ID
func (b BackendID) String() string {
	return string(b)
}

// IsValid returns true if the backend ID is a known backend
func (b BackendID) IsValid() bool {
	switch b {
	case BackendDummy, BackendDummyCoder, BackendLorem, BackendOpenAICompatible, BackendAnthropic:
		return true
	default:
		return false
	}
}

// BackendConfig carries the startup settings a Factory may need.
// Backends ignore the fields that do not apply to them.
type BackendConfig struct {
	APIKey     string
	BaseURL    string
	HTTPProxy  string
	HTTPSProxy string
	Timeout    time.Duration

	// TokenDelay paces the mock backends.
	TokenDelay time.Duration

	Logger *slog.Logger
}

// Factory builds a Backend from startup configuration.
type Factory func(cfg BackendConfig) (Backend, error)

// Registry maps backend identifiers to factories.
// It is populated once at startup and read afterwards.
type Registry struct {
	factories map[BackendID]Factory
	mu        sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[BackendID]Factory)}
}

// Register adds or replaces the factory for id.
func (r *Registry) Register(id BackendID, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[id] = factory
}

// New builds the backend registered under id.
func (r *Registry) New(id BackendID, cfg BackendConfig) (Backend, error) {
	r.mu.RLock()
	factory, ok := r.factories[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, id)
	}

	backend, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating backend %s: %w", id, err)
	}
	return backend, nil
}

// Names returns the registered identifiers in sorted order.
func (r *Registry) Names() []BackendID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]BackendID, 0, len(r.factories))
	for id := range r.factories {
		names = append(names, id)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
