package media

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mverkaik/stagehand/internal/model"
)

// Factory builds one media item for a model.
type Factory func(m *model.Media, stage Stage, log zerolog.Logger) Item

// Registry maps media kind tags to factories. It is constructed
// explicitly and handed to the player; there is no package-level
// registration.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Builtin returns a registry with all built-in media kinds registered.
func Builtin() *Registry {
	r := NewRegistry()
	r.Register(KindVideo, NewVideo)
	r.Register(KindAudio, NewAudio)
	r.Register(KindImage, NewImage)
	r.Register(KindIframe, NewIframe)
	r.Register(KindYouTube, NewYouTube)
	r.Register(KindText, NewText)
	return r
}

// Register adds or replaces the factory for a kind.
func (r *Registry) Register(kind string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// New builds an item for the model's kind. An unregistered kind is a
// document error, not a crash; the caller logs it and skips the item.
func (r *Registry) New(m *model.Media, stage Stage, log zerolog.Logger) (Item, error) {
	r.mu.RLock()
	f, ok := r.factories[m.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unregistered media kind: %q", m.Kind)
	}
	return f(m, stage, log), nil
}

// Kinds returns the registered kind tags.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	return kinds
}
