package llm

import (
	"strings"
	"sync"

	chaterrors "chat-backend/internal/domain/errors"
)

// Registry routes model identifiers to providers by identifier prefix,
// mirroring how model families map onto upstream APIs (gpt-* to the OpenAI
// endpoint, gemini-* to the Google endpoint). Resolution happens before any
// network activity so an unknown model fails fast.
type Registry struct {
	mu     sync.RWMutex
	routes []route
}

type route struct {
	prefix   string
	provider Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register binds a model identifier prefix to a provider. Later
// registrations do not shadow earlier ones; first match wins.
func (r *Registry) Register(prefix string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route{prefix: prefix, provider: provider})
}

// Resolve returns the provider for the given model identifier, or an
// unsupported-model error when no registered prefix matches.
func (r *Registry) Resolve(modelID string) (Provider, error) {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return nil, chaterrors.NewValidation(chaterrors.ErrCodeModelRequired, "model is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rt := range r.routes {
		if strings.HasPrefix(modelID, rt.prefix) {
			return rt.provider, nil
		}
	}
	return nil, chaterrors.NewUnsupportedModel(modelID)
}
