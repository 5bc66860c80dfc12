package provider

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Router holds the registered LLM backends and routes chat requests to the
// default provider, falling through the fallback chain on failure. A Router
// with no providers is a valid degraded state: Available reports false and
// every stage emits its placeholder output instead of calling out.
type Router struct {
	providers map[string]Provider
	fallbacks []string
	defaultID string
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewRouter creates an empty provider router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		providers: make(map[string]Provider),
		logger:    logger,
	}
}

// Register adds a provider. The first registered provider becomes the default;
// later ones join the fallback chain.
func (r *Router) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.providers[p.ID()]; dup {
		r.logger.Warn("provider re-registered", zap.String("id", p.ID()))
	}
	r.providers[p.ID()] = p
	if r.defaultID == "" {
		r.defaultID = p.ID()
	} else {
		r.fallbacks = append(r.fallbacks, p.ID())
	}
	r.logger.Info("registered provider", zap.String("id", p.ID()), zap.String("name", p.Name()))
}

// SetDefault overrides the default provider.
func (r *Router) SetDefault(providerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultID = providerID
}

// Available reports whether any backend is registered. Stages use this to
// short-circuit to their "Agent not available" output.
func (r *Router) Available() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers) > 0
}

// Route sends a chat request to the default provider, then down the fallback
// chain. The last error is surfaced when every backend fails.
func (r *Router) Route(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	primary, ok := r.providers[r.defaultID]
	if !ok {
		return nil, fmt.Errorf("no provider registered")
	}

	resp, err := primary.Chat(ctx, req)
	if err == nil {
		return resp, nil
	}
	r.logger.Warn("primary provider failed, trying fallbacks",
		zap.String("provider", r.defaultID), zap.Error(err))

	for _, fbID := range r.fallbacks {
		fb, ok := r.providers[fbID]
		if !ok {
			continue
		}
		resp, err = fb.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		r.logger.Warn("fallback provider failed", zap.String("provider", fbID), zap.Error(err))
	}

	return nil, fmt.Errorf("all providers failed: %w", err)
}
