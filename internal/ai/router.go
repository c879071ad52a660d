package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Router sends each task to the single provider bound to it. There is no
// fallback chain: every Complete is one round trip to one backend.
type Router struct {
	providers map[string]Provider
	routes    map[TaskType]string
	primary   string // first registered provider, used for unrouted tasks
	mu        sync.RWMutex
}

// NewRouter creates a new AI router.
func NewRouter() *Router {
	return &Router{
		providers: make(map[string]Provider),
		routes:    make(map[TaskType]string),
	}
}

// Register adds a provider to the router.
func (r *Router) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = provider
	if r.primary == "" {
		r.primary = name
	}
}

// Route binds a task type to a registered provider.
func (r *Router) Route(task TaskType, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("route %s: provider %q not registered", task, name)
	}
	r.routes[task] = name
	return nil
}

// Complete sends the request to the provider routed for req.Task.
func (r *Router) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	name, provider, err := r.lookup(req.Task)
	if err != nil {
		return CompletionResponse{}, err
	}

	resp, err := provider.Complete(ctx, req)
	if err != nil {
		slog.Warn("AI provider failed",
			"task", req.Task.String(),
			"provider", name,
			"error", err,
		)
		return CompletionResponse{}, fmt.Errorf("%s: %w", name, err)
	}

	slog.Debug("AI request completed",
		"task", req.Task.String(),
		"provider", name,
		"model", resp.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
	)
	return resp, nil
}

// Models lists the models of every registered provider.
func (r *Router) Models() []ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var models []ModelInfo
	for _, p := range r.providers {
		models = append(models, p.Models()...)
	}
	return models
}

// HealthCheck checks every registered provider.
func (r *Router) HealthCheck(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.providers) == 0 {
		return fmt.Errorf("no AI provider registered")
	}
	for name, p := range r.providers {
		if err := p.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// HasProvider returns true if at least one provider is registered.
func (r *Router) HasProvider() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers) > 0
}

func (r *Router) lookup(task TaskType) (string, Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.routes[task]
	if !ok {
		name = r.primary
	}
	provider, ok := r.providers[name]
	if !ok {
		return "", nil, fmt.Errorf("no AI provider for task %s", task)
	}
	return name, provider, nil
}
