// Package hooks is the plugin contract of the host application.
//
// A Hook is registered under a unique identity, contributes configuration
// defaults and is initialized once at startup. During Initialize it may
// publish objects on the shared Namespace and subscribe to the Lifecycle's
// lower signal to release them on shutdown.
package hooks

import (
	"context"
	"fmt"

	"github.com/hookdeck/redishook/internal/logging"
	"go.uber.org/zap"
)

type Hook interface {
	// Identity is the unique hook name, also used as its configuration key.
	Identity() string

	// Defaults returns the default configuration for the hook's namespace.
	Defaults() any

	// Initialize runs once at startup. Returning an error aborts startup.
	Initialize(ctx context.Context, lc *Lifecycle, ns *Namespace) error
}

// Registry keeps hooks in registration order.
type Registry struct {
	hooks  []Hook
	byName map[string]Hook
	logger *logging.Logger
}

func NewRegistry(logger *logging.Logger) *Registry {
	return &Registry{
		byName: make(map[string]Hook),
		logger: logger,
	}
}

// Register adds a hook. Panics if the identity is already taken.
func (r *Registry) Register(h Hook) {
	if _, exists := r.byName[h.Identity()]; exists {
		panic(fmt.Sprintf("hook %s already registered", h.Identity()))
	}
	r.hooks = append(r.hooks, h)
	r.byName[h.Identity()] = h
	r.logger.Debug("hook registered", zap.String("hook", h.Identity()))
}

func (r *Registry) Get(identity string) (Hook, bool) {
	h, ok := r.byName[identity]
	return h, ok
}

func (r *Registry) Len() int {
	return len(r.hooks)
}

// Initialize initializes every hook in registration order and stops at the
// first failure.
func (r *Registry) Initialize(ctx context.Context, lc *Lifecycle, ns *Namespace) error {
	for _, h := range r.hooks {
		if err := h.Initialize(ctx, lc, ns); err != nil {
			r.logger.Error("hook initialization failed",
				zap.String("hook", h.Identity()),
				zap.Error(err))
			return fmt.Errorf("hook %s: %w", h.Identity(), err)
		}
	}
	return nil
}
