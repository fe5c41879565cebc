package worker

import (
	"sync"
	"time"
)

const (
	StatusHealthy  = "healthy"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

// ComponentHealth is the last known state of a worker or hook.
// Error details are not kept; they go to the log.
type ComponentHealth struct {
	Status    string    `json:"status"`
	LastCheck time.Time `json:"last_check"`
}

type HealthStatus struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
}

// HealthTracker tracks workers and hooks by name. Disabled components do
// not make the whole unhealthy. It is safe for concurrent use.
type HealthTracker struct {
	mu         sync.RWMutex
	components map[string]ComponentHealth
	now        func() time.Time
}

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{
		components: make(map[string]ComponentHealth),
		now:        time.Now,
	}
}

func (h *HealthTracker) MarkHealthy(name string) {
	h.mark(name, StatusHealthy)
}

func (h *HealthTracker) MarkFailed(name string) {
	h.mark(name, StatusFailed)
}

func (h *HealthTracker) MarkDisabled(name string) {
	h.mark(name, StatusDisabled)
}

func (h *HealthTracker) mark(name, status string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.components[name] = ComponentHealth{
		Status:    status,
		LastCheck: h.now(),
	}
}

// Get returns the state of one component.
func (h *HealthTracker) Get(name string) (ComponentHealth, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.components[name]
	return c, ok
}

func (h *HealthTracker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.isHealthyLocked()
}

func (h *HealthTracker) GetStatus() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	components := make(map[string]ComponentHealth, len(h.components))
	for name, c := range h.components {
		components[name] = c
	}

	status := StatusHealthy
	if !h.isHealthyLocked() {
		status = StatusFailed
	}

	return HealthStatus{
		Status:     status,
		Timestamp:  h.now(),
		Components: components,
	}
}

// caller must hold the read lock
func (h *HealthTracker) isHealthyLocked() bool {
	for _, c := range h.components {
		if c.Status == StatusFailed {
			return false
		}
	}
	return true
}
