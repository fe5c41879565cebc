package hooks

import "sync"

// Namespace is the shared object graph hooks publish onto. The application
// owns it and passes it to whatever needs a published object.
// It is safe for concurrent use.
type Namespace struct {
	mu      sync.RWMutex
	objects map[string]any
}

func NewNamespace() *Namespace {
	return &Namespace{
		objects: make(map[string]any),
	}
}

// Publish stores v under key, replacing any previous value.
func (n *Namespace) Publish(key string, v any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.objects[key] = v
}

func (n *Namespace) Lookup(key string) (any, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, ok := n.objects[key]
	return v, ok
}

// Remove deletes key and returns the value it held.
func (n *Namespace) Remove(key string) (any, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.objects[key]
	delete(n.objects, key)
	return v, ok
}
