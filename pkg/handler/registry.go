package handler

import (
	"fmt"
	"sort"
	"sync"

	"github.com/parthardas/helpdesk/pkg/conversation"
)

// Registry maps routing labels to handlers.
type Registry struct {
	handlers map[string]Handler
	mu       sync.RWMutex
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler. The terminal sentinel is reserved and cannot be
// used as a handler name.
func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	if h.Name() == "" {
		return fmt.Errorf("handler name cannot be empty")
	}
	if h.Name() == conversation.RouteEnd {
		return fmt.Errorf("handler name %q is reserved", conversation.RouteEnd)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[h.Name()]; exists {
		return fmt.Errorf("handler already registered: %s", h.Name())
	}

	r.handlers[h.Name()] = h
	return nil
}

// Get retrieves a handler by routing label.
func (r *Registry) Get(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, exists := r.handlers[name]
	if !exists {
		return nil, fmt.Errorf("handler not found: %s", name)
	}

	return h, nil
}

// Exists checks whether a label names a registered handler.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.handlers[name]
	return exists
}

// Labels returns the sorted routing vocabulary, excluding the terminal
// sentinel.
func (r *Registry) Labels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	labels := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		labels = append(labels, name)
	}
	sort.Strings(labels)
	return labels
}

// Descriptions returns "label: description" lines in label order, for
// embedding in delegate decision prompts.
func (r *Registry) Descriptions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	labels := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		labels = append(labels, name)
	}
	sort.Strings(labels)

	lines := make([]string, 0, len(labels))
	for _, name := range labels {
		lines = append(lines, fmt.Sprintf("%s: %s", name, r.handlers[name].Description()))
	}
	return lines
}

// Count returns the number of registered handlers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.handlers)
}
