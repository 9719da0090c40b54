package draftsync

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Snapshot is the value a step reports for itself at save time.
type Snapshot map[string]any

// Provider exposes the current value of a step that owns nested state.
// Pull must be synchronous and free of side effects. ok is false while the
// step is not mounted.
type Provider interface {
	Pull() (snapshot Snapshot, ok bool)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() (Snapshot, bool)

// Pull implements Provider.
func (f ProviderFunc) Pull() (Snapshot, bool) {
	if f == nil {
		return nil, false
	}
	return f()
}

// Registry tracks the providers of currently mounted steps.
//
// Registering a step that already has a provider supersedes the previous
// registration; the older handle then becomes inert. This matches a step
// remounting before its old instance finished tearing down.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]registration
	seq       uint64
}

type registration struct {
	id       uint64
	provider Provider
}

// Handle removes a registration made through Registry.Register.
type Handle struct {
	registry *Registry
	step     string
	id       uint64
}

// NewRegistry constructs an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]registration)}
}

// Register installs provider for step and returns the handle used to
// deregister it on unmount.
func (r *Registry) Register(step string, provider Provider) (Handle, error) {
	step = strings.TrimSpace(step)
	if step == "" {
		return Handle{}, fmt.Errorf("draftsync: provider step must not be empty")
	}
	if provider == nil {
		return Handle{}, fmt.Errorf("draftsync: provider for step %q is nil", step)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.providers == nil {
		r.providers = make(map[string]registration)
	}
	r.seq++
	r.providers[step] = registration{id: r.seq, provider: provider}
	return Handle{registry: r, step: step, id: r.seq}, nil
}

// Deregister removes the registration if it is still the active one for its
// step. The builder keeps serving the last pulled snapshot for the step.
func (h Handle) Deregister() {
	if h.registry == nil {
		return
	}
	h.registry.mu.Lock()
	defer h.registry.mu.Unlock()
	if current, ok := h.registry.providers[h.step]; ok && current.id == h.id {
		delete(h.registry.providers, h.step)
	}
}

// Step returns the step the handle was registered for.
func (h Handle) Step() string {
	return h.step
}

// Provider returns the active provider for step.
func (r *Registry) Provider(step string) (Provider, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.providers[step]
	if !ok {
		return nil, false
	}
	return reg.provider, true
}

// Steps returns the steps with an active provider sorted alphabetically.
func (r *Registry) Steps() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	steps := make([]string, 0, len(r.providers))
	for step := range r.providers {
		steps = append(steps, step)
	}
	sort.Strings(steps)
	return steps
}
