package draftsync

const (
	// Priorities used when assembling a step section. Higher numbers win.
	ScopePriorityDefaults = 100
	ScopePrioritySession  = 200
	ScopePriorityCached   = 300
	ScopePrioritySnapshot = 400
)

var (
	ScopeDefaults = NewScope("defaults", ScopePriorityDefaults, WithScopeLabel("Documented defaults"))
	ScopeSession  = NewScope("session", ScopePrioritySession, WithScopeLabel("Session fields"))
	ScopeCached   = NewScope("cached", ScopePriorityCached, WithScopeLabel("Last pulled snapshot"))
	ScopeSnapshot = NewScope("snapshot", ScopePrioritySnapshot, WithScopeLabel("Fresh snapshot"))
)

// stepStack assembles the layers of one step. A fresh snapshot and a cached
// one are mutually exclusive: pulled wins over cached.
func stepStack(pulled, cached, session, defaults map[string]any) (*Stack, error) {
	layers := make([]Layer, 0, 3)
	switch {
	case pulled != nil:
		layers = append(layers, NewLayer(ScopeSnapshot, pulled))
	case cached != nil:
		layers = append(layers, NewLayer(ScopeCached, cached))
	}
	if session != nil {
		layers = append(layers, NewLayer(ScopeSession, session))
	}
	if defaults != nil {
		layers = append(layers, NewLayer(ScopeDefaults, defaults))
	}
	return NewStack(layers...)
}
