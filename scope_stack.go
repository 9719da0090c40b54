package draftsync

import (
	"errors"
	"fmt"
	"sort"

	"github.com/goliatone/go-draftsync/layering"
)

// Scope names one precedence bucket that contributes to a step section.
// Higher priority values represent stronger layers.
type Scope struct {
	Name     string `json:"name"`
	Label    string `json:"label,omitempty"`
	Priority int    `json:"priority"`
}

// ScopeOption configures metadata on Scope creation.
type ScopeOption func(*Scope)

// WithScopeLabel sets a human-friendly label on the scope.
func WithScopeLabel(label string) ScopeOption {
	return func(s *Scope) {
		s.Label = label
	}
}

// NewScope builds a Scope. Validation is deferred to Stack construction.
func NewScope(name string, priority int, opts ...ScopeOption) Scope {
	scope := Scope{Name: name, Priority: priority}
	for _, opt := range opts {
		if opt != nil {
			opt(&scope)
		}
	}
	return scope
}

// Layer pairs a scope with the section values it contributed.
type Layer struct {
	Scope   Scope
	Section map[string]any
}

// NewLayer constructs a Layer holding a detached copy of section.
func NewLayer(scope Scope, section map[string]any) Layer {
	return Layer{Scope: scope, Section: layering.Clone(section)}
}

var (
	// ErrScopeNameRequired indicates a missing scope name.
	ErrScopeNameRequired = errors.New("scope: name must be provided")
	// ErrDuplicateScopeName indicates a stack received two layers with the
	// same scope name.
	ErrDuplicateScopeName = errors.New("scope: names must be unique")
	// ErrPriorityOrder indicates duplicate priorities.
	ErrPriorityOrder = errors.New("scope: priorities must be strictly ordered")
)

// Stack is an immutable set of layers ordered from strongest to weakest.
type Stack struct {
	layers []Layer
}

// NewStack validates and sorts layers so the highest priority comes first.
// Layers with a nil section are kept so traces can report them as empty.
func NewStack(layers ...Layer) (*Stack, error) {
	if len(layers) == 0 {
		return &Stack{}, nil
	}

	seen := make(map[string]struct{}, len(layers))
	copied := make([]Layer, len(layers))
	for i, layer := range layers {
		if layer.Scope.Name == "" {
			return nil, ErrScopeNameRequired
		}
		if _, ok := seen[layer.Scope.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScopeName, layer.Scope.Name)
		}
		seen[layer.Scope.Name] = struct{}{}
		copied[i] = cloneLayer(layer)
	}

	sort.SliceStable(copied, func(i, j int) bool {
		return copied[i].Scope.Priority > copied[j].Scope.Priority
	})
	for i := 1; i < len(copied); i++ {
		if copied[i-1].Scope.Priority == copied[i].Scope.Priority {
			return nil, fmt.Errorf("%w: %d", ErrPriorityOrder, copied[i].Scope.Priority)
		}
	}
	return &Stack{layers: copied}, nil
}

// Layers returns a copy of the layers, strongest first.
func (s *Stack) Layers() []Layer {
	if s == nil || len(s.layers) == 0 {
		return nil
	}
	out := make([]Layer, len(s.layers))
	for i := range s.layers {
		out[i] = cloneLayer(s.layers[i])
	}
	return out
}

// Len returns the number of layers in the stack.
func (s *Stack) Len() int {
	if s == nil {
		return 0
	}
	return len(s.layers)
}

// Merge folds the layers into one section. The result is never nil.
func (s *Stack) Merge() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	sections := make([]map[string]any, len(s.layers))
	for i := range s.layers {
		sections[i] = s.layers[i].Section
	}
	return layering.MergeSections(sections...)
}

// Trace reports how every layer contributes to field, a dotted path inside
// the section.
func (s *Stack) Trace(step, field string) Trace {
	trace := Trace{Step: step, Field: field}
	if s == nil {
		return trace
	}
	for _, layer := range s.layers {
		value, found := layering.Lookup(layer.Section, field)
		prov := Provenance{Scope: layer.Scope, Found: found}
		if found {
			prov.Value = layering.Clone(value)
		}
		trace.Layers = append(trace.Layers, prov)
	}
	return trace
}

func cloneLayer(layer Layer) Layer {
	return Layer{Scope: layer.Scope, Section: layering.Clone(layer.Section)}
}
