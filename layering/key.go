package layering

import (
	"fmt"
	"strings"
)

// Key addresses one field inside one wizard step, e.g. "pricing.price".
// Nested groups inside a step use further dots ("pricing.tiers.early").
type Key struct {
	Step  string
	Field string
}

// ParseKey splits a dotted path into its step and the remaining field path.
func ParseKey(path string) (Key, error) {
	path = strings.TrimSpace(path)
	step, field, ok := strings.Cut(path, ".")
	if !ok || step == "" || field == "" {
		return Key{}, fmt.Errorf("layering: key %q must look like <step>.<field>", path)
	}
	return Key{Step: step, Field: field}, nil
}

// String returns the dotted form of the key.
func (k Key) String() string {
	if k.Field == "" {
		return k.Step
	}
	return k.Step + "." + k.Field
}

// Segments returns the field path split on dots.
func (k Key) Segments() []string {
	if k.Field == "" {
		return nil
	}
	return strings.Split(k.Field, ".")
}

// Lookup walks a dotted path through nested maps.
func Lookup(root map[string]any, path string) (any, bool) {
	if root == nil {
		return nil, false
	}
	if path == "" {
		return root, true
	}
	var current any = root
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Assign writes value at a dotted path, creating intermediate maps. Existing
// non-map values along the path are replaced.
func Assign(root map[string]any, path string, value any) {
	if root == nil || path == "" {
		return
	}
	segments := strings.Split(path, ".")
	current := root
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}

// Remove deletes the value at a dotted path. It reports whether something was
// removed.
func Remove(root map[string]any, path string) bool {
	if root == nil || path == "" {
		return false
	}
	segments := strings.Split(path, ".")
	current := root
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			return false
		}
		current = next
	}
	last := segments[len(segments)-1]
	if _, ok := current[last]; !ok {
		return false
	}
	delete(current, last)
	return true
}
