package draftsync

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Function is a helper callable from rule expressions.
type Function func(args ...any) (any, error)

var functionName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// FunctionRegistry holds rule helpers by lower-cased name. It is safe for
// concurrent use.
type FunctionRegistry struct {
	mu    sync.RWMutex
	funcs map[string]Function
}

// NewFunctionRegistry returns an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{funcs: map[string]Function{}}
}

// Register adds fn under name. Names are case-insensitive identifiers and may
// not shadow the variables every rule sees (now, args, metadata, trigger,
// call).
func (r *FunctionRegistry) Register(name string, fn Function) error {
	key := strings.ToLower(strings.TrimSpace(name))
	switch {
	case fn == nil:
		return fmt.Errorf("draftsync: function %q is nil", name)
	case !functionName.MatchString(key):
		return fmt.Errorf("draftsync: function name %q is not an identifier", name)
	case isBuiltinVar(key):
		return fmt.Errorf("draftsync: function name %q is reserved", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.funcs == nil {
		r.funcs = map[string]Function{}
	}
	if _, exists := r.funcs[key]; exists {
		return fmt.Errorf("draftsync: function %q already registered", name)
	}
	r.funcs[key] = fn
	return nil
}

// MustRegister is Register that panics, for package level setup.
func (r *FunctionRegistry) MustRegister(name string, fn Function) *FunctionRegistry {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
	return r
}

// Clone returns an independent registry with the same functions.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := &FunctionRegistry{funcs: make(map[string]Function, len(r.funcs))}
	for name, fn := range r.funcs {
		out.funcs[name] = fn
	}
	return out
}

// Call runs the function registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("draftsync: no functions registered")
	}
	r.mu.RLock()
	fn := r.funcs[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("draftsync: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns the registered names in sorted order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// DefaultFunctions returns the helpers draft rules usually need:
//
//	present(v)       false for nil, blank strings and empty lists or objects
//	blank(v)         !present(v)
//	coalesce(a, ...) first present argument, or nil
//	length(v)        length of a string, list or object; 0 for nil
func DefaultFunctions() *FunctionRegistry {
	return NewFunctionRegistry().
		MustRegister("present", unary("present", func(v any) (any, error) { return isPresent(v), nil })).
		MustRegister("blank", unary("blank", func(v any) (any, error) { return !isPresent(v), nil })).
		MustRegister("coalesce", func(args ...any) (any, error) {
			for _, arg := range args {
				if isPresent(arg) {
					return arg, nil
				}
			}
			return nil, nil
		}).
		MustRegister("length", unary("length", length))
}

func unary(name string, fn func(any) (any, error)) Function {
	return func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("draftsync: %s expects 1 argument, got %d", name, len(args))
		}
		return fn(args[0])
	}
}

func length(value any) (any, error) {
	if value == nil {
		return 0, nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return len(strings.TrimSpace(rv.String())), nil
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), nil
	default:
		return nil, fmt.Errorf("draftsync: length: unsupported %T", value)
	}
}

// isPresent treats nil, blank strings and empty collections as absent.
func isPresent(value any) bool {
	if value == nil {
		return false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return strings.TrimSpace(rv.String()) != ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}
