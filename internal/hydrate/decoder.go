// Package hydrate turns stored draft sections back into session fields or
// strongly typed views.
//
// Hooks always receive a deep copy of the stored payload, so they may mutate
// it freely. Decoding into structs goes through mapstructure using the json
// tags the draft types already carry.
package hydrate

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"

	"github.com/goliatone/go-draftsync/layering"
)

// Context identifies the stored draft being decoded.
type Context struct {
	ResourceID string
	Status     string
}

// PreHook rewrites the raw payload before decoding. Returning nil keeps the
// payload it was given.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook adjusts or validates the decoded value.
type PostHook[T any] func(Context, *T) error

// Option configures a Decoder.
type Option[T any] func(*Decoder[T])

// Decoder converts stored draft payloads into T.
type Decoder[T any] struct {
	pre    []PreHook
	post   []PostHook[T]
	hooks  []mapstructure.DecodeHookFunc
	strict bool
	weak   bool
}

// WithPreHook runs hook before decoding. Hooks run in the order given.
func WithPreHook[T any](hook PreHook) Option[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.pre = append(d.pre, hook)
		}
	}
}

// WithPostHook runs hook on the decoded value.
func WithPostHook[T any](hook PostHook[T]) Option[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.post = append(d.post, hook)
		}
	}
}

// WithStrict fails decoding when the payload holds keys T has no field for.
func WithStrict[T any]() Option[T] {
	return func(d *Decoder[T]) {
		d.strict = true
	}
}

// WithWeakTypes accepts loosely typed values such as "19.5" for a float
// field or 1 for a bool, as written by older clients.
func WithWeakTypes[T any]() Option[T] {
	return func(d *Decoder[T]) {
		d.weak = true
	}
}

// WithDecodeHook adds a mapstructure conversion hook.
func WithDecodeHook[T any](hook mapstructure.DecodeHookFunc) Option[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.hooks = append(d.hooks, hook)
		}
	}
}

// NewDecoder returns a Decoder for T.
func NewDecoder[T any](opts ...Option[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode copies payload, runs the pre-hooks, decodes into T and runs the
// post-hooks.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T
	if payload == nil {
		return zero, fmt.Errorf("hydrate: payload is nil for draft %q", ctx.ResourceID)
	}

	current := layering.Clone(payload)
	for i, hook := range d.pre {
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook %d for draft %q: %w", i, ctx.ResourceID, err)
		}
		if next != nil {
			current = next
		}
	}

	var result T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &result,
		ErrorUnused:      d.strict,
		WeaklyTypedInput: d.weak,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(append([]mapstructure.DecodeHookFunc{
			mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05Z07:00"),
		}, d.hooks...)...),
	})
	if err != nil {
		return zero, fmt.Errorf("hydrate: configure decoder: %w", err)
	}
	if err := decoder.Decode(current); err != nil {
		return zero, fmt.Errorf("hydrate: decode draft %q: %w", ctx.ResourceID, err)
	}

	for i, hook := range d.post {
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook %d for draft %q: %w", i, ctx.ResourceID, err)
		}
	}
	return result, nil
}

// SectionsOption configures Sections.
type SectionsOption = Option[map[string]map[string]any]

// Sections decodes a stored record body into step sections. Steps whose value
// is not an object are dropped and integers become float64, so records from
// the memory store and from a JSON column hydrate the same way.
func Sections(ctx Context, payload map[string]any, opts ...SectionsOption) (map[string]map[string]any, error) {
	opts = append([]SectionsOption{
		WithPreHook[map[string]map[string]any](dropNonObjectSteps),
		WithPreHook[map[string]map[string]any](normalizeNumbers),
	}, opts...)
	sections, err := NewDecoder(opts...).Decode(ctx, payload)
	if err != nil {
		return nil, err
	}
	if sections == nil {
		sections = map[string]map[string]any{}
	}
	return sections, nil
}

func dropNonObjectSteps(_ Context, payload map[string]any) (map[string]any, error) {
	for step, value := range payload {
		if _, ok := value.(map[string]any); !ok {
			delete(payload, step)
		}
	}
	return payload, nil
}

func normalizeNumbers(_ Context, payload map[string]any) (map[string]any, error) {
	for key, value := range payload {
		payload[key] = toFloats(value)
	}
	return payload, nil
}

func toFloats(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		for key, child := range typed {
			typed[key] = toFloats(child)
		}
		return typed
	case []any:
		for i, child := range typed {
			typed[i] = toFloats(child)
		}
		return typed
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32:
		return rv.Float()
	}
	return value
}
