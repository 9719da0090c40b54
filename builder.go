package draftsync

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/goliatone/go-draftsync/layering"
)

// StepSpec declares one wizard step for the builder.
type StepSpec struct {
	// Name is the step key used in session fields and payload sections.
	Name string
	// Defaults fill every field no stronger layer provides. Disabled optional
	// groups belong here so a save always describes the whole document.
	Defaults map[string]any
	// Numeric lists dotted field paths coerced to non-negative float64.
	Numeric []string
	// Normalize optionally rewrites the merged section. Returning nil keeps
	// the section unchanged.
	Normalize func(section map[string]any) map[string]any
}

// Builder merges session fields with provider snapshots into a DraftPayload.
//
// Precedence per step: fresh snapshot, then the last cached snapshot (when the
// provider is missing or reports none), then session fields, then defaults.
type Builder struct {
	registry *Registry
	specs    []StepSpec
	index    map[string]int
	cache    *gocache.Cache
	now      func() time.Time
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBuilderClock overrides the clock used to stamp payloads.
func WithBuilderClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithSnapshotCache supplies the cache holding the last pulled snapshot per
// step. Entries should not expire, otherwise an unmounted step falls back to
// its session fields.
func WithSnapshotCache(cache *gocache.Cache) BuilderOption {
	return func(b *Builder) {
		if cache != nil {
			b.cache = cache
		}
	}
}

// NewBuilder validates specs and returns a builder reading providers from
// registry. registry may be nil when no step owns nested state.
func NewBuilder(registry *Registry, specs []StepSpec, opts ...BuilderOption) (*Builder, error) {
	b := &Builder{
		registry: registry,
		index:    make(map[string]int, len(specs)),
		cache:    gocache.New(gocache.NoExpiration, 0),
		now:      time.Now,
	}
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return nil, fmt.Errorf("draftsync: step spec name must not be empty")
		}
		if _, exists := b.index[name]; exists {
			return nil, fmt.Errorf("draftsync: step %q declared twice", name)
		}
		spec.Name = name
		spec.Defaults = layering.Clone(spec.Defaults)
		spec.Numeric = append([]string(nil), spec.Numeric...)
		b.index[name] = len(b.specs)
		b.specs = append(b.specs, spec)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	if b.registry == nil {
		b.registry = NewRegistry()
	}
	return b, nil
}

// Registry returns the provider registry the builder pulls from.
func (b *Builder) Registry() *Registry {
	return b.registry
}

// Specs returns the declared steps in declaration order.
func (b *Builder) Specs() []StepSpec {
	out := make([]StepSpec, len(b.specs))
	copy(out, b.specs)
	return out
}

// Cached returns the last snapshot pulled for step.
func (b *Builder) Cached(step string) (Snapshot, bool) {
	raw, ok := b.cache.Get(step)
	if !ok {
		return nil, false
	}
	snapshot, ok := raw.(Snapshot)
	if !ok {
		return nil, false
	}
	return layering.Clone(snapshot), true
}

// Forget drops the cached snapshot for step.
func (b *Builder) Forget(step string) {
	b.cache.Delete(step)
}

// Build pulls every registered provider and merges the result with the
// session fields into a new payload.
func (b *Builder) Build(session *Session) (*DraftPayload, error) {
	if session == nil {
		return nil, fmt.Errorf("draftsync: session is nil")
	}
	view := session.view()

	payload := &DraftPayload{
		resourceID: view.resourceID,
		revision:   view.revision,
		builtAt:    b.now(),
		sections:   make(map[string]map[string]any),
		stacks:     make(map[string]*Stack),
	}
	for _, step := range b.steps(view) {
		stack, err := b.stepStack(step, view.fields[step])
		if err != nil {
			return nil, fmt.Errorf("draftsync: build step %q: %w", step, err)
		}
		section := stack.Merge()
		if idx, ok := b.index[step]; ok {
			section = b.finish(b.specs[idx], section)
		}
		payload.sections[step] = section
		payload.stacks[step] = stack
	}
	return payload, nil
}

func (b *Builder) stepStack(step string, session map[string]any) (*Stack, error) {
	var pulled, cached map[string]any
	if provider, ok := b.registry.Provider(step); ok {
		if snapshot, ok := provider.Pull(); ok {
			if snapshot == nil {
				snapshot = Snapshot{}
			}
			clone := layering.Clone(snapshot)
			b.cache.Set(step, clone, gocache.NoExpiration)
			pulled = map[string]any(clone)
		}
	}
	if pulled == nil {
		if snapshot, ok := b.Cached(step); ok {
			cached = map[string]any(snapshot)
		}
	}
	var defaults map[string]any
	if idx, ok := b.index[step]; ok {
		defaults = b.specs[idx].Defaults
		if defaults == nil {
			defaults = map[string]any{}
		}
	}
	return stepStack(pulled, cached, session, defaults)
}

func (b *Builder) finish(spec StepSpec, section map[string]any) map[string]any {
	for _, path := range spec.Numeric {
		value, _ := layering.Lookup(section, path)
		number, ok := coerceNonNegative(value)
		if !ok {
			fallback, _ := layering.Lookup(spec.Defaults, path)
			number, _ = coerceNonNegative(fallback)
		}
		layering.Assign(section, path, number)
	}
	if spec.Normalize != nil {
		if normalized := spec.Normalize(section); normalized != nil {
			section = normalized
		}
	}
	return section
}

// steps lists declared steps first, then any other step known to the
// session, the registry or the snapshot cache.
func (b *Builder) steps(view sessionView) []string {
	seen := make(map[string]struct{}, len(b.specs))
	out := make([]string, 0, len(b.specs))
	for _, spec := range b.specs {
		seen[spec.Name] = struct{}{}
		out = append(out, spec.Name)
	}
	var extra []string
	add := func(step string) {
		if _, ok := seen[step]; ok {
			return
		}
		seen[step] = struct{}{}
		extra = append(extra, step)
	}
	for step := range view.fields {
		add(step)
	}
	for _, step := range b.registry.Steps() {
		add(step)
	}
	for step := range b.cache.Items() {
		add(step)
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// coerceNonNegative converts numeric-looking values to float64 clamped at 0.
func coerceNonNegative(value any) (float64, bool) {
	var number float64
	switch typed := value.(type) {
	case float64:
		number = typed
	case float32:
		number = float64(typed)
	case int:
		number = float64(typed)
	case int8:
		number = float64(typed)
	case int16:
		number = float64(typed)
	case int32:
		number = float64(typed)
	case int64:
		number = float64(typed)
	case uint:
		number = float64(typed)
	case uint8:
		number = float64(typed)
	case uint16:
		number = float64(typed)
	case uint32:
		number = float64(typed)
	case uint64:
		number = float64(typed)
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		number = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		number = parsed
	default:
		return 0, false
	}
	if math.IsNaN(number) || math.IsInf(number, 0) {
		return 0, false
	}
	if number < 0 {
		return 0, true
	}
	return number, true
}
