package draftsync

import (
	"fmt"
	"sort"
	"time"

	"github.com/goliatone/go-draftsync/layering"
	"github.com/goliatone/go-draftsync/pkg/state"
)

// DraftPayload is the canonical merged document sent on a save. It is built
// fresh for every attempt and has no mutators; accessors return copies.
type DraftPayload struct {
	resourceID string
	revision   uint64
	builtAt    time.Time
	sections   map[string]map[string]any
	stacks     map[string]*Stack
}

// ResourceID returns the id the payload targets, or "" for a create.
func (p *DraftPayload) ResourceID() string {
	if p == nil {
		return ""
	}
	return p.resourceID
}

// Revision returns the session revision the payload was built from.
func (p *DraftPayload) Revision() uint64 {
	if p == nil {
		return 0
	}
	return p.revision
}

// BuiltAt returns when the payload was assembled.
func (p *DraftPayload) BuiltAt() time.Time {
	if p == nil {
		return time.Time{}
	}
	return p.builtAt
}

// Steps returns the step names present in the payload, sorted.
func (p *DraftPayload) Steps() []string {
	if p == nil {
		return nil
	}
	steps := make([]string, 0, len(p.sections))
	for step := range p.sections {
		steps = append(steps, step)
	}
	sort.Strings(steps)
	return steps
}

// Section returns a copy of one step section.
func (p *DraftPayload) Section(step string) (map[string]any, bool) {
	if p == nil {
		return nil, false
	}
	section, ok := p.sections[step]
	if !ok {
		return nil, false
	}
	return layering.Clone(section), true
}

// Sections returns a copy of every section keyed by step.
func (p *DraftPayload) Sections() map[string]map[string]any {
	if p == nil {
		return map[string]map[string]any{}
	}
	return cloneFields(p.sections)
}

// Value looks up a "<step>.<field>" path.
func (p *DraftPayload) Value(path string) (any, bool) {
	if p == nil {
		return nil, false
	}
	key, err := layering.ParseKey(path)
	if err != nil {
		return nil, false
	}
	section, ok := p.sections[key.Step]
	if !ok {
		return nil, false
	}
	value, ok := layering.Lookup(section, key.Field)
	if !ok {
		return nil, false
	}
	return layering.Clone(value), true
}

// Trace reports which layers held a value for path before coercion and
// normalisation were applied.
func (p *DraftPayload) Trace(path string) (Trace, error) {
	key, err := layering.ParseKey(path)
	if err != nil {
		return Trace{}, err
	}
	if p == nil {
		return Trace{}, fmt.Errorf("draftsync: payload is nil")
	}
	stack, ok := p.stacks[key.Step]
	if !ok {
		return Trace{}, fmt.Errorf("draftsync: step %q not in payload", key.Step)
	}
	return stack.Trace(key.Step, key.Field), nil
}

// Document converts the payload into the persistence representation.
func (p *DraftPayload) Document() state.Document {
	if p == nil {
		return state.Document{Sections: map[string]map[string]any{}}
	}
	return state.Document{
		ResourceID: p.resourceID,
		Revision:   p.revision,
		Sections:   cloneFields(p.sections),
	}
}

// ruleSnapshot exposes the sections as top-level rule variables.
func (p *DraftPayload) ruleSnapshot() map[string]any {
	out := make(map[string]any, len(p.sections))
	for step, section := range p.sections {
		out[step] = layering.Clone(section)
	}
	return out
}
