package draftsync

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-draftsync/layering"
)

// Session is the aggregate in-memory document edited by every wizard step.
//
// Fields are scoped by step and may hold nested groups. Every mutation bumps
// the revision counter and marks the session dirty. Only the Coordinator
// assigns the resource id and clears the dirty flag.
type Session struct {
	mu sync.RWMutex

	id          string
	resourceID  string
	fields      map[string]map[string]any
	dirty       bool
	revision    uint64
	identified  bool
	confirmed   uint64
	lastSavedAt time.Time

	now func() time.Time
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionID overrides the generated local session id.
func WithSessionID(id string) SessionOption {
	return func(s *Session) {
		if id = strings.TrimSpace(id); id != "" {
			s.id = id
		}
	}
}

// WithSessionClock overrides the clock used to stamp LastSavedAt.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession returns an empty, clean session for a new document.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		id:     uuid.NewString(),
		fields: map[string]map[string]any{},
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Set writes value under step and field. Field may be a dotted path into a
// nested group ("tiers.early").
func (s *Session) Set(step, field string, value any) {
	step = strings.TrimSpace(step)
	field = strings.TrimSpace(field)
	if step == "" || field == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	section := s.sectionLocked(step)
	layering.Assign(section, field, layering.Clone(value))
	s.touchLocked()
}

// SetPath writes value under a "<step>.<field>" path.
func (s *Session) SetPath(path string, value any) error {
	key, err := layering.ParseKey(path)
	if err != nil {
		return err
	}
	s.Set(key.Step, key.Field, value)
	return nil
}

// SetSection replaces a whole step section with a copy of values.
func (s *Session) SetSection(step string, values map[string]any) {
	step = strings.TrimSpace(step)
	if step == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	section := layering.Clone(values)
	if section == nil {
		section = map[string]any{}
	}
	s.fields[step] = section
	s.touchLocked()
}

// Delete removes a field. It reports whether anything was removed; the
// session only becomes dirty when it was.
func (s *Session) Delete(step, field string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	section, ok := s.fields[strings.TrimSpace(step)]
	if !ok {
		return false
	}
	if !layering.Remove(section, strings.TrimSpace(field)) {
		return false
	}
	s.touchLocked()
	return true
}

// Get returns the session value stored for step and field.
func (s *Session) Get(step, field string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	section, ok := s.fields[step]
	if !ok {
		return nil, false
	}
	value, ok := layering.Lookup(section, field)
	if !ok {
		return nil, false
	}
	return layering.Clone(value), true
}

// MarkDirty flags unsaved changes that live outside the session fields, such
// as edits held by a step snapshot provider. Repeated calls are harmless.
func (s *Session) MarkDirty() {
	s.mu.Lock()
	s.touchLocked()
	s.mu.Unlock()
}

// Dirty reports whether edits exist that no successful save has covered.
func (s *Session) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Revision returns the edit counter.
func (s *Session) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// ID returns the local session id.
func (s *Session) ID() string {
	return s.id
}

// ResourceID returns the server-issued id or "" before the first save.
func (s *Session) ResourceID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resourceID
}

// Identified reports whether the identity rule has passed at least once.
func (s *Session) Identified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identified
}

// LastSavedAt returns the time of the last confirmed save.
func (s *Session) LastSavedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSavedAt
}

// Fields returns a deep copy of all session fields.
func (s *Session) Fields() map[string]map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneFields(s.fields)
}

// Steps returns the names of steps holding session fields.
func (s *Session) Steps() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	steps := make([]string, 0, len(s.fields))
	for step := range s.fields {
		steps = append(steps, step)
	}
	sort.Strings(steps)
	return steps
}

type sessionView struct {
	resourceID string
	revision   uint64
	identified bool
	fields     map[string]map[string]any
}

// view copies everything the builder needs under one read lock so a payload
// never mixes two revisions.
func (s *Session) view() sessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sessionView{
		resourceID: s.resourceID,
		revision:   s.revision,
		identified: s.identified,
		fields:     cloneFields(s.fields),
	}
}

// adoptResourceID stores id when the session has none yet. It returns the id
// the session ends up with and whether it changed.
func (s *Session) adoptResourceID(id string) (string, bool) {
	id = strings.TrimSpace(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" || s.resourceID != "" {
		return s.resourceID, false
	}
	s.resourceID = id
	s.identified = true
	return id, true
}

// replaceResourceID swaps in a canonical form of the current id.
func (s *Session) replaceResourceID(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	s.mu.Lock()
	s.resourceID = id
	s.mu.Unlock()
}

func (s *Session) markIdentified() {
	s.mu.Lock()
	s.identified = true
	s.mu.Unlock()
}

// markSaved records a confirmed save of the payload built at revision. Dirty
// is cleared only when no edit happened after that payload was built. A
// confirmation older than one already seen may have overwritten newer data on
// the server, so it marks the session dirty again and reports stale.
func (s *Session) markSaved(revision uint64) (savedAt time.Time, clean, stale bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSavedAt = s.now()
	if revision < s.confirmed {
		s.dirty = true
		return s.lastSavedAt, false, true
	}
	s.confirmed = revision
	if s.revision != revision {
		return s.lastSavedAt, false, false
	}
	s.dirty = false
	return s.lastSavedAt, true, false
}

func (s *Session) sectionLocked(step string) map[string]any {
	section, ok := s.fields[step]
	if !ok || section == nil {
		section = map[string]any{}
		s.fields[step] = section
	}
	return section
}

func (s *Session) touchLocked() {
	s.revision++
	s.dirty = true
}

func cloneFields(src map[string]map[string]any) map[string]map[string]any {
	out := make(map[string]map[string]any, len(src))
	for step, section := range src {
		out[step] = layering.Clone(section)
	}
	return out
}
