package activity

import (
	"context"
	"strings"
	"time"
)

const (
	// DefaultChannel is used when Origin.Channel is empty.
	DefaultChannel = "drafts"
	// DefaultObjectType is used when Origin.ObjectType is empty.
	DefaultObjectType = "draft"
)

// Origin describes who edits which kind of object. An Emitter stamps it on
// every event.
type Origin struct {
	ActorID    string
	UserID     string
	TenantID   string
	ObjectType string
	Channel    string
}

func (o Origin) withDefaults() Origin {
	o.ObjectType = strings.TrimSpace(o.ObjectType)
	if o.ObjectType == "" {
		o.ObjectType = DefaultObjectType
	}
	o.Channel = strings.TrimSpace(o.Channel)
	if o.Channel == "" {
		o.Channel = DefaultChannel
	}
	return o
}

// DraftEventInput carries the per-event details of a save or publish.
type DraftEventInput struct {
	ResourceID string
	SessionID  string
	Trigger    string
	Revision   uint64
	Status     string
	Message    string
	Err        error
	Metadata   map[string]any
	OccurredAt time.Time
}

// DraftEvent builds the event for verb. The object is the stored resource,
// or the editing session while the draft has not been created yet.
func (o Origin) DraftEvent(verb string, input DraftEventInput) Event {
	o = o.withDefaults()
	objectID := strings.TrimSpace(input.ResourceID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.SessionID)
	}
	return Event{
		Verb:       verb,
		ActorID:    o.ActorID,
		UserID:     o.UserID,
		TenantID:   o.TenantID,
		ObjectType: o.ObjectType,
		ObjectID:   objectID,
		Channel:    o.Channel,
		Metadata:   input.metadata(),
		OccurredAt: input.OccurredAt,
	}
}

func (input DraftEventInput) metadata() map[string]any {
	meta := cloneMetadata(input.Metadata)
	set := func(key string, value any) {
		if meta == nil {
			meta = map[string]any{}
		}
		meta[key] = value
	}
	if input.Trigger != "" {
		set("trigger", input.Trigger)
	}
	if input.Revision > 0 {
		set("revision", input.Revision)
	}
	if input.Status != "" {
		set("status", input.Status)
	}
	if input.Message != "" {
		set("message", input.Message)
	}
	if input.Err != nil {
		set("error", input.Err.Error())
	}
	if id := strings.TrimSpace(input.SessionID); id != "" {
		set("session_id", id)
	}
	return meta
}

// Emitter turns draft event inputs into events and delivers them to hooks.
type Emitter struct {
	hooks  Hooks
	origin Origin
	now    func() time.Time
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithClock overrides the time source used for OccurredAt.
func WithClock(now func() time.Time) EmitterOption {
	return func(e *Emitter) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEmitter binds hooks to origin. Nil hooks are dropped.
func NewEmitter(hooks Hooks, origin Origin, opts ...EmitterOption) *Emitter {
	e := &Emitter{
		hooks:  hooks.Compact(),
		origin: origin.withDefaults(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Enabled reports whether any hook is attached.
func (e *Emitter) Enabled() bool {
	return e != nil && len(e.hooks) > 0
}

// Origin returns the stamped origin with defaults applied.
func (e *Emitter) Origin() Origin {
	return e.origin
}

// Emit builds the verb event from input and notifies every hook.
func (e *Emitter) Emit(ctx context.Context, verb string, input DraftEventInput) error {
	if !e.Enabled() {
		return nil
	}
	if input.OccurredAt.IsZero() {
		input.OccurredAt = e.now()
	}
	return e.hooks.Notify(ctx, e.origin.DraftEvent(verb, input))
}
