package activity

import (
	"strings"
	"time"
)

// Verbs emitted for draft lifecycle events.
const (
	VerbDraftCreated       = "draft.created"
	VerbDraftSaved         = "draft.saved"
	VerbDraftSaveFailed    = "draft.save_failed"
	VerbDraftPublished     = "draft.published"
	VerbDraftPublishFailed = "draft.publish_failed"
)

// Event is one draft lifecycle occurrence delivered to hooks. IDs are plain
// strings so callers are not tied to a UUID type.
type Event struct {
	Verb       string
	ActorID    string
	UserID     string
	TenantID   string
	ObjectType string
	ObjectID   string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Routable reports whether the event names a verb and an object. Hooks never
// see events that are not routable.
func (e Event) Routable() bool {
	return strings.TrimSpace(e.Verb) != "" &&
		strings.TrimSpace(e.ObjectType) != "" &&
		strings.TrimSpace(e.ObjectID) != ""
}

// Normalize trims identifiers, copies metadata and stamps a missing
// OccurredAt with the current time.
func (e Event) Normalize() Event {
	e.Verb = strings.TrimSpace(e.Verb)
	e.ActorID = strings.TrimSpace(e.ActorID)
	e.UserID = strings.TrimSpace(e.UserID)
	e.TenantID = strings.TrimSpace(e.TenantID)
	e.ObjectType = strings.TrimSpace(e.ObjectType)
	e.ObjectID = strings.TrimSpace(e.ObjectID)
	e.Channel = strings.TrimSpace(e.Channel)
	e.Metadata = cloneMetadata(e.Metadata)
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	return e
}

func cloneMetadata(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
