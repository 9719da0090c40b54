package usersink

import (
	"context"
	"strings"

	"github.com/goliatone/go-draftsync/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook forwards draft activity to a go-users ActivitySink.
//
// Verbs limits which events reach the sink; an empty list forwards all of
// them. Autosave produces a draft.saved event on every tick with edits, so
// audit sinks usually keep only created, published and failure verbs.
type Hook struct {
	Sink  usertypes.ActivitySink
	Verbs []string
}

// AuditVerbs is the verb set most audit trails want.
var AuditVerbs = []string{
	activity.VerbDraftCreated,
	activity.VerbDraftPublished,
	activity.VerbDraftPublishFailed,
}

// Notify logs event on the sink when its verb is accepted.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil || !event.Routable() {
		return nil
	}
	event = event.Normalize()
	if !h.accepts(event.Verb) {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, Record(event))
}

// Record maps a normalized event onto an ActivityRecord. Identifiers that
// are not UUIDs become uuid.Nil.
func Record(event activity.Event) usertypes.ActivityRecord {
	return usertypes.ActivityRecord{
		ActorID:    parseUUID(event.ActorID),
		UserID:     parseUUID(event.UserID),
		TenantID:   parseUUID(event.TenantID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		Data:       event.Metadata,
		OccurredAt: event.OccurredAt,
	}
}

func (h Hook) accepts(verb string) bool {
	if len(h.Verbs) == 0 {
		return true
	}
	for _, allowed := range h.Verbs {
		if strings.EqualFold(strings.TrimSpace(allowed), verb) {
			return true
		}
	}
	return false
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
