package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-draftsync/pkg/activity"
	"github.com/goliatone/go-draftsync/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()
	origin := activity.Origin{
		ActorID:    actorID.String(),
		UserID:     "not-a-uuid",
		TenantID:   tenantID.String(),
		ObjectType: "course",
	}
	event := origin.DraftEvent(activity.VerbDraftSaved, activity.DraftEventInput{
		ResourceID: "abc123",
		Trigger:    "manual",
		OccurredAt: now,
	})

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.TenantID != tenantID {
		t.Fatalf("unexpected identity %s/%s", record.ActorID, record.TenantID)
	}
	if record.UserID != uuid.Nil {
		t.Fatalf("expected invalid user id to map to uuid.Nil, got %s", record.UserID)
	}
	if record.Verb != activity.VerbDraftSaved || record.ObjectType != "course" || record.ObjectID != "abc123" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != activity.DefaultChannel || !record.OccurredAt.Equal(now) {
		t.Fatalf("unexpected channel or time: %+v", record)
	}
	if record.Data["trigger"] != "manual" {
		t.Fatalf("expected metadata passthrough got %v", record.Data["trigger"])
	}
}

func TestHookNotifySkipsUnroutable(t *testing.T) {
	sink := &recordingSink{}
	_ = usersink.Hook{Sink: sink}.Notify(context.Background(), activity.Event{})
	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}

func TestHookNotifyDefaultsTimestamp(t *testing.T) {
	sink := &recordingSink{}
	err := usersink.Hook{Sink: sink}.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbDraftCreated,
		ObjectType: "course",
		ObjectID:   "1",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 || sink.records[0].OccurredAt.IsZero() {
		t.Fatalf("expected one record with a timestamp, got %+v", sink.records)
	}
}

func TestHookNotifyFiltersVerbs(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink, Verbs: usersink.AuditVerbs}
	origin := activity.Origin{ObjectType: "course"}
	input := activity.DraftEventInput{ResourceID: "abc123"}

	for _, verb := range []string{
		activity.VerbDraftSaved,
		activity.VerbDraftCreated,
		activity.VerbDraftSaveFailed,
		activity.VerbDraftPublished,
	} {
		if err := hook.Notify(context.Background(), origin.DraftEvent(verb, input)); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}

	if len(sink.records) != 2 {
		t.Fatalf("expected 2 audit records, got %d", len(sink.records))
	}
	if sink.records[0].Verb != activity.VerbDraftCreated || sink.records[1].Verb != activity.VerbDraftPublished {
		t.Fatalf("unexpected verbs %q %q", sink.records[0].Verb, sink.records[1].Verb)
	}
}

func TestHookNotifyReturnsSinkError(t *testing.T) {
	sink := &recordingSink{err: errors.New("audit store down")}
	event := activity.Origin{}.DraftEvent(activity.VerbDraftCreated, activity.DraftEventInput{ResourceID: "1"})
	if err := (usersink.Hook{Sink: sink}).Notify(context.Background(), event); err == nil {
		t.Fatalf("expected sink error to surface")
	}
}
