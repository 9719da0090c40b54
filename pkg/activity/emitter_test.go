package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOriginDraftEventStampsIdentityAndMetadata(t *testing.T) {
	meta := map[string]any{"custom": "value"}
	origin := Origin{ActorID: "actor", UserID: "user", TenantID: "tenant", ObjectType: "course"}

	event := origin.DraftEvent(VerbDraftSaved, DraftEventInput{
		ResourceID: " abc123 ",
		SessionID:  "session-1",
		Trigger:    "timer",
		Revision:   7,
		Metadata:   meta,
	})

	if event.Verb != VerbDraftSaved || event.ObjectType != "course" || event.ObjectID != "abc123" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.ActorID != "actor" || event.TenantID != "tenant" || event.Channel != DefaultChannel {
		t.Fatalf("unexpected origin fields: %+v", event)
	}
	if event.Metadata["trigger"] != "timer" || event.Metadata["revision"] != uint64(7) {
		t.Fatalf("expected trigger and revision metadata, got %+v", event.Metadata)
	}
	if event.Metadata["session_id"] != "session-1" || event.Metadata["custom"] != "value" {
		t.Fatalf("expected session and custom metadata, got %+v", event.Metadata)
	}
	event.Metadata["custom"] = "changed"
	if meta["custom"] != "value" {
		t.Fatalf("expected input metadata untouched")
	}
}

func TestOriginDraftEventFallsBackToSession(t *testing.T) {
	event := Origin{}.DraftEvent(VerbDraftSaveFailed, DraftEventInput{
		SessionID: "session-9",
		Err:       errors.New("offline"),
	})
	if event.ObjectType != DefaultObjectType || event.ObjectID != "session-9" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.Metadata["error"] != "offline" {
		t.Fatalf("expected error metadata, got %+v", event.Metadata)
	}

	if (Origin{}).DraftEvent(VerbDraftPublishFailed, DraftEventInput{}).Routable() {
		t.Fatalf("expected an event without resource or session to be unroutable")
	}
}

func TestEmitterWithoutHooksIsDisabled(t *testing.T) {
	emitter := NewEmitter(Hooks{nil}, Origin{})
	if emitter.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	if err := emitter.Emit(context.Background(), VerbDraftCreated, DraftEventInput{ResourceID: "1"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	var nilEmitter *Emitter
	if nilEmitter.Enabled() {
		t.Fatalf("expected nil emitter to be disabled")
	}
}

func TestEmitterStampsClockAndChannel(t *testing.T) {
	capture := &CaptureHook{}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	emitter := NewEmitter(Hooks{capture}, Origin{Channel: "wizard"}, WithClock(func() time.Time { return at }))

	if err := emitter.Emit(context.Background(), VerbDraftCreated, DraftEventInput{ResourceID: "abc123"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := emitter.Emit(context.Background(), VerbDraftPublished, DraftEventInput{
		ResourceID: "abc123",
		Status:     "published",
		OccurredAt: at.Add(time.Hour),
	}); err != nil {
		t.Fatalf("emit: %v", err)
	}

	events := capture.Snapshot()
	if len(events) != 2 {
		t.Fatalf("expected two events, got %d", len(events))
	}
	if !events[0].OccurredAt.Equal(at) || !events[1].OccurredAt.Equal(at.Add(time.Hour)) {
		t.Fatalf("unexpected timestamps %v %v", events[0].OccurredAt, events[1].OccurredAt)
	}
	if events[0].Channel != "wizard" || events[1].Metadata["status"] != "published" {
		t.Fatalf("unexpected events %+v", events)
	}
	if emitter.Origin().ObjectType != DefaultObjectType {
		t.Fatalf("expected default object type, got %q", emitter.Origin().ObjectType)
	}
}
