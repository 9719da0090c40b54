package draftsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-draftsync/pkg/state"
)

func TestHydrateSessionResumesEditing(t *testing.T) {
	updated := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	record := state.Record{
		ResourceID: "abc123",
		Status:     state.StatusDraft,
		Version:    3,
		UpdatedAt:  updated,
		Sections: map[string]map[string]any{
			"basics":  {"title": "Go"},
			"pricing": {"price": 49, "tiers": map[string]any{"early": 39}},
		},
	}

	session, err := HydrateSession(record, []SessionOption{WithSessionID("resume-1")})
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if session.ResourceID() != "abc123" || !session.Identified() || session.Dirty() {
		t.Fatalf("unexpected hydrated state id=%q identified=%v dirty=%v",
			session.ResourceID(), session.Identified(), session.Dirty())
	}
	if session.ID() != "resume-1" || !session.LastSavedAt().Equal(updated) {
		t.Fatalf("unexpected session metadata %q %v", session.ID(), session.LastSavedAt())
	}
	if value, _ := session.Get("pricing", "tiers.early"); value != 39.0 {
		t.Fatalf("expected JSON decoded tier, got %#v", value)
	}

	record.Sections["basics"]["title"] = "mutated"
	if value, _ := session.Get("basics", "title"); value != "Go" {
		t.Fatalf("expected hydrated fields to be detached, got %v", value)
	}
}

func TestHydrateSessionSkipsIdentityAndUpdates(t *testing.T) {
	store := state.NewMemoryStore()
	ctx := context.Background()
	result, err := store.Save(ctx, "", state.Document{Sections: map[string]map[string]any{
		"pricing": {"price": 10},
	}})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	record, ok, err := store.Load(ctx, result.ResourceID)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}

	session, err := HydrateSession(record, nil)
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	coord, err := NewCoordinator(session, newTestBuilder(t, nil), store, WithIdentityRule(identityRule(t)))
	if err != nil {
		t.Fatalf("coordinator: %v", err)
	}
	session.Set("pricing", "price", 15)
	if _, err := coord.RequestSave(ctx, TriggerTimer); err != nil {
		t.Fatalf("timer save: %v", err)
	}
	record, _, _ = store.Load(ctx, result.ResourceID)
	if record.Version != 2 || record.Sections["pricing"]["price"] != 15.0 {
		t.Fatalf("expected hydrated draft to be updated in place, got %+v", record)
	}
}

func TestHydrateSessionErrors(t *testing.T) {
	if _, err := HydrateSession(state.Record{}, nil); !errors.Is(err, ErrNoResourceID) {
		t.Fatalf("expected ErrNoResourceID, got %v", err)
	}

	failing := func(string, map[string]any) (map[string]any, error) {
		return nil, errors.New("legacy layout")
	}
	_, err := HydrateSession(state.Record{ResourceID: "abc123"}, nil, WithHydrateRewrite(failing))
	if err == nil || !strings.Contains(err.Error(), "legacy layout") {
		t.Fatalf("expected rewrite failure, got %v", err)
	}
}

func TestHydrateSessionRewriteMigratesLayout(t *testing.T) {
	record := state.Record{
		ResourceID: "abc123",
		Sections: map[string]map[string]any{
			"info": {"title": "Go", "duration": 3},
		},
	}
	rename := func(resourceID string, sections map[string]any) (map[string]any, error) {
		if resourceID != "abc123" {
			return nil, fmt.Errorf("unexpected resource %q", resourceID)
		}
		sections["basics"] = sections["info"]
		delete(sections, "info")
		return sections, nil
	}
	session, err := HydrateSession(record, nil, WithHydrateRewrite(rename))
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if title, _ := session.Get("basics", "title"); title != "Go" {
		t.Fatalf("expected migrated title, got %v", title)
	}
	if duration, _ := session.Get("basics", "duration"); duration != float64(3) {
		t.Fatalf("expected numbers normalized to float64, got %T", duration)
	}
	if _, ok := record.Sections["basics"]; ok {
		t.Fatalf("expected stored record untouched")
	}
}
