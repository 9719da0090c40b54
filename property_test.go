package draftsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/goliatone/go-draftsync/pkg/state"
)

var propertyFields = []string{"title", "subtitle", "category"}

// TestProperty_LatestValueIsPersisted checks that after any interleaving of
// edits, saves and failures, one final successful save carries the latest
// value of every edited field.
func TestProperty_LatestValueIsPersisted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		client := newFakeClient()
		builder, err := NewBuilder(nil, courseSpecs())
		if err != nil {
			t.Fatalf("builder: %v", err)
		}
		coord, err := NewCoordinator(NewSession(), builder, client)
		if err != nil {
			t.Fatalf("coordinator: %v", err)
		}
		session := coord.Session()
		ctx := context.Background()

		latest := map[string]string{}
		failing := false
		client.setSaveFn(func(call saveCall) (state.SaveResult, error) {
			if failing {
				return state.SaveResult{}, errors.New("offline")
			}
			id := call.ResourceID
			if id == "" {
				id = "abc123"
			}
			return state.SaveResult{Success: true, ResourceID: id}, nil
		})

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 2).Draw(t, fmt.Sprintf("op-%d", i)) {
			case 0:
				field := rapid.SampledFrom(propertyFields).Draw(t, fmt.Sprintf("field-%d", i))
				value := rapid.StringMatching(`[a-z]{0,6}`).Draw(t, fmt.Sprintf("value-%d", i))
				session.Set("basics", field, value)
				latest[field] = value
			case 1:
				failing = rapid.Bool().Draw(t, fmt.Sprintf("failing-%d", i))
			case 2:
				trigger := rapid.SampledFrom([]Trigger{TriggerManual, TriggerTimer, TriggerNavigation}).Draw(t, fmt.Sprintf("trigger-%d", i))
				_, _ = coord.RequestSave(ctx, trigger)
			}
		}

		failing = false
		if _, err := coord.RequestSave(ctx, TriggerManual); err != nil {
			t.Fatalf("final save: %v", err)
		}
		if session.Dirty() {
			t.Fatalf("expected clean session after final save")
		}
		if len(latest) == 0 {
			return
		}
		saves := client.Saves()
		if len(saves) == 0 {
			t.Fatalf("expected at least one save for %d edits", len(latest))
		}
		last := saves[len(saves)-1].Doc.Sections["basics"]
		for field, want := range latest {
			if last[field] != want {
				t.Fatalf("field %s: want %q got %v", field, want, last[field])
			}
		}
	})
}

// TestProperty_IdentifierIsStable checks that once assigned, the resource id
// only changes into a canonical form of itself and every later save uses it.
func TestProperty_IdentifierIsStable(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		client := newFakeClient()
		responses := rapid.SliceOfN(rapid.SampledFrom([]string{"", "abc123", "ABC123", "xyz789", " abc123 "}), 1, 20).Draw(t, "responses")
		next := 0
		client.setSaveFn(func(call saveCall) (state.SaveResult, error) {
			if call.ResourceID == "" {
				return state.SaveResult{Success: true, ResourceID: "abc123"}, nil
			}
			response := responses[next%len(responses)]
			next++
			return state.SaveResult{Success: true, ResourceID: response}, nil
		})
		builder, err := NewBuilder(nil, courseSpecs())
		if err != nil {
			t.Fatalf("builder: %v", err)
		}
		coord, err := NewCoordinator(NewSession(), builder, client)
		if err != nil {
			t.Fatalf("coordinator: %v", err)
		}
		session := coord.Session()
		ctx := context.Background()

		for i := range responses {
			session.Set("basics", "title", fmt.Sprintf("rev-%d", i))
			if _, err := coord.RequestSave(ctx, TriggerManual); err != nil {
				t.Fatalf("save %d: %v", i, err)
			}
			if id := session.ResourceID(); !strings.EqualFold(id, "abc123") {
				t.Fatalf("save %d: resource id drifted to %q", i, id)
			}
		}

		for i, call := range client.Saves()[1:] {
			if !strings.EqualFold(call.ResourceID, "abc123") {
				t.Fatalf("update %d sent id %q", i, call.ResourceID)
			}
			if call.Doc.ResourceID != call.ResourceID {
				t.Fatalf("update %d: payload id %q differs from call id %q", i, call.Doc.ResourceID, call.ResourceID)
			}
		}
	})
}
