package state_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/goliatone/go-draftsync/pkg/state"
)

type saveFixture struct {
	Description string     `json:"description"`
	Cases       []saveCase `json:"cases"`
}

type saveCase struct {
	Name  string `json:"name"`
	Saves []struct {
		ResourceID string                    `json:"resource_id"`
		Sections   map[string]map[string]any `json:"sections"`
	} `json:"saves"`
	Expect struct {
		Version  int64                     `json:"version"`
		Status   string                    `json:"status"`
		Sections map[string]map[string]any `json:"sections"`
	} `json:"expect"`
}

type storeFactory struct {
	name string
	open func(t *testing.T) state.Store
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{name: "memory", open: func(t *testing.T) state.Store { return state.NewMemoryStore() }},
		{name: "sqlite", open: func(t *testing.T) state.Store { return openSQLite(t) }},
	}
}

func openSQLite(t *testing.T) *state.SQLiteStore {
	t.Helper()
	store, err := state.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "drafts.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreSaveContracts(t *testing.T) {
	fx := loadFixture[saveFixture](t, "state_save.json")
	for _, factory := range storeFactories() {
		for _, tc := range fx.Cases {
			t.Run(factory.name+"/"+tc.Name, func(t *testing.T) {
				store := factory.open(t)
				ctx := context.Background()

				var id string
				for i, save := range tc.Saves {
					ref := strings.ReplaceAll(save.ResourceID, "$id", id)
					ref = strings.ReplaceAll(ref, "$ID", strings.ToUpper(id))
					result, err := store.Save(ctx, ref, state.Document{Sections: save.Sections})
					if err != nil {
						t.Fatalf("save %d: %v", i, err)
					}
					if !result.Success || result.ResourceID == "" {
						t.Fatalf("save %d: unexpected result %+v", i, result)
					}
					if id != "" && result.ResourceID != id {
						t.Fatalf("save %d: expected id %q to be echoed, got %q", i, id, result.ResourceID)
					}
					id = result.ResourceID
				}

				record, ok, err := store.Load(ctx, id)
				if err != nil {
					t.Fatalf("load: %v", err)
				}
				if !ok {
					t.Fatalf("expected draft %q to exist", id)
				}
				if record.Version != tc.Expect.Version {
					t.Fatalf("expected version %d, got %d", tc.Expect.Version, record.Version)
				}
				if record.Status != tc.Expect.Status {
					t.Fatalf("expected status %q, got %q", tc.Expect.Status, record.Status)
				}
				if diff := cmpJSON(tc.Expect.Sections, record.Sections); diff != "" {
					t.Fatalf("sections mismatch: %s", diff)
				}
			})
		}
	}
}

func TestStorePublishContracts(t *testing.T) {
	for _, factory := range storeFactories() {
		t.Run(factory.name, func(t *testing.T) {
			store := factory.open(t)
			ctx := context.Background()

			missing, err := store.Publish(ctx, "nope", state.StatusPublished)
			if err != nil {
				t.Fatalf("publish missing: %v", err)
			}
			if missing.Success || missing.Message == "" {
				t.Fatalf("expected unsuccessful publish with message, got %+v", missing)
			}

			saved, err := store.Save(ctx, "", state.Document{Sections: map[string]map[string]any{"basics": {"title": "x"}}})
			if err != nil {
				t.Fatalf("save: %v", err)
			}
			if _, err := store.Publish(ctx, saved.ResourceID, "bogus"); err == nil {
				t.Fatalf("expected invalid status error")
			}
			result, err := store.Publish(ctx, strings.ToUpper(saved.ResourceID), state.StatusPublished)
			if err != nil {
				t.Fatalf("publish: %v", err)
			}
			if !result.Success {
				t.Fatalf("expected publish success, got %+v", result)
			}
			record, ok, err := store.Load(ctx, saved.ResourceID)
			if err != nil || !ok {
				t.Fatalf("load after publish: ok=%t err=%v", ok, err)
			}
			if record.Status != state.StatusPublished || record.PublishedAt.IsZero() {
				t.Fatalf("expected published record, got %+v", record)
			}
		})
	}
}

func TestStoreLoadMissing(t *testing.T) {
	for _, factory := range storeFactories() {
		t.Run(factory.name, func(t *testing.T) {
			_, ok, err := factory.open(t).Load(context.Background(), "missing")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if ok {
				t.Fatalf("expected ok=false for missing draft")
			}
		})
	}
}

func loadFixture[T any](t *testing.T, name string) T {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("unable to resolve caller for fixture %q", name)
	}
	path := filepath.Join(filepath.Dir(file), "testdata", name)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %q: %v", path, err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("failed to decode fixture %q: %v", path, err)
	}
	return out
}

func cmpJSON(want, got any) string {
	wantRaw, err := json.Marshal(want)
	if err != nil {
		return "marshal want: " + err.Error()
	}
	gotRaw, err := json.Marshal(got)
	if err != nil {
		return "marshal got: " + err.Error()
	}
	if string(wantRaw) == string(gotRaw) {
		return ""
	}
	return "want=" + string(wantRaw) + " got=" + string(gotRaw)
}
