package draftsync

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type builderFixture struct {
	Description string        `json:"description"`
	Specs       []builderSpec `json:"specs"`
	Cases       []builderCase `json:"cases"`
}

type builderSpec struct {
	Name     string         `json:"name"`
	Defaults map[string]any `json:"defaults"`
	Numeric  []string       `json:"numeric"`
}

type builderCase struct {
	Name      string                    `json:"name"`
	Session   map[string]map[string]any `json:"session"`
	Snapshots map[string]map[string]any `json:"snapshots"`
	Cached    map[string]map[string]any `json:"cached"`
	Unmounted []string                  `json:"unmounted"`
	Expect    map[string]map[string]any `json:"expect"`
}

func TestBuilderFromFixture(t *testing.T) {
	fx := loadBuilderFixture(t)
	specs := make([]StepSpec, len(fx.Specs))
	for i, spec := range fx.Specs {
		specs[i] = StepSpec{Name: spec.Name, Defaults: spec.Defaults, Numeric: spec.Numeric}
	}

	for _, tc := range fx.Cases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			cache := gocache.New(gocache.NoExpiration, 0)
			for step, snapshot := range tc.Cached {
				cache.Set(step, Snapshot(snapshot), gocache.NoExpiration)
			}
			registry := NewRegistry()
			for step, snapshot := range tc.Snapshots {
				snapshot := snapshot
				if _, err := registry.Register(step, ProviderFunc(func() (Snapshot, bool) {
					return Snapshot(snapshot), true
				})); err != nil {
					t.Fatalf("register %s: %v", step, err)
				}
			}
			for _, step := range tc.Unmounted {
				if _, err := registry.Register(step, ProviderFunc(func() (Snapshot, bool) {
					return nil, false
				})); err != nil {
					t.Fatalf("register %s: %v", step, err)
				}
			}

			builder, err := NewBuilder(registry, specs, WithSnapshotCache(cache))
			if err != nil {
				t.Fatalf("builder: %v", err)
			}
			session := NewSession()
			for step, section := range tc.Session {
				session.SetSection(step, section)
			}

			payload, err := builder.Build(session)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if got := payload.Sections(); !reflect.DeepEqual(tc.Expect, got) {
				t.Fatalf("payload mismatch:\nwant: %#v\n got: %#v", tc.Expect, got)
			}
		})
	}
}

func TestBuilderCachesLastSnapshotAfterUnmount(t *testing.T) {
	registry := NewRegistry()
	builder := newTestBuilder(t, registry)
	session := NewSession()

	handle, _ := registry.Register("pricing", ProviderFunc(func() (Snapshot, bool) {
		return Snapshot{"price": 12.0, "tiers": map[string]any{"early": 9.0}}, true
	}))
	if _, err := builder.Build(session); err != nil {
		t.Fatalf("first build: %v", err)
	}
	handle.Deregister()

	payload, err := builder.Build(session)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if value, _ := payload.Value("pricing.tiers.early"); value != 9.0 {
		t.Fatalf("expected cached tier, got %v", value)
	}
	trace, err := payload.Trace("pricing.price")
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	winner, ok := trace.Winner()
	if !ok || winner.Scope.Name != ScopeCached.Name {
		t.Fatalf("expected cached scope to win, got %+v", winner)
	}

	builder.Forget("pricing")
	if _, ok := builder.Cached("pricing"); ok {
		t.Fatalf("expected cache entry to be forgotten")
	}
	payload, _ = builder.Build(session)
	if value, _ := payload.Value("pricing.price"); value != 0.0 {
		t.Fatalf("expected default price after forget, got %v", value)
	}
}

func TestBuilderSnapshotIsDetached(t *testing.T) {
	registry := NewRegistry()
	tiers := map[string]any{"early": 5.0}
	_, _ = registry.Register("pricing", ProviderFunc(func() (Snapshot, bool) {
		return Snapshot{"tiers": tiers}, true
	}))
	builder := newTestBuilder(t, registry)

	payload, err := builder.Build(NewSession())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	tiers["early"] = 50.0

	if value, _ := payload.Value("pricing.tiers.early"); value != 5.0 {
		t.Fatalf("expected payload to keep the pulled value, got %v", value)
	}
	cached, _ := builder.Cached("pricing")
	if cached["tiers"].(map[string]any)["early"] != 5.0 {
		t.Fatalf("expected cache to keep the pulled value, got %v", cached)
	}
}

func TestBuilderPayloadMetadata(t *testing.T) {
	built := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	builder, err := NewBuilder(nil, courseSpecs(), WithBuilderClock(fixedClock(built)))
	if err != nil {
		t.Fatalf("builder: %v", err)
	}
	session := NewSession()
	session.Set("basics", "title", "Go")
	session.adoptResourceID("abc123")

	payload, err := builder.Build(session)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if payload.ResourceID() != "abc123" || payload.Revision() != 1 || !payload.BuiltAt().Equal(built) {
		t.Fatalf("unexpected metadata id=%q rev=%d at=%v", payload.ResourceID(), payload.Revision(), payload.BuiltAt())
	}
	if got := payload.Steps(); !reflect.DeepEqual([]string{"basics", "pricing"}, got) {
		t.Fatalf("unexpected steps %v", got)
	}
	doc := payload.Document()
	if doc.ResourceID != "abc123" || doc.Revision != 1 || doc.Sections["basics"]["title"] != "Go" {
		t.Fatalf("unexpected document %+v", doc)
	}
	doc.Sections["basics"]["title"] = "mutated"
	if value, _ := payload.Value("basics.title"); value != "Go" {
		t.Fatalf("expected document to be detached, got %v", value)
	}
}

func TestBuilderNormalizeHook(t *testing.T) {
	specs := []StepSpec{{
		Name:     "pricing",
		Defaults: map[string]any{"enabled": false, "price": 0.0},
		Numeric:  []string{"price"},
		Normalize: func(section map[string]any) map[string]any {
			if enabled, _ := section["enabled"].(bool); !enabled {
				section["price"] = 0.0
			}
			return section
		},
	}}
	builder, err := NewBuilder(nil, specs)
	if err != nil {
		t.Fatalf("builder: %v", err)
	}
	session := NewSession()
	session.Set("pricing", "price", 20)

	payload, _ := builder.Build(session)
	if value, _ := payload.Value("pricing.price"); value != 0.0 {
		t.Fatalf("expected disabled pricing to zero the price, got %v", value)
	}
}

func TestNewBuilderValidatesSpecs(t *testing.T) {
	if _, err := NewBuilder(nil, []StepSpec{{Name: " "}}); err == nil {
		t.Fatalf("expected error for empty step name")
	}
	_, err := NewBuilder(nil, []StepSpec{{Name: "basics"}, {Name: "basics "}})
	if err == nil || !strings.Contains(err.Error(), "declared twice") {
		t.Fatalf("expected duplicate step error, got %v", err)
	}
	if _, err := newTestBuilder(t, nil).Build(nil); err == nil {
		t.Fatalf("expected error for nil session")
	}
}

func TestCoerceNonNegative(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{in: 3, want: 3, ok: true},
		{in: int64(-2), want: 0, ok: true},
		{in: float32(1.5), want: 1.5, ok: true},
		{in: json.Number("7.25"), want: 7.25, ok: true},
		{in: " 12 ", want: 12, ok: true},
		{in: "free", ok: false},
		{in: true, ok: false},
		{in: nil, ok: false},
	}
	for _, tc := range cases {
		got, ok := coerceNonNegative(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("coerce %v: want (%v,%v) got (%v,%v)", tc.in, tc.want, tc.ok, got, ok)
		}
	}
}

func loadBuilderFixture(t *testing.T) builderFixture {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", "builder_payload.json"))
	if err != nil {
		t.Fatalf("read builder fixture: %v", err)
	}
	var fx builderFixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("decode builder fixture: %v", err)
	}
	return fx
}
