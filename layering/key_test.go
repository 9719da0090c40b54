package layering

import (
	"reflect"
	"testing"
)

func TestParseKey(t *testing.T) {
	cases := []struct {
		in      string
		want    Key
		wantErr bool
	}{
		{in: "basics.title", want: Key{Step: "basics", Field: "title"}},
		{in: " pricing.tiers.early ", want: Key{Step: "pricing", Field: "tiers.early"}},
		{in: "basics", wantErr: true},
		{in: ".title", wantErr: true},
		{in: "basics.", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseKey(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseKey(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseKey(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseKey(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
		if got.String() != tc.want.Step+"."+tc.want.Field {
			t.Fatalf("unexpected String(): %q", got.String())
		}
	}
}

func TestAssignLookupRemove(t *testing.T) {
	root := map[string]any{"flat": "x"}
	Assign(root, "tiers.early", 5)
	Assign(root, "flat.child", 1)

	if v, ok := Lookup(root, "tiers.early"); !ok || v != 5 {
		t.Fatalf("expected tiers.early=5, got %v (%t)", v, ok)
	}
	if v, ok := Lookup(root, "flat.child"); !ok || v != 1 {
		t.Fatalf("expected scalar to be replaced by map, got %v (%t)", v, ok)
	}
	if _, ok := Lookup(root, "tiers.late"); ok {
		t.Fatalf("expected missing path")
	}
	if !Remove(root, "tiers.early") {
		t.Fatalf("expected removal")
	}
	if Remove(root, "tiers.early") {
		t.Fatalf("expected second removal to report false")
	}
	want := map[string]any{"tiers": map[string]any{}, "flat": map[string]any{"child": 1}}
	if !reflect.DeepEqual(want, root) {
		t.Fatalf("unexpected root: %#v", root)
	}
}
