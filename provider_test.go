package draftsync

import (
	"reflect"
	"testing"
)

func TestRegistryRegisterAndDeregister(t *testing.T) {
	registry := NewRegistry()
	handle, err := registry.Register(" pricing ", ProviderFunc(func() (Snapshot, bool) {
		return Snapshot{"price": 10}, true
	}))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if handle.Step() != "pricing" {
		t.Fatalf("expected trimmed step, got %q", handle.Step())
	}
	if got := registry.Steps(); !reflect.DeepEqual([]string{"pricing"}, got) {
		t.Fatalf("unexpected steps %v", got)
	}

	provider, ok := registry.Provider("pricing")
	if !ok {
		t.Fatalf("expected provider")
	}
	snapshot, ok := provider.Pull()
	if !ok || snapshot["price"] != 10 {
		t.Fatalf("unexpected snapshot %v", snapshot)
	}

	handle.Deregister()
	if _, ok := registry.Provider("pricing"); ok {
		t.Fatalf("expected provider removed")
	}
	handle.Deregister()
}

func TestRegistryRemountSupersedesOldHandle(t *testing.T) {
	registry := NewRegistry()
	first, _ := registry.Register("pricing", ProviderFunc(func() (Snapshot, bool) {
		return Snapshot{"price": 1}, true
	}))
	_, _ = registry.Register("pricing", ProviderFunc(func() (Snapshot, bool) {
		return Snapshot{"price": 2}, true
	}))

	first.Deregister()

	provider, ok := registry.Provider("pricing")
	if !ok {
		t.Fatalf("expected newer registration to survive stale deregister")
	}
	snapshot, _ := provider.Pull()
	if snapshot["price"] != 2 {
		t.Fatalf("expected newer provider, got %v", snapshot)
	}
}

func TestRegistryRejectsInvalidInput(t *testing.T) {
	registry := NewRegistry()
	if _, err := registry.Register("", ProviderFunc(func() (Snapshot, bool) { return nil, false })); err == nil {
		t.Fatalf("expected error for empty step")
	}
	if _, err := registry.Register("pricing", nil); err == nil {
		t.Fatalf("expected error for nil provider")
	}
	var nilRegistry *Registry
	if _, ok := nilRegistry.Provider("pricing"); ok {
		t.Fatalf("expected nil registry to hold nothing")
	}
	var zero Handle
	zero.Deregister()
}

func TestProviderFuncNil(t *testing.T) {
	var fn ProviderFunc
	if _, ok := fn.Pull(); ok {
		t.Fatalf("expected nil provider func to report none")
	}
}
