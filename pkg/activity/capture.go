package activity

import (
	"context"
	"sync"
)

// CaptureHook keeps every routable event in memory. Tests and the examples use
// it to assert on what a coordinator emitted.
type CaptureHook struct {
	// Err is returned from every Notify once the event is recorded.
	Err error

	mu     sync.Mutex
	events []Event
}

func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	h.events = append(h.events, event.Normalize())
	h.mu.Unlock()
	return h.Err
}

// Snapshot returns the recorded events in arrival order.
func (h *CaptureHook) Snapshot() []Event {
	return h.Filter(func(Event) bool { return true })
}

// Filter returns the recorded events keep accepts.
func (h *CaptureHook) Filter(keep func(Event) bool) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Event
	for _, event := range h.events {
		if keep(event) {
			out = append(out, event)
		}
	}
	return out
}

// ForObject returns the events recorded for one draft.
func (h *CaptureHook) ForObject(objectID string) []Event {
	return h.Filter(func(e Event) bool { return e.ObjectID == objectID })
}

func (h *CaptureHook) Verbs() []string {
	events := h.Snapshot()
	verbs := make([]string, len(events))
	for i, event := range events {
		verbs[i] = event.Verb
	}
	return verbs
}

// Reset drops everything recorded so far.
func (h *CaptureHook) Reset() {
	h.mu.Lock()
	h.events = nil
	h.mu.Unlock()
}
