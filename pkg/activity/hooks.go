package activity

import (
	"context"
	"errors"
	"fmt"
)

// Hook receives draft activity events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc lets a plain function act as a Hook.
type HookFunc func(ctx context.Context, event Event) error

// Notify calls fn.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans events out to every hook in order.
type Hooks []Hook

// Compact returns a copy without nil entries, or nil when nothing is left.
func (h Hooks) Compact() Hooks {
	var out Hooks
	for _, hook := range h {
		if hook != nil {
			out = append(out, hook)
		}
	}
	return out
}

// Notify normalizes event and hands it to each hook. Unroutable events are
// dropped. A failing hook does not stop the others; their errors are joined.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 || !event.Routable() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	event = event.Normalize()

	var errs []error
	for i, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("activity: hook %d on %s: %w", i, event.Verb, err))
		}
	}
	return errors.Join(errs...)
}
