package draftsync

import (
	"fmt"
	"strings"
	"time"
)

// Trigger identifies the event category that asked for a save.
type Trigger int

const (
	// TriggerManual is an explicit save action.
	TriggerManual Trigger = iota + 1
	// TriggerTimer is the periodic autosave tick.
	TriggerTimer
	// TriggerNavigation fires when the user moves between wizard steps.
	TriggerNavigation
	// TriggerUnload fires when the hosting view is torn down.
	TriggerUnload
)

func (t Trigger) String() string {
	switch t {
	case TriggerManual:
		return "manual"
	case TriggerTimer:
		return "timer"
	case TriggerNavigation:
		return "navigation"
	case TriggerUnload:
		return "unload"
	default:
		return fmt.Sprintf("trigger(%d)", int(t))
	}
}

// Interactive reports whether the trigger has a user waiting on feedback.
func (t Trigger) Interactive() bool {
	return t == TriggerManual || t == TriggerNavigation
}

// Valid reports whether t is one of the known triggers.
func (t Trigger) Valid() bool {
	return t >= TriggerManual && t <= TriggerUnload
}

// ParseTrigger maps a trigger name back to its value.
func ParseTrigger(name string) (Trigger, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "manual":
		return TriggerManual, nil
	case "timer", "tick":
		return TriggerTimer, nil
	case "navigation", "navigate":
		return TriggerNavigation, nil
	case "unload":
		return TriggerUnload, nil
	default:
		return 0, fmt.Errorf("draftsync: unknown trigger %q", name)
	}
}

// Status describes what RequestSave did with a request.
type Status string

const (
	// StatusSaved means the client confirmed the save.
	StatusSaved Status = "saved"
	// StatusSkipped means there was nothing worth saving.
	StatusSkipped Status = "skipped"
	// StatusCoalesced means a save was in flight and a follow-up was scheduled.
	StatusCoalesced Status = "coalesced"
	// StatusDropped means a timer tick arrived while a save was in flight.
	StatusDropped Status = "dropped"
	// StatusDispatched means an unload save was started without waiting.
	StatusDispatched Status = "dispatched"
	// StatusFailed means the request was rejected or the client failed.
	StatusFailed Status = "failed"
)

// Outcome reports the result of a single RequestSave call.
type Outcome struct {
	Trigger    Trigger
	Status     Status
	ResourceID string
	Revision   uint64
	Created    bool
	SavedAt    time.Time
	// Superseded reports a successful save that did not cover the session:
	// it landed on a second draft or an older save was confirmed after it.
	// The session stays dirty and the current payload is sent again.
	Superseded bool
}

// RuleContext carries inputs needed when evaluating a rule expression.
// Snapshot is usually the payload sections keyed by step.
type RuleContext struct {
	Snapshot any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	Trigger  string
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) triggerLabel() string {
	if ctx.Trigger != "" {
		return ctx.Trigger
	}
	return "unknown"
}
