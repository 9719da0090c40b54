package draftsync

import (
	"strings"

	"github.com/goliatone/go-draftsync/pkg/activity"
)

// Actor identifies who is editing the draft on emitted activity events.
type Actor struct {
	ActorID  string
	UserID   string
	TenantID string
}

type activityConfig struct {
	hooks   activity.Hooks
	channel string
	actor   Actor
}

// WithActivityHooks attaches hooks notified after saves and publishes.
// Hooks are cloned and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	compacted := hooks.Compact()
	return func(cfg *coordinatorConfig) {
		cfg.activity.hooks = compacted
	}
}

// WithActivityChannel overrides the default activity channel.
func WithActivityChannel(channel string) Option {
	return func(cfg *coordinatorConfig) {
		cfg.activity.channel = strings.TrimSpace(channel)
	}
}

// WithActor stamps activity events with the editing identity.
func WithActor(actor Actor) Option {
	return func(cfg *coordinatorConfig) {
		cfg.activity.actor = actor
	}
}

func (cfg activityConfig) emitter(objectType string) *activity.Emitter {
	return activity.NewEmitter(cfg.hooks, activity.Origin{
		ActorID:    cfg.actor.ActorID,
		UserID:     cfg.actor.UserID,
		TenantID:   cfg.actor.TenantID,
		ObjectType: objectType,
		Channel:    cfg.channel,
	})
}
