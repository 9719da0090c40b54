package draftsync

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-draftsync/internal/hydrate"
	"github.com/goliatone/go-draftsync/pkg/state"
)

// HydrateOption adjusts how a stored draft is decoded into a session.
type HydrateOption = hydrate.SectionsOption

// HydrateRewrite rewrites the stored sections of resourceID before they
// reach the session, for example to migrate an older layout.
type HydrateRewrite func(resourceID string, sections map[string]any) (map[string]any, error)

// WithHydrateRewrite runs fn on a copy of the stored sections.
func WithHydrateRewrite(fn HydrateRewrite) HydrateOption {
	if fn == nil {
		return nil
	}
	return hydrate.WithPreHook[map[string]map[string]any](func(ctx hydrate.Context, payload map[string]any) (map[string]any, error) {
		return fn(ctx.ResourceID, payload)
	})
}

// HydrateSession rebuilds a session from a stored draft so editing can resume.
// The session starts clean, carries the stored resource id and counts as
// identified, so the identity rule is not checked again.
func HydrateSession(record state.Record, sessionOpts []SessionOption, opts ...HydrateOption) (*Session, error) {
	resourceID := strings.TrimSpace(record.ResourceID)
	if resourceID == "" {
		return nil, fmt.Errorf("draftsync: hydrate: %w", ErrNoResourceID)
	}

	payload := make(map[string]any, len(record.Sections))
	for step, section := range record.Sections {
		payload[step] = section
	}
	sections, err := hydrate.Sections(hydrate.Context{
		ResourceID: resourceID,
		Status:     record.Status,
	}, payload, opts...)
	if err != nil {
		return nil, fmt.Errorf("draftsync: hydrate: %w", err)
	}

	session := NewSession(sessionOpts...)
	session.mu.Lock()
	session.fields = sections
	session.resourceID = resourceID
	session.identified = true
	if !record.UpdatedAt.IsZero() {
		session.lastSavedAt = record.UpdatedAt
	}
	session.mu.Unlock()
	return session, nil
}
