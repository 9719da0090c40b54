package state

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("state: draft not found")

var ErrInvalidStatus = errors.New("state: invalid publish status")

// Publish statuses understood by the bundled stores.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Document is the complete draft sent on every save. Sections are keyed by
// wizard step and always describe the whole document, never a partial patch.
type Document struct {
	ResourceID string                    `json:"resource_id,omitempty"`
	Revision   uint64                    `json:"revision"`
	Sections   map[string]map[string]any `json:"sections"`
}

// SaveResult mirrors the remote save endpoint response.
type SaveResult struct {
	Success    bool   `json:"success"`
	ResourceID string `json:"resource_id"`
	Message    string `json:"message,omitempty"`
}

// PublishResult mirrors the remote publish endpoint response.
type PublishResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Record is a stored draft as returned by Loader.
type Record struct {
	ResourceID  string                    `json:"resource_id"`
	Sections    map[string]map[string]any `json:"sections"`
	Status      string                    `json:"status"`
	Version     int64                     `json:"version"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
	PublishedAt time.Time                 `json:"published_at,omitempty"`
}

// Client is the remote draft endpoint.
type Client interface {
	Save(ctx context.Context, resourceID string, doc Document) (SaveResult, error)
	Publish(ctx context.Context, resourceID, status string) (PublishResult, error)
}

// Loader reads a stored draft. ok is false when no draft exists for the id.
type Loader interface {
	Load(ctx context.Context, resourceID string) (record Record, ok bool, err error)
}

// Store is a Client that can also load drafts back.
type Store interface {
	Client
	Loader
}

// CanonicalID normalizes a resource id the way the bundled stores persist it.
func CanonicalID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// ValidStatus reports whether status can be passed to Publish.
func ValidStatus(status string) bool {
	switch strings.TrimSpace(status) {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	default:
		return false
	}
}

func cloneSections(src map[string]map[string]any) map[string]map[string]any {
	if src == nil {
		return map[string]map[string]any{}
	}
	out := make(map[string]map[string]any, len(src))
	for step, section := range src {
		out[step] = cloneAny(section).(map[string]any)
	}
	return out
}

func cloneAny(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		if typed == nil {
			return map[string]any{}
		}
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = cloneAny(item)
		}
		return out
	case []any:
		if typed == nil {
			return []any(nil)
		}
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneAny(item)
		}
		return out
	default:
		return value
	}
}
