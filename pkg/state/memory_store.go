package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store intended for tests, examples and local
// simulation. Ids are uuids; CanonicalID is applied to every incoming id.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
	newID   func() string

	saves     int
	publishes int
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryClock overrides the store clock.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how new resource ids are minted.
func WithIDGenerator(fn func() string) MemoryOption {
	return func(s *MemoryStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		records: map[string]Record{},
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) Save(ctx context.Context, resourceID string, doc Document) (SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return SaveResult{}, err
	}
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++

	id := CanonicalID(resourceID)
	if id == "" {
		id = CanonicalID(s.newID())
	}
	record, exists := s.records[id]
	if !exists {
		record = Record{ResourceID: id, Status: StatusDraft, CreatedAt: now}
	}
	record.Sections = cloneSections(doc.Sections)
	record.Version++
	record.UpdatedAt = now
	s.records[id] = record

	return SaveResult{Success: true, ResourceID: id}, nil
}

func (s *MemoryStore) Publish(ctx context.Context, resourceID, status string) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if !ValidStatus(status) {
		return PublishResult{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	id := CanonicalID(resourceID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishes++

	record, ok := s.records[id]
	if !ok {
		return PublishResult{Success: false, Message: fmt.Sprintf("draft %q not found", id)}, nil
	}
	record.Status = status
	if status == StatusPublished {
		record.PublishedAt = s.now().UTC()
	}
	s.records[id] = record
	return PublishResult{Success: true}, nil
}

func (s *MemoryStore) Load(ctx context.Context, resourceID string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	s.mu.RLock()
	record, ok := s.records[CanonicalID(resourceID)]
	s.mu.RUnlock()
	if !ok {
		return Record{}, false, nil
	}
	record.Sections = cloneSections(record.Sections)
	return record, true, nil
}

// Len returns the number of stored drafts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Calls returns how many Save and Publish calls the store has served.
func (s *MemoryStore) Calls() (saves, publishes int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves, s.publishes
}
