package state_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-draftsync/pkg/state"
)

func TestMemoryStoreUsesInjectedClockAndIDs(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := state.NewMemoryStore(
		state.WithMemoryClock(func() time.Time { return now }),
		state.WithIDGenerator(func() string { return "  Course-1 " }),
	)

	result, err := store.Save(context.Background(), "", state.Document{})
	require.NoError(t, err)
	assert.Equal(t, "course-1", result.ResourceID)

	record, ok, err := store.Load(context.Background(), "COURSE-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, now, record.CreatedAt)
	assert.Equal(t, now, record.UpdatedAt)
	assert.NotNil(t, record.Sections)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreIsolatesCallerMaps(t *testing.T) {
	store := state.NewMemoryStore()
	sections := map[string]map[string]any{"basics": {"title": "before"}}

	result, err := store.Save(context.Background(), "", state.Document{Sections: sections})
	require.NoError(t, err)
	sections["basics"]["title"] = "mutated"

	record, _, err := store.Load(context.Background(), result.ResourceID)
	require.NoError(t, err)
	assert.Equal(t, "before", record.Sections["basics"]["title"])

	record.Sections["basics"]["title"] = "mutated again"
	again, _, err := store.Load(context.Background(), result.ResourceID)
	require.NoError(t, err)
	assert.Equal(t, "before", again.Sections["basics"]["title"])
}

func TestMemoryStoreCountsCalls(t *testing.T) {
	store := state.NewMemoryStore()
	ctx := context.Background()

	first, err := store.Save(ctx, "", state.Document{})
	require.NoError(t, err)
	_, err = store.Save(ctx, first.ResourceID, state.Document{})
	require.NoError(t, err)
	_, err = store.Publish(ctx, first.ResourceID, state.StatusArchived)
	require.NoError(t, err)

	saves, publishes := store.Calls()
	assert.Equal(t, 2, saves)
	assert.Equal(t, 1, publishes)
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	store := state.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Save(ctx, "", state.Document{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.Len())
}
