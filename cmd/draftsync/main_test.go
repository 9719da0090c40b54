package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-draftsync/internal/script"
	"github.com/goliatone/go-draftsync/pkg/course"
	"github.com/goliatone/go-draftsync/pkg/state"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func simulate(t *testing.T, args ...string) script.Report {
	t.Helper()
	args = append(args, "simulate", "testdata/wizard.yaml", "--json")
	stdout, stderr, err := runCLI(t, args...)
	require.NoError(t, err, stderr)

	var report script.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report), stdout)
	return report
}

func TestSimulateMemoryStore(t *testing.T) {
	report := simulate(t, "--log-level", "error")

	assert.Equal(t, "course wizard", report.Name)
	assert.Equal(t, 4, report.Saves)
	assert.Equal(t, 1, report.Publishes)
	assert.NotEmpty(t, report.ResourceID)
	assert.Len(t, report.Results, 14)
}

func TestSimulateTextOutputAndMetrics(t *testing.T) {
	stdout, _, err := runCLI(t, "--log-level", "error", "--metrics", "simulate", "testdata/wizard.yaml")
	require.NoError(t, err)

	assert.Contains(t, stdout, "dispatched")
	assert.Contains(t, stdout, "4 saves, 1 publishes")
	assert.Contains(t, stdout, `draftsync_save_requests_total{status="saved",trigger="navigation"} 1`)
	assert.Contains(t, stdout, "draftsync_session_dirty 0")
}

func TestSimulateExportsSpans(t *testing.T) {
	_, stderr, err := runCLI(t, "--log-level", "error", "--trace", "simulate", "testdata/wizard.yaml", "--json")
	require.NoError(t, err)

	assert.Contains(t, stderr, "draftsync.save")
	assert.Contains(t, stderr, "draftsync.publish")
}

func TestSQLiteRoundTrip(t *testing.T) {
	db := filepath.Join(t.TempDir(), "drafts.db")
	store := []string{"--log-level", "error", "--store", "sqlite", "--db", db}

	report := simulate(t, store...)
	require.NotEmpty(t, report.ResourceID)
	id := report.ResourceID

	stdout, _, err := runCLI(t, append(store, "show", id, "--format", "draft")...)
	require.NoError(t, err)
	var draft course.Draft
	require.NoError(t, json.Unmarshal([]byte(stdout), &draft))
	assert.Equal(t, "Go in Practice", draft.Basics.Title)
	assert.Equal(t, 30.0, draft.Pricing.Price)
	assert.Equal(t, "advanced", draft.Details.Level)
	assert.Equal(t, []string{"intro", "setup"}, draft.Curriculum.Modules)

	stdout, _, err = runCLI(t, append(store, "show", id, "--format", "fields")...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "pricing.tiers.early")

	stdout, _, err = runCLI(t, append(store, "list", "--status", state.StatusPublished)...)
	require.NoError(t, err)
	assert.Contains(t, stdout, id)

	stdout, _, err = runCLI(t, append(store, "--engine", "cel", "publish", id, "--status", state.StatusArchived)...)
	require.NoError(t, err)
	assert.Contains(t, stdout, state.StatusArchived)

	stdout, _, err = runCLI(t, append(store, "show", id, "--format", "yaml")...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "status: archived")
}

func TestShowUnknownDraft(t *testing.T) {
	_, _, err := runCLI(t, "--log-level", "error", "show", "missing")
	assert.True(t, errors.Is(err, state.ErrNotFound), "got %v", err)
}

func TestListNeedsSQLite(t *testing.T) {
	_, _, err := runCLI(t, "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot list")
}

func TestInvalidConfigIsRejected(t *testing.T) {
	_, _, err := runCLI(t, "--log-level", "loud", "--store", "redis", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "store.driver")
}

func TestSchemaCommand(t *testing.T) {
	stdout, _, err := runCLI(t, "schema")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/courses/{resource_id}")
	assert.Contains(t, paths, "/courses/{resource_id}/status")
	assert.True(t, strings.Contains(stdout, `"curriculum"`))
}
