package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/webmatch/packages/core/runner"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// clock returns a now func that advances a minute per call.
func clock() func() time.Time {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func result(file string, failed bool) *runner.RunResult {
	r := &runner.RunResult{
		File:     file,
		Name:     "site",
		Duration: 2 * time.Second,
		Passed:   1,
		Results: []*runner.CheckResult{
			{Name: "up", Target: "example.com", Matcher: "be_up", Passed: true, Duration: 40 * time.Millisecond},
			{Name: "later", Target: "example.com", Matcher: "be_up", Skipped: true, SkipReason: "maintenance"},
		},
		Skipped: 1,
	}
	if failed {
		r.Failed = 1
		r.Results = append(r.Results, &runner.CheckResult{
			Name: "cert", Target: "example.com", Matcher: "have_a_valid_cert",
			Message: "x509: certificate has expired", Duration: 90 * time.Millisecond,
		})
	}
	return r
}

func TestRecordAndChecks(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.Record(ctx, result("a.webmatch.yaml", true))
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	entries, err := store.Checks(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, Entry{Name: "up", Target: "example.com", Matcher: "be_up", Passed: true, Duration: 40 * time.Millisecond}, entries[0])
	assert.True(t, entries[1].Skipped)
	assert.Equal(t, "maintenance", entries[1].Message)
	assert.False(t, entries[2].Passed)
	assert.Equal(t, "x509: certificate has expired", entries[2].Message)
}

func TestRecord_StoresErrors(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.Record(ctx, &runner.RunResult{
		File:   "schema.webmatch.yaml",
		Failed: 1,
		Results: []*runner.CheckResult{
			{Name: "schema", Target: "api.example.com", Matcher: "match_json_schema", Error: fmt.Errorf("json schema unreadable")},
		},
	})
	require.NoError(t, err)

	entries, err := store.Checks(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "json schema unreadable", entries[0].Message)
}

func TestRecent(t *testing.T) {
	store := openTestStore(t)
	store.now = clock()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := store.Record(ctx, result(fmt.Sprintf("%d.webmatch.yaml", i), i == 1))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.True(t, runs[1].Failing())
	assert.Equal(t, 2*time.Second, runs[0].Duration)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 2, 58, 0, time.UTC), runs[0].StartedAt)

	all, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLastFailed(t *testing.T) {
	store := openTestStore(t)
	store.now = clock()
	ctx := context.Background()
	file := "site.webmatch.yaml"

	failed, err := store.LastFailed(ctx, file)
	require.NoError(t, err)
	assert.False(t, failed)

	last, err := store.LastRun(ctx, file)
	require.NoError(t, err)
	assert.Nil(t, last)

	_, err = store.Record(ctx, result(file, true))
	require.NoError(t, err)
	failed, err = store.LastFailed(ctx, file)
	require.NoError(t, err)
	assert.True(t, failed)

	_, err = store.Record(ctx, result("other.webmatch.yaml", false))
	require.NoError(t, err)
	failed, err = store.LastFailed(ctx, file)
	require.NoError(t, err)
	assert.True(t, failed)

	_, err = store.Record(ctx, result(file, false))
	require.NoError(t, err)
	failed, err = store.LastFailed(ctx, file)
	require.NoError(t, err)
	assert.False(t, failed)
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing-dir", "history.db"))
	assert.Error(t, err)
}
