package jobs_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slokhande/dataos/internal/cache"
	"github.com/slokhande/dataos/internal/db"
	"github.com/slokhande/dataos/internal/engine"
	"github.com/slokhande/dataos/internal/events"
	"github.com/slokhande/dataos/internal/jobs"
	"github.com/slokhande/dataos/internal/metrics"
	"github.com/slokhande/dataos/internal/model"
	"github.com/slokhande/dataos/internal/registry"
	"github.com/slokhande/dataos/internal/router"
	"github.com/slokhande/dataos/internal/runtime"
	"github.com/slokhande/dataos/internal/vfs"
)

func newStore(t *testing.T) *jobs.Store {
	t.Helper()
	handle, err := db.Open(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Close() })
	return jobs.NewStore(handle)
}

func TestStore_LifecycleIsMonotonic(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, 0, jobs.TypeIngest, 0, map[string]any{"path": "/home/a.csv"})
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusPending, job.Status)

	// Completing a pending job is not a legal transition.
	require.Error(t, store.MarkCompleted(ctx, job.ID, nil))

	require.NoError(t, store.MarkRunning(ctx, job.ID))
	require.Error(t, store.MarkRunning(ctx, job.ID))

	require.NoError(t, store.SetProgress(ctx, job.ID, 50))
	require.NoError(t, store.MarkCompleted(ctx, job.ID, map[string]any{"rows": 3}))

	// Terminal states never change.
	require.Error(t, store.MarkFailed(ctx, job.ID, "too late"))

	final, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
}

func TestStore_GetUnknownJob(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	_, err := store.Get(context.Background(), 999)
	require.ErrorIs(t, err, jobs.ErrNotFound)
}

func TestStore_RecoverStale(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, 0, jobs.TypeClean, 0, nil)
	require.NoError(t, err)
	require.NoError(t, store.MarkRunning(ctx, job.ID))

	n, err := store.RecoverStale(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	recovered, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, recovered.Status)
	assert.Equal(t, "system restart detected", recovered.Error)
}

func TestStore_PendingOrderedByPriorityThenAge(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()

	low, err := store.Create(ctx, 0, jobs.TypeIngest, 0, nil)
	require.NoError(t, err)
	high, err := store.Create(ctx, 0, jobs.TypeIngest, 10, nil)
	require.NoError(t, err)
	alsoLow, err := store.Create(ctx, 0, jobs.TypeIngest, 0, nil)
	require.NoError(t, err)

	pending, err := store.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, high.ID, pending[0].ID)
	assert.Equal(t, low.ID, pending[1].ID)
	assert.Equal(t, alsoLow.ID, pending[2].ID)
}

type scriptedExecutor struct {
	failIntents map[string]bool
	executed    []string
}

func (e *scriptedExecutor) ExecuteIntent(_ context.Context, intent model.Intent) model.ExecutionResult {
	e.executed = append(e.executed, intent.Intent)
	if e.failIntents[intent.Intent] {
		return model.ExecutionResult{Success: false, Message: "scripted failure"}
	}
	return model.ExecutionResult{Success: true, Data: map[string]any{"ok": true}, Message: "done"}
}

func TestQueue_FailedJobDoesNotBlockTheRest(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()
	bus := events.NewBus()
	executor := &scriptedExecutor{failIntents: map[string]bool{registry.IntentCleanData: true}}
	queue := jobs.NewQueue(store, executor, bus)

	failing, err := store.Create(ctx, 0, jobs.TypeClean, 10, map[string]any{"tableName": "sales"})
	require.NoError(t, err)
	ok, err := store.Create(ctx, 0, jobs.TypeIngest, 0, map[string]any{"path": "/home/a.csv", "tableName": "a"})
	require.NoError(t, err)

	require.NoError(t, queue.Drain(ctx))

	failed, err := store.Get(ctx, failing.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, failed.Status)
	assert.Equal(t, "scripted failure", failed.Error)

	completed, err := store.Get(ctx, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, completed.Status)
	assert.Equal(t, []string{registry.IntentCleanData, registry.IntentIngestFile}, executor.executed)
}

func TestQueue_UnknownJobTypeFails(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()
	queue := jobs.NewQueue(store, &scriptedExecutor{}, events.NewBus())

	job, err := queue.Submit(ctx, 0, "teleport", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "unknown job type")
}

func TestQueue_PublishesLifecycleEvents(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()
	bus := events.NewBus()
	queue := jobs.NewQueue(store, &scriptedExecutor{}, bus)

	job, err := queue.Submit(ctx, 0, jobs.TypeIngest, 0, map[string]any{"path": "/home/a.csv", "tableName": "a"})
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, job.Status)

	var types []events.Type
	for _, ev := range bus.History(0) {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []events.Type{events.JobCreated, events.JobStarted, events.JobCompleted}, types)
}

func TestQueue_EndToEndIngestThroughRuntime(t *testing.T) {
	t.Parallel()

	handle, err := db.Open(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Close() })

	eng, err := engine.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	ctx := context.Background()
	bus := events.NewBus()
	files := vfs.NewStore(handle, bus)
	require.NoError(t, files.Bootstrap(ctx))

	r := router.New(eng, cache.NewStore(handle), 0)
	svc, err := metrics.NewService(r, "")
	require.NoError(t, err)

	reg := registry.New()
	registry.Bootstrap(reg)
	rt := runtime.New(reg, r, eng, files, svc, bus)

	csv := "region,sales,units\n"
	for i := 0; i < 10; i++ {
		csv += "north,100,5\n"
	}
	require.NoError(t, files.WriteFile(ctx, "/home/documents/orders.txt", csv, 0))

	queue := jobs.NewQueue(jobs.NewStore(handle), rt, bus)
	require.NoError(t, queue.Recover(ctx))

	job, err := queue.Submit(ctx, 0, jobs.TypeIngest, 0, map[string]any{"path": "/home/documents/orders.txt", "tableName": "orders"})
	require.NoError(t, err)
	require.Equal(t, jobs.StatusCompleted, job.Status, job.Error)

	result, ok := job.Result.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 10, result["rows"])
	assert.Equal(t, "orders", result["table"])

	profile, err := queue.Submit(ctx, 0, jobs.TypeAIProfile, 0, map[string]any{"path": "/home/documents/orders.txt"})
	require.NoError(t, err)
	require.Equal(t, jobs.StatusCompleted, profile.Status, profile.Error)

	report, ok := profile.Result.(map[string]any)
	require.True(t, ok)
	cols, ok := report["columns"].([]any)
	require.True(t, ok)
	assert.Len(t, cols, 3)
}
