package offline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkmark/inkmark/pkg/connectivity"
	"github.com/inkmark/inkmark/pkg/models"
	"github.com/inkmark/inkmark/pkg/store"
)

// recordingExecutor captures executed operations and fails on demand.
type recordingExecutor struct {
	mu       sync.Mutex
	executed []models.SyncOperation
	fail     func(op models.SyncOperation) error
}

func (r *recordingExecutor) run(_ context.Context, op models.SyncOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		if err := r.fail(op); err != nil {
			return err
		}
	}
	r.executed = append(r.executed, op)
	return nil
}

func (r *recordingExecutor) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.executed))
	for i, op := range r.executed {
		out[i] = op.Type
	}
	return out
}

func op(opType string, priority models.Priority) models.SyncOperation {
	return models.SyncOperation{
		Type:     opType,
		Data:     json.RawMessage(`{}`),
		Priority: priority,
		Platform: models.PlatformWeb,
	}
}

func newQueueCoordinator(t *testing.T, exec *recordingExecutor, st store.Store) (*Coordinator, *connectivity.Manual) {
	t.Helper()
	notifier := connectivity.NewManual()
	c := New(Config{
		Notifier: notifier,
		Executor: exec.run,
		Store:    st,
		Now:      newTestClock().Now,
	})
	t.Cleanup(c.Close)
	return c, notifier
}

func TestQueueDrainsInPriorityOrder(t *testing.T) {
	exec := &recordingExecutor{}
	c, notifier := newQueueCoordinator(t, exec, nil)

	c.AddToSyncQueue(op("bg", models.PriorityBackground))
	c.AddToSyncQueue(op("imm", models.PriorityImmediate))
	c.AddToSyncQueue(op("batch", models.PriorityBatch))

	notifier.SetOnline(true)
	assert.Equal(t, []string{"imm", "batch", "bg"}, exec.types())
	assert.Empty(t, c.PendingOperations())
}

func TestQueueStableWithinPriority(t *testing.T) {
	exec := &recordingExecutor{}
	c, notifier := newQueueCoordinator(t, exec, nil)

	c.AddToSyncQueue(op("first", models.PriorityBatch))
	c.AddToSyncQueue(op("second", models.PriorityBatch))
	c.AddToSyncQueue(op("third", models.PriorityBatch))

	notifier.SetOnline(true)
	assert.Equal(t, []string{"first", "second", "third"}, exec.types())
}

func TestQueueNoopWhenOffline(t *testing.T) {
	exec := &recordingExecutor{}
	c, _ := newQueueCoordinator(t, exec, nil)

	c.AddToSyncQueue(op("waiting", models.PriorityImmediate))
	require.NoError(t, c.ProcessSyncQueue(context.Background()))

	assert.Empty(t, exec.types())
	assert.Len(t, c.PendingOperations(), 1)
}

func TestQueueDrainsImmediatelyWhenOnline(t *testing.T) {
	exec := &recordingExecutor{}
	c, notifier := newQueueCoordinator(t, exec, nil)
	notifier.SetOnline(true)

	c.AddToSyncQueue(op("direct", models.PriorityImmediate))
	assert.Equal(t, []string{"direct"}, exec.types())
}

func TestQueueRetriesThenDrops(t *testing.T) {
	exec := &recordingExecutor{
		fail: func(models.SyncOperation) error { return errors.New("backend down") },
	}
	c, notifier := newQueueCoordinator(t, exec, nil)
	notifier.SetOnline(true)

	failing := op("doomed", models.PriorityBatch)
	failing.MaxRetries = 2
	c.AddToSyncQueue(failing)

	// First drain failed and re-enqueued; drain until retries exhaust.
	for i := 0; i < 3; i++ {
		require.NoError(t, c.ProcessSyncQueue(context.Background()))
	}

	assert.Empty(t, c.PendingOperations(), "dropped after retry exhaustion")
	st := c.GetOfflineStatus()
	assert.Equal(t, 1, st.Failed[models.PriorityBatch])
	assert.Empty(t, exec.types())
}

func TestQueueRecoversAfterTransientFailure(t *testing.T) {
	attempts := 0
	exec := &recordingExecutor{}
	exec.fail = func(models.SyncOperation) error {
		attempts++
		if attempts == 1 {
			return errors.New("flaky")
		}
		return nil
	}
	c, notifier := newQueueCoordinator(t, exec, nil)
	notifier.SetOnline(true)

	c.AddToSyncQueue(op("flaky-once", models.PriorityImmediate))
	require.NoError(t, c.ProcessSyncQueue(context.Background()))

	assert.Equal(t, []string{"flaky-once"}, exec.types())
	assert.Empty(t, c.GetOfflineStatus().Failed)
}

func TestQueueSnapshotSurvivesRestart(t *testing.T) {
	st := store.NewMemory()

	exec := &recordingExecutor{}
	first, _ := newQueueCoordinator(t, exec, st)
	first.AddToSyncQueue(op("persisted", models.PriorityBatch))
	first.Close()

	second, notifier := newQueueCoordinator(t, exec, st)
	require.NoError(t, second.RestoreQueue(context.Background()))

	pending := second.PendingOperations()
	require.Len(t, pending, 1)
	assert.Equal(t, "persisted", pending[0].Type)
	assert.Equal(t, models.PriorityBatch, pending[0].Priority)
	assert.False(t, pending[0].ID.IsZero())

	notifier.SetOnline(true)
	assert.Equal(t, []string{"persisted"}, exec.types())
}

func TestRestoreQueueWithoutStore(t *testing.T) {
	exec := &recordingExecutor{}
	c, _ := newQueueCoordinator(t, exec, nil)
	assert.ErrorIs(t, c.RestoreQueue(context.Background()), store.ErrNotInitialized)
}

func TestRestoreQueueNoSnapshot(t *testing.T) {
	exec := &recordingExecutor{}
	c, _ := newQueueCoordinator(t, exec, store.NewMemory())
	assert.NoError(t, c.RestoreQueue(context.Background()))
	assert.Empty(t, c.PendingOperations())
}

func TestScheduleSyncDebounces(t *testing.T) {
	st := store.NewMemory()
	exec := &recordingExecutor{}

	seed, _ := newQueueCoordinator(t, exec, st)
	seed.AddToSyncQueue(op("debounced", models.PriorityImmediate))
	seed.Close()

	notifier := connectivity.NewManual()
	notifier.SetOnline(true)
	c := New(Config{
		Notifier:       notifier,
		Executor:       exec.run,
		Store:          st,
		DebounceWindow: 30 * time.Millisecond,
	})
	t.Cleanup(c.Close)
	require.NoError(t, c.RestoreQueue(context.Background()))

	// A burst of schedule calls coalesces into a single drain.
	c.ScheduleSync()
	c.ScheduleSync()
	c.ScheduleSync()

	require.Eventually(t, func() bool {
		return len(exec.types()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"debounced"}, exec.types())
	assert.Empty(t, c.PendingOperations())
}

func TestStatusCountsAndEstimate(t *testing.T) {
	exec := &recordingExecutor{}
	c, _ := newQueueCoordinator(t, exec, nil)

	c.AddToSyncQueue(op("a", models.PriorityImmediate))
	c.AddToSyncQueue(op("b", models.PriorityBatch))
	c.AddToSyncQueue(op("c", models.PriorityBackground))
	c.AddToSyncQueue(op("d", models.PriorityBackground))

	st := c.GetOfflineStatus()
	assert.False(t, st.Online)
	assert.Equal(t, 1, st.Pending[models.PriorityImmediate])
	assert.Equal(t, 1, st.Pending[models.PriorityBatch])
	assert.Equal(t, 2, st.Pending[models.PriorityBackground])
	assert.Equal(t, 1*1+1*2+2*5, st.EstimatedSyncSeconds)
}
