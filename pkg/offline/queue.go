package offline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/inkmark/inkmark/internal/codec"
	"github.com/inkmark/inkmark/pkg/models"
	"github.com/inkmark/inkmark/pkg/store"
)

// SyncFailureError wraps a transport failure during queue drain. It drives
// the retry/drop policy and is never returned past the coordinator.
type SyncFailureError struct {
	Op  models.OperationID
	Err error
}

func (e *SyncFailureError) Error() string {
	return fmt.Sprintf("sync operation %s failed: %v", e.Op, e.Err)
}

func (e *SyncFailureError) Unwrap() error { return e.Err }

// AddToSyncQueue appends an operation; when currently online the queue drains
// immediately. Zero-value id, timestamp, and retry bound are filled in.
func (c *Coordinator) AddToSyncQueue(op models.SyncOperation) {
	c.mu.Lock()
	if op.ID.IsZero() {
		op.ID = models.NewOperationID()
	}
	if op.Timestamp.IsZero() {
		op.Timestamp = c.now()
	}
	if op.MaxRetries <= 0 {
		op.MaxRetries = models.DefaultMaxRetries
	}
	c.queue = append(c.queue, op)
	c.mu.Unlock()

	c.persistQueue(context.Background())

	if c.notifier.Online() {
		_ = c.ProcessSyncQueue(context.Background())
	}
}

// ProcessSyncQueue drains the queue in priority order: immediate before batch
// before background, stable within a class. A failed operation re-enqueues
// until its retry bound is exhausted, then is dropped into the aggregate
// failure counts. No-op when offline or empty.
func (c *Coordinator) ProcessSyncQueue(ctx context.Context) error {
	if !c.notifier.Online() {
		return nil
	}

	c.drainMu.Lock()
	defer c.drainMu.Unlock()

	c.mu.Lock()
	if len(c.queue) == 0 {
		c.mu.Unlock()
		return nil
	}
	batch := c.queue
	c.queue = nil
	c.mu.Unlock()

	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Priority.Rank() < batch[j].Priority.Rank()
	})

	for _, op := range batch {
		err := c.executor(ctx, op)
		if err == nil {
			continue
		}

		failure := &SyncFailureError{Op: op.ID, Err: err}
		if op.CanRetry() {
			op.RetryCount++
			c.mu.Lock()
			c.queue = append(c.queue, op)
			c.mu.Unlock()
			c.log.Debug().
				Stringer("op", op.ID).
				Int("retryCount", op.RetryCount).
				Err(failure).
				Msg("sync operation re-enqueued")
			continue
		}

		c.mu.Lock()
		c.failed[op.Priority]++
		c.mu.Unlock()
		c.log.Warn().
			Stringer("op", op.ID).
			Str("type", op.Type).
			Err(failure).
			Msg("sync operation dropped after retry exhaustion")
	}

	c.persistQueue(ctx)
	return nil
}

// ScheduleSync debounces a queue drain: every call within the window resets
// the single pending timer, so a burst of mutations produces one attempt.
func (c *Coordinator) ScheduleSync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if c.syncTimer != nil {
		c.syncTimer.Reset(c.debounce)
		return
	}
	c.syncTimer = time.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		c.syncTimer = nil
		c.mu.Unlock()
		_ = c.ProcessSyncQueue(context.Background())
	})
}

// PendingOperations returns a copy of the queue in arrival order.
func (c *Coordinator) PendingOperations() []models.SyncOperation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.SyncOperation(nil), c.queue...)
}

// RestoreQueue reloads the persisted queue snapshot. Operations already in
// the live queue are kept ahead of restored ones. Without a store it reports
// the storage-unavailable sentinel.
func (c *Coordinator) RestoreQueue(ctx context.Context) error {
	if c.store == nil {
		return store.ErrNotInitialized
	}

	data, err := c.store.Get(ctx, queueSnapshotKey)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil
		}
		return fmt.Errorf("load queue snapshot: %w", err)
	}

	var restored []models.SyncOperation
	if err := codec.Unmarshal(data, &restored); err != nil {
		return fmt.Errorf("decode queue snapshot: %w", err)
	}

	c.mu.Lock()
	c.queue = append(c.queue, restored...)
	c.mu.Unlock()
	return nil
}

// persistQueue snapshots the queue through the store when one is configured.
// Snapshot failures are logged, never surfaced: the in-memory queue stays
// authoritative.
func (c *Coordinator) persistQueue(ctx context.Context) {
	if c.store == nil {
		return
	}

	c.mu.Lock()
	snapshot := append([]models.SyncOperation(nil), c.queue...)
	c.mu.Unlock()

	data, err := codec.Marshal(snapshot)
	if err != nil {
		c.log.Warn().Err(err).Msg("encode queue snapshot")
		return
	}
	if err := c.store.Put(ctx, queueSnapshotKey, data, ""); err != nil {
		c.log.Warn().Err(err).Msg("persist queue snapshot")
	}
}
