// Package offline coordinates the device-side half of annotation sync: a
// bounded book cache with priority pinning, a retry-bounded sync queue that
// drains when connectivity returns, debounced auto-sync, and the highlight
// merge round trip against the remote blob store.
package offline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkmark/inkmark/pkg/conflict"
	"github.com/inkmark/inkmark/pkg/connectivity"
	"github.com/inkmark/inkmark/pkg/highlights"
	"github.com/inkmark/inkmark/pkg/models"
	"github.com/inkmark/inkmark/pkg/store"
	"github.com/inkmark/inkmark/pkg/transport"
)

const (
	// DefaultMaxCacheSize bounds the book cache at 2 GiB.
	DefaultMaxCacheSize int64 = 2 << 30

	// DefaultDebounceWindow coalesces bursts of mutations into one sync.
	DefaultDebounceWindow = 2 * time.Second

	// cleanupTarget is the cache usage fraction cleanup drains down to.
	cleanupTarget = 0.8

	// queueSnapshotKey is the store key holding the persisted queue.
	queueSnapshotKey = "sync-queue"
)

// Executor performs one queued sync operation.
type Executor func(ctx context.Context, op models.SyncOperation) error

// Config wires a Coordinator. Only Manager is required; absent collaborators
// disable the feature they serve (no store: no snapshots, no transport: sync
// operations fail, no notifier: a Manual one is created offline).
type Config struct {
	Manager   *highlights.Manager
	Store     store.Store
	Transport transport.Transport
	Notifier  connectivity.Notifier

	// Executor runs queued operations. Defaults to uploading the operation
	// payload through Transport.
	Executor Executor

	MaxCacheSize   int64
	DebounceWindow time.Duration
	Logger         zerolog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Coordinator owns the offline cache and the sync queue. All methods are safe
// for concurrent use.
type Coordinator struct {
	mu sync.Mutex

	manager   *highlights.Manager
	resolver  *conflict.Resolver
	store     store.Store
	transport transport.Transport
	notifier  connectivity.Notifier
	executor  Executor
	log       zerolog.Logger
	now       func() time.Time

	maxCacheSize int64
	cache        map[models.BookID]*models.CachedBook
	cacheSize    int64

	queue  []models.SyncOperation
	failed map[models.Priority]int

	// drainMu serializes queue drains so a connectivity flap cannot
	// interleave two executions of the same snapshot.
	drainMu sync.Mutex

	debounce    time.Duration
	syncTimer   *time.Timer
	unsubscribe func()
	closed      bool
}

// New builds a Coordinator and subscribes it to the connectivity notifier.
func New(cfg Config) *Coordinator {
	c := &Coordinator{
		manager:      cfg.Manager,
		store:        cfg.Store,
		transport:    cfg.Transport,
		notifier:     cfg.Notifier,
		executor:     cfg.Executor,
		log:          cfg.Logger,
		now:          cfg.Now,
		maxCacheSize: cfg.MaxCacheSize,
		cache:        make(map[models.BookID]*models.CachedBook),
		failed:       make(map[models.Priority]int),
		debounce:     cfg.DebounceWindow,
	}
	if c.manager == nil {
		c.manager = highlights.NewManager(cfg.Logger)
	}
	if c.notifier == nil {
		c.notifier = connectivity.NewManual()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.maxCacheSize <= 0 {
		c.maxCacheSize = DefaultMaxCacheSize
	}
	if c.debounce <= 0 {
		c.debounce = DefaultDebounceWindow
	}
	if c.executor == nil {
		c.executor = c.uploadOperation
	}
	c.resolver = conflict.NewResolver(c.log)

	c.unsubscribe = c.notifier.Subscribe(func(online bool) {
		if online {
			c.log.Debug().Msg("connectivity restored, draining sync queue")
			_ = c.ProcessSyncQueue(context.Background())
		}
	})
	return c
}

// Manager exposes the highlight manager the coordinator syncs.
func (c *Coordinator) Manager() *highlights.Manager {
	return c.manager
}

// Online reports the notifier's current state.
func (c *Coordinator) Online() bool {
	return c.notifier.Online()
}

// Close detaches the coordinator from its notifier and cancels any pending
// debounced sync. Queued operations stay queued (and snapshotted, when a
// store is configured).
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.syncTimer != nil {
		c.syncTimer.Stop()
		c.syncTimer = nil
	}
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// Status is a point-in-time snapshot of the coordinator.
type Status struct {
	Online      bool
	CachedBooks int
	CacheSize   int64

	// Pending counts queued operations per priority class.
	Pending map[models.Priority]int

	// Failed counts operations dropped after retry exhaustion.
	Failed map[models.Priority]int

	// EstimatedSyncSeconds is a scheduling heuristic: immediate operations
	// weigh 1s, batch 2s, background 5s.
	EstimatedSyncSeconds int
}

var syncWeights = map[models.Priority]int{
	models.PriorityImmediate:  1,
	models.PriorityBatch:      2,
	models.PriorityBackground: 5,
}

// GetOfflineStatus reports online state, cache usage, pending-sync counts by
// priority, and the estimated drain time.
func (c *Coordinator) GetOfflineStatus() Status {
	online := c.notifier.Online()

	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		Online:      online,
		CachedBooks: len(c.cache),
		CacheSize:   c.cacheSize,
		Pending:     make(map[models.Priority]int),
		Failed:      make(map[models.Priority]int),
	}
	for _, op := range c.queue {
		st.Pending[op.Priority]++
		st.EstimatedSyncSeconds += syncWeights[op.Priority]
	}
	for p, n := range c.failed {
		st.Failed[p] = n
	}
	return st
}
