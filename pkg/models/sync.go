package models

import (
	"encoding/json"
	"time"
)

// Priority orders pending sync operations. Immediate operations drain before
// batch, batch before background; ordering within a class is stable.
type Priority string

const (
	PriorityImmediate  Priority = "immediate"
	PriorityBatch      Priority = "batch"
	PriorityBackground Priority = "background"
)

// Rank returns the drain order of the priority class; lower drains first.
// Unknown priorities sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityImmediate:
		return 0
	case PriorityBatch:
		return 1
	case PriorityBackground:
		return 2
	default:
		return 3
	}
}

// DefaultMaxRetries bounds per-operation retry attempts before the operation
// is dropped into aggregate failure counts.
const DefaultMaxRetries = 3

// SyncOperation is one pending remote-propagation step. Data carries the
// serialized payload (typically a highlight-set export) opaque to the queue.
type SyncOperation struct {
	ID         OperationID     `json:"id"`
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data,omitempty"`
	Priority   Priority        `json:"priority"`
	RetryCount int             `json:"retryCount"`
	MaxRetries int             `json:"maxRetries"`
	Timestamp  time.Time       `json:"timestamp"`
	Platform   Platform        `json:"platform"`
}

// CanRetry reports whether a failed execution may be re-enqueued.
func (op *SyncOperation) CanRetry() bool {
	return op.RetryCount < op.MaxRetries
}
