// Package store tracks conversion job status. The Redis implementation is
// used when a REDIS_URL is configured so status survives restarts and is
// visible across replicas; the in-memory implementation covers single-node
// and test setups.
package store

import (
	"context"
	"time"
)

// Job states.
const (
	StateQueued    = "queued"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Status is one conversion job's progress snapshot.
type Status struct {
	State     string                 `json:"state"`
	Progress  int                    `json:"progress"` // percent, 0-100
	Message   string                 `json:"message,omitempty"`
	Pages     int                    `json:"pages,omitempty"`
	PagesDone int                    `json:"pages_done,omitempty"`
	Package   string                 `json:"package,omitempty"` // result path or object key
	Error     string                 `json:"error,omitempty"`
	Start     *time.Time             `json:"start_time,omitempty"`
	End       *time.Time             `json:"end_time,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// StatusStore persists job status snapshots.
type StatusStore interface {
	Set(ctx context.Context, jobID string, st Status) error
	Get(ctx context.Context, jobID string) (Status, bool, error)
	Close() error
}
