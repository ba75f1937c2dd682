package apphistory

import (
	"errors"

	"github.com/easypluginz/apphistory/internal/shardqueue"
	"github.com/easypluginz/apphistory/internal/types"
)

// ErrBackPressure is returned when the background reload queue is full.
var ErrBackPressure = errors.New("back-pressure (queue full)")

// Executor sentinels re-exported so callers can tune back-pressure
// handling without importing internal packages.
var (
	ErrExecutorClosed = shardqueue.ErrExecutorClosed
	ErrQueueFull      = shardqueue.ErrQueueFull
)

// IsBackPressure reports whether err signals a full reload queue.
func IsBackPressure(err error) bool {
	return errors.Is(err, ErrBackPressure) || errors.Is(err, shardqueue.ErrQueueFull)
}

// ErrNotLoaded is returned by mutations before LoadHistory has populated
// the client's parent context.
var ErrNotLoaded = errors.New("history not loaded: call LoadHistory first")

// Re-export the shared SDK error so callers compare against one symbol.
var ErrNotFound = types.ErrNotFound
