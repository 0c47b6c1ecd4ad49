package engine

import (
	"time"

	"github.com/llehouerou/undertow/internal/item"
	"github.com/llehouerou/undertow/internal/queue"
)

// StateChange is emitted when the transport state changes.
type StateChange struct {
	Previous State
	Current  State
}

// ItemChange is emitted when the engine moves to a different item,
// including the Loading entry for that item. Seek and pause never emit it.
type ItemChange struct {
	Previous *item.Item
	Current  *item.Item
}

// PositionChange is emitted on seeks and on position ticks while playing.
type PositionChange struct {
	Position time.Duration
}

// QueueChange is emitted when the upcoming list is recomputed or reordered.
type QueueChange struct {
	Upcoming []item.Item
}

// ModeChange is emitted when repeat or shuffle changes.
type ModeChange struct {
	Repeat  queue.RepeatMode
	Shuffle bool
}

// VolumeChange is emitted when the volume level changes.
type VolumeChange struct {
	Level float64
}

// ErrorEvent is emitted for recoverable playback errors (e.g. a missing
// asset that was skipped).
type ErrorEvent struct {
	Operation string
	Key       string // item content key if applicable
	Err       error
}
