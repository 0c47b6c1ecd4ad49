package engine

import (
	"errors"
	"time"

	"github.com/llehouerou/undertow/internal/item"
	"github.com/llehouerou/undertow/internal/queue"
)

// ErrQueueExhausted is returned when there is nothing left to play under
// the current repeat mode. It is the only playback condition surfaced to
// callers; missing assets are skipped internally.
var ErrQueueExhausted = errors.New("queue exhausted")

// ErrRateNotSupported is returned when the content policy does not allow
// playback rate changes.
var ErrRateNotSupported = errors.New("playback rate control not supported")

// Status is a snapshot of the transport.
type Status struct {
	State    State
	Item     *item.Item
	Position time.Duration
}

// RestoredState is the input to RestoreSession, produced by the session
// package from a persisted snapshot.
type RestoredState struct {
	History  []item.Item
	Current  item.Item
	Upcoming []item.Item
	Position time.Duration
	Shuffle  bool
	Repeat   queue.RepeatMode
	Volume   *float64 // nil keeps the engine's current level; 0 is muted
}

// Service defines the playback engine contract.
type Service interface {
	// Transport
	Start(items []item.Item, index int) error
	Play() error
	Pause() error
	Toggle() error
	Next() error
	Previous() error
	Seek(delta time.Duration) error
	SeekTo(position time.Duration) error
	Clear()

	// Queue
	MoveUpcoming(from, to int) bool
	History() []item.Item
	Upcoming() []item.Item
	Baseline() []item.Item
	HasNext() bool
	HasPrevious() bool
	QueueIsEmpty() bool

	// Modes
	Shuffle() bool
	SetShuffle(on bool)
	ToggleShuffle() bool
	RepeatMode() queue.RepeatMode
	SetRepeatMode(mode queue.RepeatMode)
	CycleRepeatMode() queue.RepeatMode

	// State queries
	Status() Status
	State() State
	IsPlaying() bool
	CurrentItem() *item.Item
	Position() time.Duration
	Duration() time.Duration

	// Volume and rate
	Volume() float64
	SetVolume(level float64)
	Rate() float64
	SetRate(rate float64) error

	// Session
	RestoreSession(rs RestoredState) error

	// Events
	Subscribe() *Subscription

	// Lifecycle
	Close() error
}
