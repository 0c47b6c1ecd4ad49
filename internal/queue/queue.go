// Package queue owns the play order: history, current item, upcoming items
// and the baseline sequence they are all derived from.
package queue

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/llehouerou/undertow/internal/item"
)

// RepeatMode defines the repeat behavior.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

// String returns the repeat mode name.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "Off"
	case RepeatAll:
		return "All"
	case RepeatOne:
		return "One"
	default:
		return "Unknown"
	}
}

// RetreatAction is the decision returned by Retreat.
type RetreatAction int

const (
	// RetreatRestart means restart the current item from position zero.
	RetreatRestart RetreatAction = iota
	// RetreatPrevious means playback moved back to the previous item.
	RetreatPrevious
)

// DefaultPreviousThreshold is the position past which "previous" restarts
// the current item instead of jumping back.
const DefaultPreviousThreshold = 3 * time.Second

// ErrEmptyStart is returned when Start is called with no items or an
// out-of-range index.
var ErrEmptyStart = errors.New("cannot start queue: no items or invalid index")

// Manager owns the queue. Not safe for concurrent use; the engine
// serializes all access.
type Manager struct {
	baseline []item.Item
	history  []item.Item
	current  *item.Item
	upcoming []item.Item

	shuffle       bool
	prevThreshold time.Duration
	rnd           *rand.Rand
}

// Option configures a Manager.
type Option func(*Manager)

// WithRand sets the random source used for shuffling. Tests inject a
// seeded source for deterministic orderings.
func WithRand(rnd *rand.Rand) Option {
	return func(m *Manager) { m.rnd = rnd }
}

// WithPreviousThreshold overrides the restart-vs-previous threshold.
func WithPreviousThreshold(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.prevThreshold = d
		}
	}
}

// New creates an empty queue manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		prevThreshold: DefaultPreviousThreshold,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rnd == nil {
		m.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return m
}

// Start replaces the queue with items, playing from index. The given order
// becomes the baseline. If shuffle is already on, upcoming is reshuffled
// immediately.
func (m *Manager) Start(items []item.Item, index int) error {
	if len(items) == 0 || index < 0 || index >= len(items) {
		return ErrEmptyStart
	}

	m.baseline = copyItems(items)
	m.history = copyItems(items[:index])
	cur := items[index]
	m.current = &cur
	m.upcoming = copyItems(items[index+1:])

	if m.shuffle {
		m.upcoming = shufflePool(m.baseline, playedSet(m.history, m.current), m.rnd)
	}
	return nil
}

// Advance moves to the next item: the current item goes to history and the
// head of upcoming becomes current. With upcoming empty and RepeatAll, the
// queue restarts from the head of the baseline under the current shuffle
// state. Returns nil when the queue is exhausted; the queue is then
// terminal (no current item).
//
// Callers must not Advance an empty queue. RepeatOne never reaches here;
// the engine restarts the current item itself.
func (m *Manager) Advance(repeat RepeatMode) *item.Item {
	if m.current == nil {
		return nil
	}

	if len(m.upcoming) == 0 {
		m.history = append(m.history, *m.current)
		m.current = nil

		if repeat != RepeatAll || len(m.baseline) == 0 {
			return nil
		}

		// Fresh cycle from the top of the baseline.
		m.history = nil
		cur := m.baseline[0]
		m.current = &cur
		if m.shuffle {
			m.upcoming = shufflePool(m.baseline, playedSet(nil, m.current), m.rnd)
		} else {
			m.upcoming = copyItems(m.baseline[1:])
		}
		return m.currentCopy()
	}

	m.history = append(m.history, *m.current)
	next := m.upcoming[0]
	m.upcoming = m.upcoming[1:]
	m.current = &next
	return m.currentCopy()
}

// Retreat handles a "previous" request at the given playback position.
// Past the threshold it means "back to the start of the current item";
// before it, the last history item becomes current again, the old current
// moving to the front of upcoming. With empty history it always restarts.
func (m *Manager) Retreat(position time.Duration) (RetreatAction, *item.Item) {
	if m.current == nil {
		return RetreatRestart, nil
	}
	if position > m.prevThreshold || len(m.history) == 0 {
		return RetreatRestart, m.currentCopy()
	}

	prev := m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	m.upcoming = append([]item.Item{*m.current}, m.upcoming...)
	m.current = &prev
	return RetreatPrevious, m.currentCopy()
}

// SetShuffle toggles shuffle and regenerates upcoming from the baseline.
// Turning shuffle on yields a random permutation of the unplayed baseline
// items; turning it off yields the baseline suffix after the current item,
// minus anything already played. Manual reordering of upcoming does not
// survive these recomputations since the baseline is the source of truth.
func (m *Manager) SetShuffle(on bool) {
	if on == m.shuffle {
		return
	}
	m.shuffle = on
	if m.current == nil {
		return
	}

	played := playedSet(m.history, m.current)
	if on {
		m.upcoming = shufflePool(m.baseline, played, m.rnd)
	} else {
		m.upcoming = orderedRemainder(m.baseline, m.current, played)
	}
}

// Shuffle returns whether shuffle is on.
func (m *Manager) Shuffle() bool {
	return m.shuffle
}

// MoveUpcoming moves the upcoming entry at from to position to. The
// baseline is untouched, so a later shuffle-off recompute discards the
// manual order. Returns false if either index is out of range.
func (m *Manager) MoveUpcoming(from, to int) bool {
	if from < 0 || from >= len(m.upcoming) || to < 0 || to >= len(m.upcoming) {
		return false
	}
	if from == to {
		return true
	}
	it := m.upcoming[from]
	m.upcoming = append(m.upcoming[:from], m.upcoming[from+1:]...)
	m.upcoming = append(m.upcoming[:to], append([]item.Item{it}, m.upcoming[to:]...)...)
	return true
}

// Clear drops the whole queue.
func (m *Manager) Clear() {
	m.baseline = nil
	m.history = nil
	m.current = nil
	m.upcoming = nil
}

// Restore rebuilds the queue from persisted state. The baseline is
// reconstructed as history + current + upcoming: the original pre-shuffle
// order is not persisted, and this preserves the multiset invariant.
func (m *Manager) Restore(history []item.Item, current *item.Item, upcoming []item.Item, shuffle bool) {
	m.history = copyItems(history)
	m.upcoming = copyItems(upcoming)
	m.current = nil
	if current != nil {
		cur := *current
		m.current = &cur
	}
	m.shuffle = shuffle

	m.baseline = make([]item.Item, 0, len(history)+1+len(upcoming))
	m.baseline = append(m.baseline, m.history...)
	if m.current != nil {
		m.baseline = append(m.baseline, *m.current)
	}
	m.baseline = append(m.baseline, m.upcoming...)
}

// Current returns a copy of the current item, or nil.
func (m *Manager) Current() *item.Item {
	return m.currentCopy()
}

// History returns a copy of the played items, oldest first.
func (m *Manager) History() []item.Item {
	return copyItems(m.history)
}

// Upcoming returns a copy of the items queued to play, nearest first.
func (m *Manager) Upcoming() []item.Item {
	return copyItems(m.upcoming)
}

// Baseline returns a copy of the original play order.
func (m *Manager) Baseline() []item.Item {
	return copyItems(m.baseline)
}

// HasNext returns true if Advance would yield an item under the given
// repeat mode.
func (m *Manager) HasNext(repeat RepeatMode) bool {
	if m.current == nil {
		return false
	}
	// RepeatOne only loops the natural end; an explicit skip past the
	// last item still exhausts the queue.
	return len(m.upcoming) > 0 || repeat == RepeatAll
}

// HasPrevious returns true if history is non-empty.
func (m *Manager) HasPrevious() bool {
	return len(m.history) > 0
}

// IsEmpty returns true if the queue holds nothing at all.
func (m *Manager) IsEmpty() bool {
	return m.current == nil && len(m.history) == 0 && len(m.upcoming) == 0
}

func (m *Manager) currentCopy() *item.Item {
	if m.current == nil {
		return nil
	}
	cur := *m.current
	return &cur
}

func copyItems(items []item.Item) []item.Item {
	if len(items) == 0 {
		return nil
	}
	out := make([]item.Item, len(items))
	copy(out, items)
	return out
}
