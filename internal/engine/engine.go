// Package engine owns the transport state machine. All queue and
// transport mutations are serialized on one mutex; asset loading is the
// only operation that runs outside it, and its completion is re-checked
// against a generation token before being applied.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/undertow/internal/item"
	"github.com/llehouerou/undertow/internal/queue"
	"github.com/llehouerou/undertow/internal/renderer"
)

const defaultTickInterval = 250 * time.Millisecond

// Verify Engine implements Service at compile time.
var _ Service = (*Engine)(nil)

// loadTicket is one asset load request. Its generation is compared against
// the engine's latest before the completion is applied, so a slow load
// cannot clobber a state change that happened in the meantime.
type loadTicket struct {
	gen         uint64
	it          item.Item
	resumeAt    time.Duration
	startPaused bool
	countPlay   bool
}

// Engine drives the renderer according to user intents and queue state.
type Engine struct {
	mu sync.Mutex

	rend   renderer.Interface
	queue  *queue.Manager
	policy Policy
	log    zerolog.Logger

	state    State
	current  *item.Item
	position time.Duration
	repeat   queue.RepeatMode
	volume   float64
	rate     float64

	loadGen     uint64
	loading     bool
	pending     *loadTicket
	pauseOnLoad bool // Pause arrived while Loading
	failStreak  int  // consecutive assetMissing skips

	subs   []*Subscription
	subsMu sync.RWMutex

	tick   time.Duration
	done   chan struct{}
	closed bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithTickInterval overrides the position tick interval.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.tick = d
		}
	}
}

// WithQueueOptions passes options to the underlying queue manager.
func WithQueueOptions(opts ...queue.Option) Option {
	return func(e *Engine) { e.queue = queue.New(opts...) }
}

// New creates an engine around the given renderer and content policy and
// starts its tick and end-of-media watchers.
func New(rend renderer.Interface, policy Policy, opts ...Option) *Engine {
	e := &Engine{
		rend:   rend,
		policy: policy,
		log:    zerolog.Nop(),
		state:  StateIdle,
		volume: 1.0,
		rate:   1.0,
		tick:   defaultTickInterval,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.queue == nil {
		e.queue = queue.New()
	}
	go e.run()
	return e
}

func (e *Engine) run() {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()
	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			e.tickOnce()
		case <-e.rend.Finished():
			e.handleNaturalEnd()
		}
	}
}

// Start replaces the queue with items and begins loading the one at index.
func (e *Engine) Start(items []item.Item, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.queue.Start(items, index); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}
	e.failStreak = 0
	e.publishQueueLocked()
	e.startLoadLocked(*e.queue.Current(), 0, false, true)
	return nil
}

// Play resumes paused playback. Any other state is an invalid command and
// is ignored.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StatePaused:
		e.rend.Play()
		e.setStateLocked(StatePlaying)
	case StateLoading:
		e.pauseOnLoad = false
	default:
		e.invalidLocked("play")
	}
	return nil
}

// Pause pauses playback. Idempotent; ignored outside Playing/Loading.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StatePlaying:
		e.position = e.rend.Position()
		e.rend.Pause()
		e.setStateLocked(StatePaused)
	case StateLoading:
		e.pauseOnLoad = true
	case StatePaused:
		// Already paused.
	default:
		e.invalidLocked("pause")
	}
	return nil
}

// Toggle flips between Playing and Paused.
func (e *Engine) Toggle() error {
	e.mu.Lock()
	state := e.state
	e.mu.Unlock()

	switch state {
	case StatePlaying, StateLoading:
		return e.Pause()
	case StatePaused:
		return e.Play()
	default:
		e.mu.Lock()
		e.invalidLocked("toggle")
		e.mu.Unlock()
		return nil
	}
}

// SeekTo moves playback to an absolute position, clamped to the item
// duration. Valid while Playing or Paused.
func (e *Engine) SeekTo(position time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePlaying && e.state != StatePaused {
		e.invalidLocked("seek")
		return nil
	}

	position = max(position, 0)
	if d := e.rend.Duration(); d > 0 && position > d {
		position = d
	}
	if err := e.rend.SeekTo(position); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	e.position = position
	e.publishPositionLocked()
	return nil
}

// Seek moves playback by a relative delta.
func (e *Engine) Seek(delta time.Duration) error {
	e.mu.Lock()
	if e.state != StatePlaying && e.state != StatePaused {
		e.invalidLocked("seek")
		e.mu.Unlock()
		return nil
	}
	pos := e.positionLocked() + delta
	e.mu.Unlock()
	return e.SeekTo(pos)
}

// Next skips to the next item. Returns ErrQueueExhausted when nothing is
// left under the current repeat mode.
func (e *Engine) Next() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.IsActive() {
		e.invalidLocked("next")
		return nil
	}

	next := e.queue.Advance(e.repeat)
	if next == nil {
		e.endedLocked()
		return ErrQueueExhausted
	}
	e.publishQueueLocked()
	e.startLoadLocked(*next, 0, false, true)
	return nil
}

// Previous restarts the current item when past the threshold, otherwise
// moves back to the previously played item.
func (e *Engine) Previous() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.IsActive() {
		e.invalidLocked("previous")
		return nil
	}

	action, it := e.queue.Retreat(e.positionLocked())
	switch action {
	case queue.RetreatRestart:
		if e.state == StateLoading {
			return nil
		}
		if err := e.rend.SeekTo(0); err != nil {
			return fmt.Errorf("restart current: %w", err)
		}
		e.position = 0
		e.publishPositionLocked()
	case queue.RetreatPrevious:
		e.publishQueueLocked()
		e.startLoadLocked(*it, 0, false, true)
	}
	return nil
}

// Clear drops the queue and returns to Idle.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.loadGen++ // invalidate any in-flight load
	e.pending = nil
	e.rend.Stop()
	e.queue.Clear()
	prev := e.current
	e.current = nil
	e.position = 0
	e.setStateLocked(StateIdle)
	e.publishItemLocked(prev, nil)
	e.publishQueueLocked()
}

// MoveUpcoming reorders the upcoming list.
func (e *Engine) MoveUpcoming(from, to int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.queue.MoveUpcoming(from, to) {
		return false
	}
	e.publishQueueLocked()
	return true
}

// History returns the played items, oldest first.
func (e *Engine) History() []item.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.History()
}

// Upcoming returns the items queued to play, nearest first.
func (e *Engine) Upcoming() []item.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Upcoming()
}

// Baseline returns the original play order.
func (e *Engine) Baseline() []item.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Baseline()
}

// HasNext reports whether Next would yield an item.
func (e *Engine) HasNext() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.HasNext(e.repeat)
}

// HasPrevious reports whether history is non-empty.
func (e *Engine) HasPrevious() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.HasPrevious()
}

// QueueIsEmpty reports whether the queue holds nothing.
func (e *Engine) QueueIsEmpty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.IsEmpty()
}

// Shuffle returns whether shuffle is on.
func (e *Engine) Shuffle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Shuffle()
}

// SetShuffle toggles shuffle, regenerating the upcoming list.
func (e *Engine) SetShuffle(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue.SetShuffle(on)
	e.publishModeLocked()
	e.publishQueueLocked()
}

// ToggleShuffle flips shuffle and returns the new value.
func (e *Engine) ToggleShuffle() bool {
	e.mu.Lock()
	on := !e.queue.Shuffle()
	e.queue.SetShuffle(on)
	e.publishModeLocked()
	e.publishQueueLocked()
	e.mu.Unlock()
	return on
}

// RepeatMode returns the current repeat mode.
func (e *Engine) RepeatMode() queue.RepeatMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.repeat
}

// SetRepeatMode sets the repeat mode.
func (e *Engine) SetRepeatMode(mode queue.RepeatMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.repeat = mode
	e.publishModeLocked()
}

// CycleRepeatMode cycles Off → All → One and returns the new mode.
func (e *Engine) CycleRepeatMode() queue.RepeatMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.repeat {
	case queue.RepeatOff:
		e.repeat = queue.RepeatAll
	case queue.RepeatAll:
		e.repeat = queue.RepeatOne
	default:
		e.repeat = queue.RepeatOff
	}
	e.publishModeLocked()
	return e.repeat
}

// Status returns a transport snapshot.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		State:    e.state,
		Item:     e.currentCopyLocked(),
		Position: e.positionLocked(),
	}
}

// State returns the transport state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// IsPlaying reports whether the transport is in Playing.
func (e *Engine) IsPlaying() bool {
	return e.State() == StatePlaying
}

// CurrentItem returns a copy of the current item, or nil.
func (e *Engine) CurrentItem() *item.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentCopyLocked()
}

// Position returns the playback position.
func (e *Engine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

// Duration returns the duration of the current item, preferring what the
// renderer reports over the item metadata.
func (e *Engine) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d := e.rend.Duration(); d > 0 {
		return d
	}
	if e.current != nil {
		return e.current.Duration
	}
	return 0
}

// Volume returns the volume level (0.0 to 1.0).
func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// SetVolume sets the volume level, clamped to 0.0..1.0.
func (e *Engine) SetVolume(level float64) {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = level
	e.rend.SetVolume(level)
	e.publishLocked(func(s *Subscription) { s.sendVolume(VolumeChange{Level: level}) })
}

// Rate returns the playback rate.
func (e *Engine) Rate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate
}

// SetRate sets the playback rate if the content policy allows it.
func (e *Engine) SetRate(rate float64) error {
	if !e.policy.AllowsRateControl() {
		return ErrRateNotSupported
	}
	if rate <= 0 {
		return fmt.Errorf("invalid rate %.2f", rate)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rate = rate
	e.rend.SetRate(rate)
	return nil
}

// RestoreSession rebuilds the queue from a restored snapshot and loads the
// current item paused at the saved position. Restored loads never count as
// plays; resuming after a relaunch is always an explicit user action.
func (e *Engine) RestoreSession(rs RestoredState) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return fmt.Errorf("cannot restore session in state %s", e.state)
	}

	cur := rs.Current
	e.queue.Restore(rs.History, &cur, rs.Upcoming, rs.Shuffle)
	e.repeat = rs.Repeat
	if rs.Volume != nil {
		e.volume = min(max(*rs.Volume, 0), 1.0)
		e.rend.SetVolume(e.volume)
	}
	e.publishModeLocked()
	e.publishQueueLocked()
	e.startLoadLocked(cur, rs.Position, true, false)
	return nil
}

// Subscribe creates a new event subscription.
func (e *Engine) Subscribe() *Subscription {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	sub := newSubscription()
	e.subs = append(e.subs, sub)
	return sub
}

// Close shuts down the engine and stops the renderer.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.loadGen++
	e.pending = nil
	close(e.done)
	e.mu.Unlock()

	e.rend.Stop()

	e.subsMu.Lock()
	for _, sub := range e.subs {
		sub.close()
	}
	e.subs = nil
	e.subsMu.Unlock()
	return nil
}

// --- internals, all called with e.mu held unless noted ---

// startLoadLocked enters Loading for it and dispatches the asset load.
// Only one renderer load runs at a time; a newer request issued while one
// is in flight supersedes it.
func (e *Engine) startLoadLocked(it item.Item, resumeAt time.Duration, startPaused, countPlay bool) {
	prevItem := e.current
	cur := it
	e.current = &cur
	e.position = resumeAt
	e.pauseOnLoad = false
	e.setStateLocked(StateLoading)
	e.publishItemLocked(prevItem, &cur)

	e.loadGen++
	ticket := loadTicket{
		gen:         e.loadGen,
		it:          it,
		resumeAt:    resumeAt,
		startPaused: startPaused,
		countPlay:   countPlay,
	}
	if e.loading {
		e.pending = &ticket
		return
	}
	e.loading = true
	go e.runLoad(ticket)
}

// runLoad performs one renderer load outside the lock and applies the
// result if it is still the latest request.
func (e *Engine) runLoad(t loadTicket) {
	err := e.rend.Load(t.it.Source)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.loading = false
	if e.pending != nil {
		next := *e.pending
		e.pending = nil
		e.loading = true
		go e.runLoad(next)
	}
	if t.gen != e.loadGen || e.closed {
		e.log.Debug().Str("key", t.it.Key()).Msg("discarding stale load completion")
		return
	}

	if err != nil {
		e.handleLoadFailureLocked(t, err)
		return
	}

	e.failStreak = 0
	if t.resumeAt > 0 {
		if seekErr := e.rend.SeekTo(t.resumeAt); seekErr != nil {
			e.log.Warn().Err(seekErr).Msg("failed to restore position")
			e.position = 0
		}
	}
	e.rend.SetVolume(e.volume)
	e.rend.SetRate(e.rate)

	// Counted per successful load, even if the item comes up paused.
	if t.countPlay {
		e.policy.ItemStarted(t.it)
	}

	if t.startPaused || e.pauseOnLoad {
		e.setStateLocked(StatePaused)
		return
	}

	e.rend.Play()
	e.setStateLocked(StatePlaying)
}

// handleLoadFailureLocked treats any load error as a missing asset and
// auto-advances, ending playback once every queued item has failed in a
// row.
func (e *Engine) handleLoadFailureLocked(t loadTicket, err error) {
	e.log.Warn().Err(err).Str("key", t.it.Key()).Msg("asset unavailable, skipping")
	e.publishLocked(func(s *Subscription) {
		s.sendError(ErrorEvent{Operation: "load", Key: t.it.Key(), Err: err})
	})

	e.failStreak++
	if e.failStreak >= len(e.queue.Baseline()) && e.failStreak > 0 {
		e.endedLocked()
		return
	}

	next := e.queue.Advance(e.repeat)
	if next == nil {
		e.endedLocked()
		return
	}
	e.publishQueueLocked()
	e.startLoadLocked(*next, 0, t.startPaused, t.countPlay)
}

// handleNaturalEnd runs on the engine goroutine when the renderer reports
// end of media.
func (e *Engine) handleNaturalEnd() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePlaying || e.current == nil {
		return // stale signal from a superseded item
	}

	if e.repeat == queue.RepeatOne {
		e.startLoadLocked(*e.current, 0, false, true)
		return
	}

	next := e.queue.Advance(e.repeat)
	if next == nil {
		e.endedLocked()
		return
	}
	e.publishQueueLocked()
	e.startLoadLocked(*next, 0, false, true)
}

func (e *Engine) endedLocked() {
	e.rend.Stop()
	prev := e.current
	e.current = nil
	e.position = 0
	e.setStateLocked(StateEnded)
	e.publishItemLocked(prev, nil)
}

func (e *Engine) tickOnce() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePlaying {
		return
	}
	e.position = e.rend.Position()
	e.publishPositionLocked()
}

func (e *Engine) setStateLocked(s State) {
	if e.state == s {
		return
	}
	prev := e.state
	e.state = s
	e.publishLocked(func(sub *Subscription) {
		sub.sendState(StateChange{Previous: prev, Current: s})
	})
}

func (e *Engine) invalidLocked(op string) {
	e.log.Debug().Str("op", op).Str("state", e.state.String()).Msg("ignoring invalid command")
}

func (e *Engine) positionLocked() time.Duration {
	if e.state == StatePlaying {
		return e.rend.Position()
	}
	return e.position
}

func (e *Engine) currentCopyLocked() *item.Item {
	if e.current == nil {
		return nil
	}
	cur := *e.current
	return &cur
}

func (e *Engine) publishLocked(send func(*Subscription)) {
	e.subsMu.RLock()
	defer e.subsMu.RUnlock()
	for _, sub := range e.subs {
		send(sub)
	}
}

func (e *Engine) publishItemLocked(prev, cur *item.Item) {
	e.publishLocked(func(s *Subscription) {
		s.sendItem(ItemChange{Previous: prev, Current: cur})
	})
}

func (e *Engine) publishPositionLocked() {
	pos := e.position
	e.publishLocked(func(s *Subscription) {
		s.sendPosition(PositionChange{Position: pos})
	})
}

func (e *Engine) publishQueueLocked() {
	upcoming := e.queue.Upcoming()
	e.publishLocked(func(s *Subscription) {
		s.sendQueue(QueueChange{Upcoming: upcoming})
	})
}

func (e *Engine) publishModeLocked() {
	ev := ModeChange{Repeat: e.repeat, Shuffle: e.queue.Shuffle()}
	e.publishLocked(func(s *Subscription) {
		s.sendMode(ev)
	})
}
