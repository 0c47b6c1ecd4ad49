package renderer

import (
	"sync"
	"time"

	"github.com/llehouerou/undertow/internal/item"
)

// Mock is a test double for the renderer.
type Mock struct {
	mu sync.Mutex

	loaded     *item.Locator
	playing    bool
	position   time.Duration
	duration   time.Duration
	level      float64
	rate       float64
	loadErrs   map[string]error
	loadCalls  []string
	seekCalls  []time.Duration
	gate       chan struct{} // when non-nil, Load blocks on it
	finishedCh chan struct{}
}

// NewMock creates a new mock renderer for testing.
func NewMock() *Mock {
	return &Mock{
		level:      1.0,
		rate:       1.0,
		loadErrs:   make(map[string]error),
		finishedCh: make(chan struct{}, 1),
	}
}

func (m *Mock) Load(src item.Locator) error {
	m.mu.Lock()
	gate := m.gate
	m.loadCalls = append(m.loadCalls, src.Key())
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadErrs[src.Key()]; err != nil {
		return err
	}
	loc := src
	m.loaded = &loc
	m.playing = false
	m.position = 0
	return nil
}

func (m *Mock) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded != nil {
		m.playing = true
	}
}

func (m *Mock) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
}

func (m *Mock) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = nil
	m.playing = false
	m.position = 0
}

func (m *Mock) SeekTo(position time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekCalls = append(m.seekCalls, position)
	m.position = position
	return nil
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) SetVolume(level float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = level
}

func (m *Mock) SetRate(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = rate
}

func (m *Mock) Finished() <-chan struct{} {
	return m.finishedCh
}

func (m *Mock) Close() error {
	m.Stop()
	return nil
}

// Test helpers

// SetLoadError makes Load fail for the given content key.
func (m *Mock) SetLoadError(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErrs[key] = err
}

// GateLoads makes every subsequent Load block until ReleaseLoad is called.
func (m *Mock) GateLoads() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = make(chan struct{})
}

// ReleaseLoad unblocks one gated Load call.
func (m *Mock) ReleaseLoad() {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		gate <- struct{}{}
	}
}

// UngateLoads releases the gate entirely.
func (m *Mock) UngateLoads() {
	m.mu.Lock()
	gate := m.gate
	m.gate = nil
	m.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

// SimulateFinished signals end of media.
func (m *Mock) SimulateFinished() {
	select {
	case m.finishedCh <- struct{}{}:
	default:
	}
}

// SetDuration sets the reported media duration.
func (m *Mock) SetDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
}

// SetPosition sets the reported playback position.
func (m *Mock) SetPosition(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = d
}

// IsPlaying reports whether the mock is playing.
func (m *Mock) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// Loaded returns the currently loaded locator, or nil.
func (m *Mock) Loaded() *item.Locator {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// LoadCalls returns the keys passed to Load, in order.
func (m *Mock) LoadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.loadCalls))
	copy(out, m.loadCalls)
	return out
}

// SeekCalls returns the positions passed to SeekTo, in order.
func (m *Mock) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.seekCalls))
	copy(out, m.seekCalls)
	return out
}

// Volume returns the last volume level set.
func (m *Mock) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Rate returns the last playback rate set.
func (m *Mock) Rate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate
}

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
