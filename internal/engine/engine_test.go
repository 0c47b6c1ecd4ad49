package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/undertow/internal/item"
	"github.com/llehouerou/undertow/internal/queue"
	"github.com/llehouerou/undertow/internal/renderer"
)

// countingPolicy records ItemStarted calls.
type countingPolicy struct {
	mu      sync.Mutex
	rate    bool
	started []string
}

func (p *countingPolicy) Name() string            { return "test" }
func (p *countingPolicy) AllowsRateControl() bool { return p.rate }

func (p *countingPolicy) ItemStarted(it item.Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, it.Key())
}

func (p *countingPolicy) Started() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.started))
	copy(out, p.started)
	return out
}

func testItems(titles ...string) []item.Item {
	items := make([]item.Item, len(titles))
	for i, title := range titles {
		items[i] = item.Local("/music/"+title+".mp3", title, "Artist", "Album", 3*time.Minute)
	}
	return items
}

func newTestEngine(t *testing.T) (*Engine, *renderer.Mock, *countingPolicy) {
	t.Helper()
	mock := renderer.NewMock()
	policy := &countingPolicy{}
	e := New(mock, policy, WithTickInterval(5*time.Millisecond))
	t.Cleanup(func() { _ = e.Close() })
	return e, mock, policy
}

func waitState(t *testing.T, e *Engine, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return e.State() == want },
		time.Second, 2*time.Millisecond, "waiting for state %s, still %s", want, e.State())
}

func TestStart_LoadsAndPlays(t *testing.T) {
	e, mock, policy := newTestEngine(t)

	require.NoError(t, e.Start(testItems("a", "b"), 0))
	waitState(t, e, StatePlaying)

	require.NotNil(t, e.CurrentItem())
	assert.Equal(t, "a", e.CurrentItem().Title)
	assert.True(t, mock.IsPlaying())
	assert.Equal(t, []string{"/music/a.mp3"}, policy.Started())
}

func TestStart_InvalidIndex(t *testing.T) {
	e, _, _ := newTestEngine(t)

	assert.Error(t, e.Start(testItems("a"), 3))
	assert.Equal(t, StateIdle, e.State())
}

func TestPauseResume(t *testing.T) {
	e, mock, policy := newTestEngine(t)
	require.NoError(t, e.Start(testItems("a"), 0))
	waitState(t, e, StatePlaying)

	require.NoError(t, e.Pause())
	assert.Equal(t, StatePaused, e.State())
	assert.False(t, mock.IsPlaying())

	require.NoError(t, e.Play())
	assert.Equal(t, StatePlaying, e.State())
	assert.True(t, mock.IsPlaying())

	// Pausing and resuming does not count extra plays.
	assert.Len(t, policy.Started(), 1)
}

func TestToggle(t *testing.T) {
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.Start(testItems("a"), 0))
	waitState(t, e, StatePlaying)

	require.NoError(t, e.Toggle())
	assert.Equal(t, StatePaused, e.State())
	require.NoError(t, e.Toggle())
	assert.Equal(t, StatePlaying, e.State())
}

func TestSeek_InvalidWhenIdle(t *testing.T) {
	e, mock, _ := newTestEngine(t)

	require.NoError(t, e.SeekTo(10*time.Second))

	assert.Empty(t, mock.SeekCalls(), "seek on Idle must be ignored")
}

func TestSeekTo_Clamps(t *testing.T) {
	e, mock, _ := newTestEngine(t)
	mock.SetDuration(1 * time.Minute)
	require.NoError(t, e.Start(testItems("a"), 0))
	waitState(t, e, StatePlaying)

	require.NoError(t, e.SeekTo(5*time.Minute))

	calls := mock.SeekCalls()
	require.NotEmpty(t, calls)
	assert.Equal(t, 1*time.Minute, calls[len(calls)-1])
}

func TestNext_AdvancesQueue(t *testing.T) {
	e, _, policy := newTestEngine(t)
	require.NoError(t, e.Start(testItems("a", "b", "c"), 0))
	waitState(t, e, StatePlaying)

	require.NoError(t, e.Next())
	waitState(t, e, StatePlaying)

	assert.Equal(t, "b", e.CurrentItem().Title)
	assert.Equal(t, []string{"/music/a.mp3", "/music/b.mp3"}, policy.Started())
}

func TestNext_Exhausted_Ends(t *testing.T) {
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.Start(testItems("a"), 0))
	waitState(t, e, StatePlaying)

	err := e.Next()

	assert.ErrorIs(t, err, ErrQueueExhausted)
	assert.Equal(t, StateEnded, e.State())
	assert.Nil(t, e.CurrentItem())
}

func TestPrevious_PastThreshold_RestartsCurrent(t *testing.T) {
	e, mock, _ := newTestEngine(t)
	require.NoError(t, e.Start(testItems("a", "b"), 1))
	waitState(t, e, StatePlaying)
	mock.SetPosition(10 * time.Second)

	require.NoError(t, e.Previous())

	assert.Equal(t, "b", e.CurrentItem().Title)
	calls := mock.SeekCalls()
	require.NotEmpty(t, calls)
	assert.Equal(t, time.Duration(0), calls[len(calls)-1])
}

func TestPrevious_WithinThreshold_PopsHistory(t *testing.T) {
	e, mock, _ := newTestEngine(t)
	require.NoError(t, e.Start(testItems("a", "b"), 1))
	waitState(t, e, StatePlaying)
	mock.SetPosition(1 * time.Second)

	require.NoError(t, e.Previous())
	waitState(t, e, StatePlaying)

	assert.Equal(t, "a", e.CurrentItem().Title)
}

func TestAssetMissing_AutoSkips(t *testing.T) {
	e, mock, policy := newTestEngine(t)
	mock.SetLoadError("/music/a.mp3", renderer.ErrAssetMissing)

	require.NoError(t, e.Start(testItems("a", "b"), 0))
	waitState(t, e, StatePlaying)

	assert.Equal(t, "b", e.CurrentItem().Title)
	// The broken item never counts as played.
	assert.Equal(t, []string{"/music/b.mp3"}, policy.Started())
}

func TestAssetMissing_AllBroken_Ends(t *testing.T) {
	e, mock, _ := newTestEngine(t)
	mock.SetLoadError("/music/a.mp3", renderer.ErrAssetMissing)
	mock.SetLoadError("/music/b.mp3", renderer.ErrAssetMissing)

	require.NoError(t, e.Start(testItems("a", "b"), 0))
	waitState(t, e, StateEnded)

	assert.Nil(t, e.CurrentItem())
}

func TestNaturalEnd_AdvancesToNext(t *testing.T) {
	e, mock, _ := newTestEngine(t)
	require.NoError(t, e.Start(testItems("a", "b"), 0))
	waitState(t, e, StatePlaying)

	mock.SimulateFinished()
	require.Eventually(t, func() bool {
		cur := e.CurrentItem()
		return cur != nil && cur.Title == "b" && e.State() == StatePlaying
	}, time.Second, 2*time.Millisecond)
}

func TestNaturalEnd_RepeatOne_RestartsSameItem(t *testing.T) {
	e, _, policy := newTestEngine(t)
	require.NoError(t, e.Start(testItems("a", "b"), 0))
	waitState(t, e, StatePlaying)
	e.SetRepeatMode(queue.RepeatOne)

	mockOf(e).SimulateFinished()
	require.Eventually(t, func() bool {
		return len(policy.Started()) == 2 && e.State() == StatePlaying
	}, time.Second, 2*time.Millisecond)

	assert.Equal(t, "a", e.CurrentItem().Title)
	assert.Equal(t, []string{"/music/a.mp3", "/music/a.mp3"}, policy.Started())
	// Upcoming untouched by repeat-one.
	require.Len(t, e.Upcoming(), 1)
	assert.Equal(t, "b", e.Upcoming()[0].Title)
}

func TestNaturalEnd_LastItem_Ends(t *testing.T) {
	e, mock, _ := newTestEngine(t)
	require.NoError(t, e.Start(testItems("a"), 0))
	waitState(t, e, StatePlaying)

	mock.SimulateFinished()
	waitState(t, e, StateEnded)
}

func TestNaturalEnd_RepeatAll_Cycles(t *testing.T) {
	e, mock, _ := newTestEngine(t)
	require.NoError(t, e.Start(testItems("a", "b"), 1))
	waitState(t, e, StatePlaying)
	e.SetRepeatMode(queue.RepeatAll)

	mock.SimulateFinished()
	require.Eventually(t, func() bool {
		cur := e.CurrentItem()
		return cur != nil && cur.Title == "a" && e.State() == StatePlaying
	}, time.Second, 2*time.Millisecond)
}

func TestStaleLoad_Discarded(t *testing.T) {
	e, mock, policy := newTestEngine(t)
	mock.GateLoads()

	require.NoError(t, e.Start(testItems("a", "b"), 0))
	assert.Equal(t, StateLoading, e.State())

	// Skip while the first load is still in flight.
	require.NoError(t, e.Next())

	mock.ReleaseLoad() // completes the load for a; result must be discarded
	mock.ReleaseLoad() // completes the load for b
	waitState(t, e, StatePlaying)

	assert.Equal(t, "b", e.CurrentItem().Title)
	assert.Equal(t, []string{"/music/a.mp3", "/music/b.mp3"}, mock.LoadCalls())
	// Only the item that actually started counts as played.
	assert.Equal(t, []string{"/music/b.mp3"}, policy.Started())
}

func TestPauseDuringLoading_EntersPaused(t *testing.T) {
	e, mock, _ := newTestEngine(t)
	mock.GateLoads()

	require.NoError(t, e.Start(testItems("a"), 0))
	require.NoError(t, e.Pause())
	mock.ReleaseLoad()

	waitState(t, e, StatePaused)
	assert.False(t, mock.IsPlaying())
}

func TestPauseDuringLoading_StillCountsPlay(t *testing.T) {
	e, mock, policy := newTestEngine(t)
	mock.GateLoads()

	require.NoError(t, e.Start(testItems("a"), 0))
	require.NoError(t, e.Pause())
	mock.ReleaseLoad()
	waitState(t, e, StatePaused)

	// The load succeeded, so the item counts even though it came up
	// paused. Resuming must not count it a second time.
	assert.Equal(t, []string{"/music/a.mp3"}, policy.Started())

	require.NoError(t, e.Play())
	waitState(t, e, StatePlaying)
	assert.Equal(t, []string{"/music/a.mp3"}, policy.Started())
}

func TestClear_ReturnsToIdle(t *testing.T) {
	e, mock, _ := newTestEngine(t)
	require.NoError(t, e.Start(testItems("a", "b"), 0))
	waitState(t, e, StatePlaying)

	e.Clear()

	assert.Equal(t, StateIdle, e.State())
	assert.Nil(t, e.CurrentItem())
	assert.True(t, e.QueueIsEmpty())
	assert.Nil(t, mock.Loaded())
}

func TestRestoreSession_PausedAtPosition(t *testing.T) {
	e, mock, policy := newTestEngine(t)
	items := testItems("a", "b", "c")

	err := e.RestoreSession(RestoredState{
		History:  items[:1],
		Current:  items[1],
		Upcoming: items[2:],
		Position: 42 * time.Second,
		Shuffle:  false,
		Repeat:   queue.RepeatAll,
		Volume:   lo.ToPtr(0.5),
	})
	require.NoError(t, err)
	waitState(t, e, StatePaused)

	assert.Equal(t, "b", e.CurrentItem().Title)
	assert.Equal(t, 42*time.Second, e.Position())
	assert.Equal(t, queue.RepeatAll, e.RepeatMode())
	assert.InDelta(t, 0.5, e.Volume(), 0.001)
	assert.InDelta(t, 0.5, mock.Volume(), 0.001)
	// A restored load never counts as a play.
	assert.Empty(t, policy.Started())
}

func TestRestoreSession_MutedVolumeSurvives(t *testing.T) {
	e, mock, _ := newTestEngine(t)
	items := testItems("a")

	err := e.RestoreSession(RestoredState{
		Current: items[0],
		Volume:  lo.ToPtr(0.0),
	})
	require.NoError(t, err)
	waitState(t, e, StatePaused)

	// A session saved muted comes back muted, not at the default level.
	assert.Zero(t, e.Volume())
	assert.Zero(t, mock.Volume())
}

func TestRestoreSession_RejectedWhenActive(t *testing.T) {
	e, _, _ := newTestEngine(t)
	items := testItems("a", "b")
	require.NoError(t, e.Start(items, 0))
	waitState(t, e, StatePlaying)

	err := e.RestoreSession(RestoredState{Current: items[1]})

	assert.Error(t, err)
}

func TestSetRate_GatedByPolicy(t *testing.T) {
	mock := renderer.NewMock()
	tracks := New(mock, &countingPolicy{rate: false})
	defer tracks.Close()

	assert.ErrorIs(t, tracks.SetRate(1.5), ErrRateNotSupported)

	episodes := New(renderer.NewMock(), &countingPolicy{rate: true})
	defer episodes.Close()

	require.NoError(t, episodes.SetRate(1.5))
	assert.InDelta(t, 1.5, episodes.Rate(), 0.001)
}

func TestSingleCurrent_LoadingBetweenItems(t *testing.T) {
	e, _, _ := newTestEngine(t)
	sub := e.Subscribe()

	require.NoError(t, e.Start(testItems("a", "b"), 0))
	waitState(t, e, StatePlaying)
	require.NoError(t, e.Next())
	waitState(t, e, StatePlaying)

	// Every observed state sequence passes through Loading between two
	// different non-idle items.
	var states []State
	for {
		select {
		case ev := <-sub.StateChanged:
			states = append(states, ev.Current)
			continue
		default:
		}
		break
	}
	require.NotEmpty(t, states)
	for i, s := range states {
		if s == StatePlaying && i > 0 {
			assert.Equal(t, StateLoading, states[i-1],
				"Playing must be entered from Loading, got %v", states)
		}
	}
}

func TestPositionTicks_Published(t *testing.T) {
	e, mock, _ := newTestEngine(t)
	sub := e.Subscribe()
	require.NoError(t, e.Start(testItems("a"), 0))
	waitState(t, e, StatePlaying)
	mock.SetPosition(3 * time.Second)

	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-sub.PositionChanged:
			if ev.Position == 3*time.Second {
				return
			}
		case <-deadline:
			t.Fatal("no position tick with the new position published")
		}
	}
}

func TestVolume_ClampedAndForwarded(t *testing.T) {
	e, mock, _ := newTestEngine(t)

	e.SetVolume(1.7)
	assert.InDelta(t, 1.0, e.Volume(), 0.001)

	e.SetVolume(0.3)
	assert.InDelta(t, 0.3, mock.Volume(), 0.001)
}

// mockOf digs the mock renderer back out of the engine for tests that
// only have the engine handy.
func mockOf(e *Engine) *renderer.Mock {
	return e.rend.(*renderer.Mock)
}
