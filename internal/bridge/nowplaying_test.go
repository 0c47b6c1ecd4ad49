package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/undertow/internal/engine"
	"github.com/llehouerou/undertow/internal/item"
	"github.com/llehouerou/undertow/internal/queue"
	"github.com/llehouerou/undertow/internal/renderer"
)

type testPolicy struct{}

func (testPolicy) Name() string            { return "test" }
func (testPolicy) AllowsRateControl() bool { return false }
func (testPolicy) ItemStarted(_ item.Item) {}

func newEngine(t *testing.T) (*engine.Engine, *renderer.Mock) {
	t.Helper()
	mock := renderer.NewMock()
	eng := engine.New(mock, testPolicy{}, engine.WithTickInterval(5*time.Millisecond))
	t.Cleanup(func() { eng.Close() })
	return eng, mock
}

func TestProject_Idle(t *testing.T) {
	eng, _ := newEngine(t)

	np := Project(eng)

	assert.Equal(t, engine.StateIdle, np.State)
	assert.Empty(t, np.Title)
	assert.False(t, np.HasNext)
	assert.False(t, np.HasPrevious)
}

func TestProject_CarriesItemAndModes(t *testing.T) {
	eng, mock := newEngine(t)
	items := []item.Item{
		item.Local("/m/a.mp3", "First", "Artist", "Album", 3*time.Minute),
		item.Local("/m/b.mp3", "Second", "Artist", "Album", 4*time.Minute),
	}

	require.NoError(t, eng.Start(items, 0))
	require.Eventually(t, func() bool {
		return eng.State() == engine.StatePlaying
	}, time.Second, time.Millisecond)

	mock.SetDuration(3 * time.Minute)
	eng.SetRepeatMode(queue.RepeatAll)
	eng.SetShuffle(true)
	eng.SetVolume(0.8)

	np := Project(eng)

	assert.Equal(t, engine.StatePlaying, np.State)
	assert.Equal(t, "First", np.Title)
	assert.Equal(t, "Artist", np.Artist)
	assert.Equal(t, "Album", np.Album)
	assert.Equal(t, 3*time.Minute, np.Duration)
	assert.Equal(t, queue.RepeatAll, np.Repeat)
	assert.True(t, np.Shuffle)
	assert.InDelta(t, 0.8, np.Volume, 0.001)
	assert.True(t, np.HasNext)
}

func TestProject_DurationFallsBackToItem(t *testing.T) {
	eng, _ := newEngine(t)
	items := []item.Item{
		item.Local("/m/a.mp3", "First", "Artist", "Album", 3*time.Minute),
	}

	require.NoError(t, eng.Start(items, 0))
	require.Eventually(t, func() bool {
		return eng.State() == engine.StatePlaying
	}, time.Second, time.Millisecond)

	// Renderer reports no duration; the item's tagged duration is used.
	np := Project(eng)
	assert.Equal(t, 3*time.Minute, np.Duration)
}
