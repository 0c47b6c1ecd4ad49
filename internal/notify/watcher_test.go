package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/undertow/internal/engine"
	"github.com/llehouerou/undertow/internal/item"
	"github.com/llehouerou/undertow/internal/renderer"
)

type recordingNotifier struct {
	mu        sync.Mutex
	nextID    uint32
	sent      []Notification
	dismissed []uint32
}

func (r *recordingNotifier) Notify(n Notification) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	r.nextID++
	return r.nextID, nil
}

func (r *recordingNotifier) Dismiss(id uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dismissed = append(r.dismissed, id)
	return nil
}

func (r *recordingNotifier) dismissals() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint32, len(r.dismissed))
	copy(out, r.dismissed)
	return out
}

func (r *recordingNotifier) notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

type silentPolicy struct{}

func (silentPolicy) Name() string            { return "test" }
func (silentPolicy) AllowsRateControl() bool { return false }
func (silentPolicy) ItemStarted(_ item.Item) {}

func TestWatch_NotifiesOnItemChange(t *testing.T) {
	mock := renderer.NewMock()
	eng := engine.New(mock, silentPolicy{}, engine.WithTickInterval(5*time.Millisecond))
	defer eng.Close()

	rec := &recordingNotifier{}
	stop := Watch(eng, rec)
	defer stop()

	items := []item.Item{
		item.Local("/m/a.mp3", "First", "Artist", "Album", 3*time.Minute),
		item.Local("/m/b.mp3", "Second", "Artist", "Album", 4*time.Minute),
	}
	require.NoError(t, eng.Start(items, 0))

	require.Eventually(t, func() bool {
		return len(rec.notifications()) >= 1
	}, time.Second, time.Millisecond)

	sent := rec.notifications()
	assert.Equal(t, "First", sent[0].Title)
	assert.Equal(t, "Artist — Album", sent[0].Body)
	assert.Zero(t, sent[0].ReplacesID)

	require.NoError(t, eng.Next())

	require.Eventually(t, func() bool {
		return len(rec.notifications()) >= 2
	}, time.Second, time.Millisecond)

	sent = rec.notifications()
	assert.Equal(t, "Second", sent[1].Title)
	// Replaces the previous popup instead of stacking.
	assert.Equal(t, uint32(1), sent[1].ReplacesID)
}

func TestWatch_StopWithdrawsLastPopup(t *testing.T) {
	mock := renderer.NewMock()
	eng := engine.New(mock, silentPolicy{}, engine.WithTickInterval(5*time.Millisecond))
	defer eng.Close()

	rec := &recordingNotifier{}
	stop := Watch(eng, rec)

	items := []item.Item{
		item.Local("/m/a.mp3", "First", "Artist", "Album", 3*time.Minute),
	}
	require.NoError(t, eng.Start(items, 0))
	require.Eventually(t, func() bool {
		return len(rec.notifications()) >= 1
	}, time.Second, time.Millisecond)

	stop()

	require.Eventually(t, func() bool {
		return len(rec.dismissals()) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, []uint32{1}, rec.dismissals())
}

func TestWatch_StopDetaches(t *testing.T) {
	mock := renderer.NewMock()
	eng := engine.New(mock, silentPolicy{}, engine.WithTickInterval(5*time.Millisecond))
	defer eng.Close()

	rec := &recordingNotifier{}
	stop := Watch(eng, rec)
	stop()
	time.Sleep(10 * time.Millisecond) // let the watcher goroutine exit

	items := []item.Item{
		item.Local("/m/a.mp3", "First", "Artist", "Album", 3*time.Minute),
	}
	require.NoError(t, eng.Start(items, 0))

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.notifications())
}
