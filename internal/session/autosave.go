package session

import (
	"github.com/rs/zerolog"

	"github.com/llehouerou/undertow/internal/engine"
)

// AutoSave subscribes to the engine and opportunistically snapshots its
// state into the store on every transition and position tick. Writes go
// through the store's save throttle, so frequent ticks collapse into one
// write per interval. The returned stop function detaches the watcher;
// call SaveNow or Close on the store afterwards to persist the final
// state.
func AutoSave(svc engine.Service, store *Store, name string, log zerolog.Logger) (stop func()) {
	sub := svc.Subscribe()
	done := make(chan struct{})

	save := func() {
		if sess, ok := Snapshot(svc); ok {
			store.Save(name, sess)
		}
	}

	go func() {
		for {
			select {
			case <-done:
				return
			case <-sub.Done:
				return
			case <-sub.StateChanged:
				save()
			case <-sub.ItemChanged:
				save()
			case <-sub.PositionChanged:
				save()
			case <-sub.QueueChanged:
				save()
			case <-sub.ModeChanged:
				save()
			case <-sub.VolumeChanged:
				save()
			case ev := <-sub.Error:
				log.Debug().Err(ev.Err).Str("key", ev.Key).Msg("playback error event")
			}
		}
	}()

	return func() { close(done) }
}
