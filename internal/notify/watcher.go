package notify

import (
	"fmt"

	"github.com/llehouerou/undertow/internal/bridge"
	"github.com/llehouerou/undertow/internal/engine"
)

const trackChangeTimeout = 4000 // ms

// Watch sends a desktop notification every time the engine moves to a
// new item. Successive notifications replace each other so skipping
// through the queue does not stack popups. The returned stop function
// detaches the watcher and withdraws the last popup.
func Watch(svc engine.Service, notifier Notifier) (stop func()) {
	sub := svc.Subscribe()
	done := make(chan struct{})

	go func() {
		var lastID uint32
		defer func() {
			if lastID != 0 {
				_ = notifier.Dismiss(lastID)
			}
		}()
		for {
			select {
			case <-done:
				return
			case <-sub.Done:
				return
			case ev := <-sub.ItemChanged:
				if ev.Current == nil {
					continue
				}

				body := ev.Current.Artist
				if ev.Current.Album != "" {
					body = fmt.Sprintf("%s — %s", ev.Current.Artist, ev.Current.Album)
				}

				id, err := notifier.Notify(Notification{
					Title:      ev.Current.Title,
					Body:       body,
					Icon:       bridge.FindAlbumArt(ev.Current.Source.Path),
					Timeout:    trackChangeTimeout,
					ReplacesID: lastID,
					Urgency:    UrgencyLow,
				})
				if err == nil {
					lastID = id
				}
			}
		}
	}()

	return func() { close(done) }
}
