// Package bridge exposes the engine to external transport controls: a
// read-only now-playing projection and, on Linux, an MPRIS adapter.
package bridge

import (
	"time"

	"github.com/llehouerou/undertow/internal/engine"
	"github.com/llehouerou/undertow/internal/queue"
)

// NowPlaying is a read-only projection of the engine for external
// surfaces. It carries everything a remote control needs to render a
// now-playing display without reaching into the engine.
type NowPlaying struct {
	State       engine.State
	Title       string
	Artist      string
	Album       string
	Position    time.Duration
	Duration    time.Duration
	Shuffle     bool
	Repeat      queue.RepeatMode
	Volume      float64
	HasNext     bool
	HasPrevious bool
}

// Project builds a NowPlaying snapshot from the engine.
func Project(svc engine.Service) NowPlaying {
	np := NowPlaying{
		State:       svc.State(),
		Position:    svc.Position(),
		Duration:    svc.Duration(),
		Shuffle:     svc.Shuffle(),
		Repeat:      svc.RepeatMode(),
		Volume:      svc.Volume(),
		HasNext:     svc.HasNext(),
		HasPrevious: svc.HasPrevious(),
	}
	if cur := svc.CurrentItem(); cur != nil {
		np.Title = cur.Title
		np.Artist = cur.Artist
		np.Album = cur.Album
	}
	return np
}
