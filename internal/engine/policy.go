package engine

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/undertow/internal/item"
)

// Policy captures the content-type specific behavior of the engine. One
// engine type serves both music and podcasts; the policy is the only
// difference between the two.
type Policy interface {
	// Name is the storage name for this engine's persisted session.
	Name() string
	// AllowsRateControl reports whether playback speed may be changed.
	AllowsRateControl() bool
	// ItemStarted is called exactly once per successful load start, never
	// on seek, pause or session restore.
	ItemStarted(it item.Item)
}

// PlayCounter records item plays. The session store implements it.
type PlayCounter interface {
	IncrementPlayCount(key string, at time.Time) error
}

// TrackPolicy is the music policy: play counts are recorded, playback
// rate is fixed.
type TrackPolicy struct {
	Counts PlayCounter
	Log    zerolog.Logger
}

func (p TrackPolicy) Name() string { return "music" }

func (p TrackPolicy) AllowsRateControl() bool { return false }

func (p TrackPolicy) ItemStarted(it item.Item) {
	if p.Counts == nil {
		return
	}
	if err := p.Counts.IncrementPlayCount(it.Key(), time.Now()); err != nil {
		p.Log.Warn().Err(err).Str("key", it.Key()).Msg("failed to record play")
	}
}

// EpisodePolicy is the podcast policy: playback rate is adjustable, plays
// are not counted.
type EpisodePolicy struct{}

func (p EpisodePolicy) Name() string { return "podcast" }

func (p EpisodePolicy) AllowsRateControl() bool { return true }

func (p EpisodePolicy) ItemStarted(item.Item) {}
