// Package interrupt reacts to external audio-focus signals (phone calls,
// other apps) and drives the engine's pause/resume transitions. It never
// touches the queue.
package interrupt

import (
	"context"

	"github.com/rs/zerolog"
)

// Event is one audio-focus signal. Began marks focus loss; an ended event
// carries ShouldResume when the source hints that resuming is
// appropriate.
type Event struct {
	Began        bool
	ShouldResume bool
}

// Source delivers audio-focus events.
type Source interface {
	Events() <-chan Event
}

// Transport is the slice of the engine the coordinator drives.
type Transport interface {
	IsPlaying() bool
	Pause() error
	Play() error
}

// Coordinator pauses on focus loss and resumes on focus gain when both the
// source hints it and the interruption is what paused playback.
type Coordinator struct {
	transport Transport
	source    Source
	log       zerolog.Logger

	pausedByUs bool
}

// New creates a coordinator. Call Run to start it.
func New(transport Transport, source Source, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		transport: transport,
		source:    source,
		log:       log,
	}
}

// Run consumes focus events until the context is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.source.Events():
			if !ok {
				return
			}
			c.handle(ev)
		}
	}
}

func (c *Coordinator) handle(ev Event) {
	if ev.Began {
		wasPlaying := c.transport.IsPlaying()
		if err := c.transport.Pause(); err != nil {
			c.log.Warn().Err(err).Msg("pause on interruption failed")
			return
		}
		// Pausing an already paused or idle engine is a no-op; only an
		// interruption that actually stopped playback may resume it.
		if wasPlaying {
			c.pausedByUs = true
		}
		c.log.Debug().Bool("was_playing", wasPlaying).Msg("interruption began")
		return
	}

	resume := ev.ShouldResume && c.pausedByUs
	c.pausedByUs = false
	c.log.Debug().Bool("resume", resume).Msg("interruption ended")
	if resume {
		if err := c.transport.Play(); err != nil {
			c.log.Warn().Err(err).Msg("resume after interruption failed")
		}
	}
}

// ChannelSource is a Source backed by a plain channel, used for wiring and
// tests.
type ChannelSource struct {
	ch chan Event
}

// NewChannelSource creates a buffered channel source.
func NewChannelSource() *ChannelSource {
	return &ChannelSource{ch: make(chan Event, 4)}
}

// Events implements Source.
func (s *ChannelSource) Events() <-chan Event {
	return s.ch
}

// Send delivers one event.
func (s *ChannelSource) Send(ev Event) {
	s.ch <- ev
}

// Close closes the event stream, stopping any coordinator consuming it.
func (s *ChannelSource) Close() {
	close(s.ch)
}
