//go:build linux

package bridge

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/llehouerou/undertow/internal/engine"
	"github.com/llehouerou/undertow/internal/queue"
)

// MPRIS connects the engine to desktop media controls over D-Bus.
type MPRIS struct {
	server *server.Server
}

// NewMPRIS creates and starts an MPRIS adapter for the engine.
func NewMPRIS(svc engine.Service) (*MPRIS, error) {
	m := &MPRIS{}
	m.server = server.NewServer("undertow", &rootAdapter{}, &playerAdapter{svc: svc})

	go func() {
		_ = m.server.Listen()
	}()

	return m, nil
}

// Close stops the adapter and releases D-Bus resources.
func (m *MPRIS) Close() error {
	return m.server.Stop()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported - app manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return "Undertow", nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file", "https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/ogg", "audio/wav"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and the
// optional loop/shuffle interfaces.
type playerAdapter struct {
	svc engine.Service
}

func (p *playerAdapter) Next() error {
	return p.svc.Next()
}

func (p *playerAdapter) Previous() error {
	return p.svc.Previous()
}

func (p *playerAdapter) Pause() error {
	return p.svc.Pause()
}

func (p *playerAdapter) PlayPause() error {
	return p.svc.Toggle()
}

// Stop maps to Pause: the engine keeps the session alive rather than
// tearing down the queue on external Stop.
func (p *playerAdapter) Stop() error {
	return p.svc.Pause()
}

func (p *playerAdapter) Play() error {
	return p.svc.Play()
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	return p.svc.Seek(time.Duration(offset) * time.Microsecond)
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	return p.svc.SeekTo(time.Duration(position) * time.Microsecond)
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	switch p.svc.State() {
	case engine.StatePlaying, engine.StateLoading:
		return types.PlaybackStatusPlaying, nil
	case engine.StatePaused:
		return types.PlaybackStatusPaused, nil
	case engine.StateIdle, engine.StateEnded:
		return types.PlaybackStatusStopped, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return p.svc.Rate(), nil
}

func (p *playerAdapter) SetRate(rate float64) error {
	// Rejected rates (music policy) are silently ignored per the MPRIS
	// contract for unsupported values.
	_ = p.svc.SetRate(rate)
	return nil
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	cur := p.svc.CurrentItem()
	if cur == nil {
		return types.Metadata{}, nil
	}

	np := Project(p.svc)
	meta := types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(cur.Key())),
		Length:  types.Microseconds(np.Duration.Microseconds()),
		Title:   np.Title,
		Artist:  []string{np.Artist},
		Album:   np.Album,
	}

	if cur.Source.Path != "" {
		if artPath := FindAlbumArt(cur.Source.Path); artPath != "" {
			meta.ArtUrl = "file://" + artPath
		}
	}

	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return p.svc.Volume(), nil
}

func (p *playerAdapter) SetVolume(level float64) error {
	p.svc.SetVolume(level)
	return nil
}

func (p *playerAdapter) Position() (int64, error) {
	return p.svc.Position().Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 0.5, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 3.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return p.svc.HasNext(), nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return p.svc.HasPrevious(), nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return !p.svc.QueueIsEmpty(), nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	switch p.svc.RepeatMode() {
	case queue.RepeatOne:
		return types.LoopStatusTrack, nil
	case queue.RepeatAll:
		return types.LoopStatusPlaylist, nil
	case queue.RepeatOff:
		return types.LoopStatusNone, nil
	}
	return types.LoopStatusNone, nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	switch status {
	case types.LoopStatusNone:
		p.svc.SetRepeatMode(queue.RepeatOff)
	case types.LoopStatusTrack:
		p.svc.SetRepeatMode(queue.RepeatOne)
	case types.LoopStatusPlaylist:
		p.svc.SetRepeatMode(queue.RepeatAll)
	}
	return nil
}

// Shuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) Shuffle() (bool, error) {
	return p.svc.Shuffle(), nil
}

// SetShuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) SetShuffle(shuffle bool) error {
	p.svc.SetShuffle(shuffle)
	return nil
}

func formatTrackID(key string) string {
	h := fnv.New64a()
	h.Write([]byte(key))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
