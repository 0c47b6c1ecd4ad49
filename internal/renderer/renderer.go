// Package renderer is the opaque audio playback collaborator driven by the
// engine. The engine starts, stops and queries it; it never decodes audio
// itself.
package renderer

import (
	"errors"
	"time"

	"github.com/llehouerou/undertow/internal/item"
)

// ErrAssetMissing is returned by Load when the source file is absent or
// the remote URL cannot be fetched. The engine treats it as recoverable
// and skips to the next item.
var ErrAssetMissing = errors.New("asset missing")

// Interface defines the renderer contract for dependency injection and
// testing. Load replaces any currently loaded media; playback does not
// start until Play is called.
type Interface interface {
	Load(src item.Locator) error
	Play()
	Pause()
	Stop()
	SeekTo(position time.Duration) error
	Position() time.Duration
	Duration() time.Duration
	SetVolume(level float64)
	SetRate(rate float64)
	Finished() <-chan struct{}
	Close() error
}
