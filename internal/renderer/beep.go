package renderer

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/llehouerou/undertow/internal/item"
)

// deviceRate is the fixed speaker sample rate; every track is resampled to
// it so the speaker is initialized exactly once.
const deviceRate = beep.SampleRate(44100)

var speakerOnce sync.Once

// Beep renders audio through the gopxl/beep speaker. One media at a time;
// Load replaces the previous one.
type Beep struct {
	mu sync.Mutex

	streamer  beep.StreamSeekCloser
	format    beep.Format
	ctrl      *beep.Ctrl
	volume    *effects.Volume
	resampler *beep.Resampler
	file      *os.File
	tmpPath   string // downloaded copy of a remote source, removed on unload

	level float64
	rate  float64

	finishedCh chan struct{}
	gen        atomic.Int64 // guards stale end-of-media callbacks
}

// NewBeep creates a beep-backed renderer and initializes the speaker.
func NewBeep() (*Beep, error) {
	var initErr error
	speakerOnce.Do(func() {
		initErr = speaker.Init(deviceRate, deviceRate.N(time.Second/10))
	})
	if initErr != nil {
		return nil, initErr
	}
	return &Beep{
		level:      1.0,
		rate:       1.0,
		finishedCh: make(chan struct{}, 1),
	}, nil
}

// Load opens and decodes the source, replacing any loaded media. Remote
// sources are fetched to a temporary file first. Returns ErrAssetMissing
// when the file is absent or the fetch fails.
func (b *Beep) Load(src item.Locator) error {
	path := src.Path
	var tmpPath string
	if src.IsRemote() {
		p, err := fetchRemote(src.URL)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrAssetMissing, src.URL)
		}
		path = p
		tmpPath = p
	}

	f, err := os.Open(path)
	if err != nil {
		removeTmp(tmpPath)
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrAssetMissing, path)
		}
		return err
	}

	streamer, format, err := decode(f, path)
	if err != nil {
		f.Close()
		removeTmp(tmpPath)
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.unloadLocked()
	gen := b.gen.Add(1)

	b.file = f
	b.tmpPath = tmpPath
	b.streamer = streamer
	b.format = format

	b.resampler = beep.Resample(4, format.SampleRate, rateAdjusted(b.rate), streamer)
	b.ctrl = &beep.Ctrl{Streamer: b.resampler, Paused: true}
	b.volume = &effects.Volume{Streamer: b.ctrl, Base: 2}
	b.applyLevelLocked()

	// The callback runs on the speaker goroutine; it must not take b.mu.
	speaker.Play(beep.Seq(b.volume, beep.Callback(func() {
		if gen != b.gen.Load() {
			return
		}
		select {
		case b.finishedCh <- struct{}{}:
		default:
		}
	})))

	return nil
}

// Play starts or resumes playback of the loaded media.
func (b *Beep) Play() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctrl == nil {
		return
	}
	speaker.Lock()
	b.ctrl.Paused = false
	speaker.Unlock()
}

// Pause pauses playback, keeping the media loaded.
func (b *Beep) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctrl == nil {
		return
	}
	speaker.Lock()
	b.ctrl.Paused = true
	speaker.Unlock()
}

// Stop unloads the current media.
func (b *Beep) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	speaker.Clear()
	b.unloadLocked()
}

// SeekTo moves playback to an absolute position, clamped to the media.
func (b *Beep) SeekTo(position time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.streamer == nil {
		return nil
	}

	n := clampSample(b.format.SampleRate.N(position), b.streamer.Len())

	speaker.Lock()
	err := b.streamer.Seek(n)
	speaker.Unlock()
	return err
}

// clampSample bounds a sample index to [0, length-1]. Zero-length media
// clamps to 0; Seek(0) on an empty streamer is a no-op.
func clampSample(n, length int) int {
	if n >= length {
		n = length - 1
	}
	return max(n, 0)
}

// Position returns the playback position of the loaded media.
func (b *Beep) Position() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.streamer == nil {
		return 0
	}
	return b.format.SampleRate.D(b.streamer.Position())
}

// Duration returns the duration of the loaded media.
func (b *Beep) Duration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.streamer == nil {
		return 0
	}
	return b.format.SampleRate.D(b.streamer.Len())
}

// SetVolume sets the volume level (0.0 to 1.0).
func (b *Beep) SetVolume(level float64) {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.level = level
	b.applyLevelLocked()
}

// SetRate sets the playback rate (1.0 = normal speed).
func (b *Beep) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rate = rate
	if b.resampler != nil {
		speaker.Lock()
		b.resampler.SetRatio(float64(b.format.SampleRate) / float64(rateAdjusted(rate)))
		speaker.Unlock()
	}
}

// Finished signals once per media that played to its end.
func (b *Beep) Finished() <-chan struct{} {
	return b.finishedCh
}

// Close stops playback and releases resources.
func (b *Beep) Close() error {
	b.Stop()
	return nil
}

func (b *Beep) unloadLocked() {
	b.gen.Add(1)
	if b.streamer != nil {
		b.streamer.Close()
		b.streamer = nil
	}
	if b.file != nil {
		b.file.Close()
		b.file = nil
	}
	removeTmp(b.tmpPath)
	b.tmpPath = ""
	b.ctrl = nil
	b.volume = nil
	b.resampler = nil
}

// applyLevelLocked maps the 0-1 level onto beep's logarithmic volume.
// 1.0 -> 0 (unchanged), 0.5 -> -1 (half), 0 -> silent.
func (b *Beep) applyLevelLocked() {
	if b.volume == nil {
		return
	}
	speaker.Lock()
	if b.level <= 0 {
		b.volume.Silent = true
	} else {
		b.volume.Silent = false
		b.volume.Volume = (b.level - 1) * 5
	}
	speaker.Unlock()
}

// rateAdjusted returns the output rate the resampler should target so the
// device consumes samples rate times faster than normal.
func rateAdjusted(rate float64) beep.SampleRate {
	return beep.SampleRate(float64(deviceRate) / rate)
}

func decode(f *os.File, path string) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3.Decode(f)
	case ".flac":
		return flac.Decode(f)
	case ".wav":
		return wav.Decode(f)
	case ".ogg", ".oga":
		return vorbis.Decode(f)
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported format: %s", filepath.Ext(path))
	}
}

func fetchRemote(url string) (string, error) {
	resp, err := http.Get(url) //nolint:gosec,noctx // URL comes from the user's own feed
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	ext := filepath.Ext(url)
	if ext == "" {
		ext = ".mp3"
	}
	tmp, err := os.CreateTemp("", "undertow-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func removeTmp(path string) {
	if path != "" {
		os.Remove(path)
	}
}

// Verify Beep implements Interface at compile time.
var _ Interface = (*Beep)(nil)
