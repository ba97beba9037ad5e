package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// ErrNoTrack is returned when playback is requested before a track is loaded.
var ErrNoTrack = errors.New("no track loaded")

// Player is a single-track looping audio output. At most one track is
// loaded at a time; loading a new one replaces the previous stream.
type Player struct {
	mu     sync.Mutex
	logger *slog.Logger

	// Directory that site-style locators ("/assets/x.wav") resolve against
	assetsDir string

	// Whether speaker has been initialized
	initialized bool
	sampleRate  beep.SampleRate

	// Loaded track and its stream pipeline (nil until Play)
	source string
	track  *beep.Buffer
	loop   *loopStreamer
	ctrl   *beep.Ctrl
	gain   *effects.Gain

	// Position to start from when the pipeline is built, in track samples
	startAt int

	// Linear volume (0.0 to 1.0)
	volume float64

	// Decoded track cache
	cache      map[string]*beep.Buffer
	cacheMutex sync.RWMutex
}

// NewPlayer creates a new audio player. Relative locators resolve against
// assetsDir.
func NewPlayer(assetsDir string, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}

	return &Player{
		logger:     logger,
		assetsDir:  assetsDir,
		sampleRate: beep.SampleRate(44100),
		cache:      make(map[string]*beep.Buffer),
	}
}

// ResolvePath turns a track locator into a filesystem path.
// Supports file:// URLs, ~ expansion, absolute paths that exist, and
// site-style paths relative to the assets directory.
func (p *Player) ResolvePath(locator string) string {
	return resolveLocator(p.assetsDir, locator)
}

func resolveLocator(assetsDir, locator string) string {
	if strings.HasPrefix(locator, "file://") {
		if u, err := url.Parse(locator); err == nil {
			return u.Path
		}
	}

	if strings.HasPrefix(locator, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, locator[1:])
		}
	}

	if filepath.IsAbs(locator) {
		if _, err := os.Stat(locator); err == nil || assetsDir == "" {
			return locator
		}
		// "/assets/wind.wav" style: the leading directory is the site root
		return filepath.Join(assetsDir, filepath.Base(locator))
	}

	if assetsDir != "" {
		return filepath.Join(assetsDir, locator)
	}
	return locator
}

// Load makes locator the current track. The previous stream is stopped and
// the start position reset to zero. Loading the current source again is a
// no-op.
func (p *Player) Load(locator string) error {
	p.mu.Lock()
	if locator == p.source && p.track != nil {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	buffer, err := p.buffer(p.ResolvePath(locator))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.source = locator
	p.track = buffer
	p.startAt = 0

	p.logger.Debug("track loaded", "source", locator, "duration", buffer.Format().SampleRate.D(buffer.Len()))
	return nil
}

// Source returns the locator of the loaded track, or "".
func (p *Player) Source() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

// Seek moves the play position. Positions past the end wrap around since
// tracks loop.
func (p *Player) Seek(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.track == nil {
		return ErrNoTrack
	}

	n := p.track.Format().SampleRate.N(pos)
	if length := p.track.Len(); length > 0 {
		n %= length
	}
	if n < 0 {
		n = 0
	}

	if p.loop == nil {
		p.startAt = n
		return nil
	}

	speaker.Lock()
	defer speaker.Unlock()
	return p.loop.Seek(n)
}

// Position returns the current play position within the track.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.track == nil {
		return 0
	}

	n := p.startAt
	if p.loop != nil {
		speaker.Lock()
		n = p.loop.Position()
		speaker.Unlock()
	}
	return p.track.Format().SampleRate.D(n)
}

// Play starts or resumes playback of the loaded track. The result is
// rejected if no track is loaded or the speaker cannot be opened.
func (p *Player) Play() *PlayResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.track == nil {
		return Resolved(ErrNoTrack)
	}

	if p.ctrl != nil {
		speaker.Lock()
		p.ctrl.Paused = false
		speaker.Unlock()
		return Resolved(nil)
	}

	if err := p.ensureInitializedLocked(p.track.Format().SampleRate); err != nil {
		return Resolved(err)
	}

	p.loop = &loopStreamer{s: p.track.Streamer(0, p.track.Len())}
	if err := p.loop.Seek(p.startAt); err != nil {
		p.loop = nil
		return Resolved(fmt.Errorf("failed to seek: %w", err))
	}

	var streamer beep.Streamer = p.loop

	// Resample if necessary
	if rate := p.track.Format().SampleRate; rate != p.sampleRate {
		streamer = beep.Resample(4, rate, p.sampleRate, streamer)
	}

	p.gain = &effects.Gain{Streamer: streamer, Gain: p.volume - 1}
	p.ctrl = &beep.Ctrl{Streamer: p.gain}

	speaker.Play(p.ctrl)
	p.logger.Debug("playback started", "source", p.source, "at", p.track.Format().SampleRate.D(p.startAt))
	return Resolved(nil)
}

// Pause pauses playback, keeping the position.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
}

// Paused reports whether the output is not currently producing sound.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl == nil {
		return true
	}
	speaker.Lock()
	defer speaker.Unlock()
	return p.ctrl.Paused
}

// SetVolume sets the playback volume (0.0 to 1.0).
func (p *Player) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	volume = min(max(volume, 0), 1)
	p.volume = volume

	if p.gain != nil {
		speaker.Lock()
		p.gain.Gain = volume - 1
		speaker.Unlock()
	}
}

// Volume returns the current volume.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// buffer returns the decoded track for path, decoding it on a cache miss.
func (p *Player) buffer(path string) (*beep.Buffer, error) {
	p.cacheMutex.RLock()
	cached, ok := p.cache[path]
	p.cacheMutex.RUnlock()

	if ok {
		return cached, nil
	}

	buffer, err := decodeFile(path)
	if err != nil {
		p.logger.Warn("failed to load track", "path", path, "error", err)
		return nil, err
	}

	p.cacheMutex.Lock()
	p.cache[path] = buffer
	p.cacheMutex.Unlock()

	return buffer, nil
}

// Preload decodes a track into the cache for faster switching.
func (p *Player) Preload(locator string) error {
	if locator == "" {
		return nil
	}
	path := p.ResolvePath(locator)
	if _, err := p.buffer(path); err != nil {
		return err
	}
	p.logger.Debug("preloaded track", "path", path)
	return nil
}

// decodeFile loads and decodes an audio file into a buffer.
func decodeFile(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open track: %w", err)
	}
	defer func() { _ = f.Close() }()

	ext := strings.ToLower(filepath.Ext(path))

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", ext)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode track: %w", err)
	}
	defer func() { _ = streamer.Close() }()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)

	return buffer, nil
}

// ensureInitializedLocked initializes the speaker if not already done.
func (p *Player) ensureInitializedLocked(sampleRate beep.SampleRate) error {
	if p.initialized {
		return nil
	}

	// Use a reasonable buffer size for low latency
	bufferSize := sampleRate.N(time.Millisecond * 100)

	if err := speaker.Init(sampleRate, bufferSize); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	p.sampleRate = sampleRate
	p.initialized = true
	p.logger.Debug("speaker initialized", "sample_rate", sampleRate)
	return nil
}

// stopLocked tears down the stream pipeline of the current track.
func (p *Player) stopLocked() {
	if p.ctrl == nil {
		return
	}
	if p.initialized {
		speaker.Clear()
	}
	p.ctrl = nil
	p.gain = nil
	p.loop = nil
}

// InvalidateCache removes a specific path from the cache.
func (p *Player) InvalidateCache(path string) {
	p.cacheMutex.Lock()
	defer p.cacheMutex.Unlock()
	delete(p.cache, path)
}

// ClearCache clears the track cache.
func (p *Player) ClearCache() {
	p.cacheMutex.Lock()
	defer p.cacheMutex.Unlock()
	p.cache = make(map[string]*beep.Buffer)
	p.logger.Debug("track cache cleared")
}

// Close stops all playback and releases resources.
func (p *Player) Close() error {
	p.mu.Lock()
	p.stopLocked()
	p.source = ""
	p.track = nil
	if p.initialized {
		speaker.Close()
		p.initialized = false
	}
	p.mu.Unlock()

	p.ClearCache()
	p.logger.Debug("audio player closed")
	return nil
}

// loopStreamer plays a seekable stream forever, wrapping to the start.
type loopStreamer struct {
	s   beep.StreamSeeker
	err error
}

func (l *loopStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	if l.err != nil || l.s.Len() == 0 {
		return 0, false
	}
	for n < len(samples) {
		sn, sok := l.s.Stream(samples[n:])
		n += sn
		if !sok || l.s.Position() >= l.s.Len() {
			if err := l.s.Seek(0); err != nil {
				l.err = err
				return n, n > 0
			}
		}
	}
	return n, true
}

func (l *loopStreamer) Err() error {
	if l.err != nil {
		return l.err
	}
	return l.s.Err()
}

func (l *loopStreamer) Len() int      { return l.s.Len() }
func (l *loopStreamer) Position() int { return l.s.Position() }

func (l *loopStreamer) Seek(p int) error {
	return l.s.Seek(p)
}
