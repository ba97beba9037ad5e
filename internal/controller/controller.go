// Package controller coordinates the single audio output across atmosphere
// mode switches: fade out, swap the track, seek to where that mode was last
// heard, play, fade back in.
package controller

import (
	"context"
	"crypto/rand"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/nomadstudio/atmos/internal/atmosphere"
	"github.com/nomadstudio/atmos/internal/audio"
	"github.com/nomadstudio/atmos/internal/config"
)

// Output is the audio resource driven by the controller. The controller is
// its only writer.
type Output interface {
	// Load replaces the current track. The new track starts paused.
	Load(url string) error
	Source() string
	Seek(pos time.Duration) error
	Position() time.Duration
	// Play requests playback; the environment may refuse asynchronously.
	Play() *audio.PlayResult
	Pause()
	Paused() bool
	Volume() float64
	SetVolume(v float64)
	Close() error
}

// Options configures a Controller.
type Options struct {
	Manifest atmosphere.Manifest
	Mode     atmosphere.Mode // Initial target mode
	Volume   float64         // Initial desired volume
	Muted    bool

	Step           float64
	Threshold      float64
	GlideInterval  time.Duration
	SampleInterval time.Duration
}

// DefaultOptions returns the stock glide parameters and manifest.
func DefaultOptions() Options {
	return Options{
		Manifest:       atmosphere.DefaultManifest(),
		Mode:           atmosphere.ModeSilence,
		Volume:         config.DefaultVolume,
		Step:           config.DefaultGlideStep,
		Threshold:      config.DefaultGlideThreshold,
		GlideInterval:  config.DefaultGlideInterval,
		SampleInterval: config.DefaultSampleInterval,
	}
}

// OptionsFromConfig builds controller options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Manifest:       cfg.Manifest(),
		Mode:           cfg.InitialMode(),
		Volume:         cfg.Audio.Volume,
		Muted:          cfg.Audio.Muted,
		Step:           cfg.Glide.Step,
		Threshold:      cfg.Glide.Threshold,
		GlideInterval:  cfg.Glide.Interval.Duration(),
		SampleInterval: cfg.Glide.SampleInterval.Duration(),
	}
}

// Transition records one stage change of the switch sequence.
type Transition struct {
	ID   string // Switch sequence the change belongs to
	From Stage
	To   Stage
	Mode atmosphere.Mode // Target mode at the time of the change
	At   time.Time
}

// Status is the snapshot exposed to UI layers.
type Status struct {
	Mode         atmosphere.Mode
	Volume       float64
	Muted        bool
	Started      bool
	Playing      bool
	Stage        Stage
	TransitionID string
	StartedAt    time.Time
}

// Controller owns the audio output and mediates every transition between
// atmosphere modes. All state sits behind mu; Run advances glides and
// position sampling from a single goroutine.
type Controller struct {
	mu     sync.Mutex
	logger *slog.Logger
	out    Output
	opts   Options
	now    func() time.Time

	manifest  atmosphere.Manifest
	mode      atmosphere.Mode // Target mode
	loaded    atmosphere.Mode // Mode whose track is in the output
	loadedURL string
	volume    float64 // Desired (unmuted) volume
	muted     bool
	started   bool
	startedAt time.Time
	closed    bool

	// Last sampled play position per mode
	positions [atmosphere.ModeCount]time.Duration

	stage    Stage
	glide    *glide
	pending  *audio.PlayResult
	switchID string

	listeners []func(Transition)
	queued    []Transition
}

// New creates a controller driving out. The output is silenced; nothing
// plays until Start.
func New(out Output, opts Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if !opts.Mode.Valid() {
		opts.Mode = atmosphere.ModeSilence
	}
	defaults := DefaultOptions()
	if opts.GlideInterval <= 0 {
		opts.GlideInterval = defaults.GlideInterval
	}
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = defaults.SampleInterval
	}
	if opts.Step <= 0 {
		opts.Step = defaults.Step
	}

	c := &Controller{
		logger:   logger,
		out:      out,
		opts:     opts,
		now:      time.Now,
		manifest: opts.Manifest,
		mode:     opts.Mode,
		volume:   clamp(opts.Volume),
		muted:    opts.Muted,
	}
	out.SetVolume(0)
	return c
}

// OnTransition registers a listener for stage changes. Listeners run
// outside the controller lock and may call back into it.
func (c *Controller) OnTransition(fn func(Transition)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Start opens the session and begins playback of the current mode.
// Calling it again has no effect.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.unlockAndNotify()

	if c.closed || c.started {
		return
	}
	c.started = true
	c.startedAt = c.now()
	c.logger.Info("session started", "mode", c.mode)

	c.applyLocked()
}

// SetMode selects the atmosphere. Unknown modes are ignored.
func (c *Controller) SetMode(m atmosphere.Mode) {
	c.mu.Lock()
	defer c.unlockAndNotify()

	if c.closed {
		return
	}
	if !m.Valid() {
		c.logger.Debug("ignoring unknown mode", "mode", int(m))
		return
	}
	c.mode = m
	c.applyLocked()
}

// SetVolume sets the desired volume, clamped into [0, 1]. While idle the
// live output follows immediately; during a fade-in the glide retargets.
func (c *Controller) SetVolume(level float64) {
	c.mu.Lock()
	defer c.unlockAndNotify()

	c.volume = clamp(level)
	if c.closed || !c.started || c.muted {
		return
	}
	c.retargetLocked()
}

// SetMuted silences or restores the output without touching the desired volume.
func (c *Controller) SetMuted(muted bool) {
	c.mu.Lock()
	defer c.unlockAndNotify()

	c.muted = muted
	if c.closed || !c.started {
		return
	}
	c.retargetLocked()
}

// ToggleMute flips the mute flag and returns the new value.
func (c *Controller) ToggleMute() bool {
	c.mu.Lock()
	defer c.unlockAndNotify()

	c.muted = !c.muted
	if !c.closed && c.started {
		c.retargetLocked()
	}
	return c.muted
}

// SetManifest swaps the mode table. If the current mode's track changed
// it is reloaded through the usual switch sequence.
func (c *Controller) SetManifest(m atmosphere.Manifest) {
	c.mu.Lock()
	defer c.unlockAndNotify()

	if c.closed {
		return
	}

	old := c.manifest
	c.manifest = m
	for _, mode := range atmosphere.AllModes() {
		if old.TrackURL(mode) != m.TrackURL(mode) {
			c.positions[mode] = 0
		}
	}
	if old.TrackURL(c.mode) != m.TrackURL(c.mode) {
		c.logger.Info("track changed for current mode", "mode", c.mode, "url", m.TrackURL(c.mode))
		c.applyLocked()
	}
}

// Status returns a snapshot for display.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Status{
		Mode:         c.mode,
		Volume:       c.volume,
		Muted:        c.muted,
		Started:      c.started,
		Playing:      c.loadedURL != "" && !c.closed && !c.out.Paused(),
		Stage:        c.stage,
		TransitionID: c.switchID,
		StartedAt:    c.startedAt,
	}
}

// Run drives glide steps and position sampling until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	glideTicker := time.NewTicker(c.opts.GlideInterval)
	defer glideTicker.Stop()

	sampleTicker := time.NewTicker(c.opts.SampleInterval)
	defer sampleTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-glideTicker.C:
			c.tick()
		case <-sampleTicker.C:
			c.sample()
		}
	}
}

// Close cancels any glide, stops playback and releases the output.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.glide = nil
	c.pending = nil
	c.out.Pause()

	c.logger.Debug("controller closed")
	return c.out.Close()
}

// tick advances the active glide by one step, or checks on a pending
// play request.
func (c *Controller) tick() {
	c.mu.Lock()
	defer c.unlockAndNotify()

	if c.closed {
		return
	}
	if c.stage == StageStarting {
		c.pollPlayLocked()
		return
	}

	g := c.glide
	if g == nil {
		return
	}

	next, done := GlideStep(c.out.Volume(), g.target, c.opts.Step, c.opts.Threshold)
	c.out.SetVolume(next)
	if done {
		c.glide = nil
		if g.onDone != nil {
			g.onDone()
		}
	}
}

// sample records the play position of the loaded track while it is audible.
func (c *Controller) sample() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.started || c.loadedURL == "" {
		return
	}
	if c.stage == StageSwapping || c.stage == StageStarting {
		return
	}
	c.snapshotLocked()
}

// snapshotLocked stores the play position of the loaded track, provided it
// is audible and still the track the manifest assigns to its mode.
func (c *Controller) snapshotLocked() {
	if c.loadedURL == "" || c.loadedURL != c.manifest.TrackURL(c.loaded) {
		return
	}
	if c.out.Paused() {
		return
	}
	c.positions[c.loaded] = c.out.Position()
}

// applyLocked reconciles the output with the target mode.
func (c *Controller) applyLocked() {
	url := c.manifest.TrackURL(c.mode)

	if !c.started {
		if url != c.loadedURL {
			if err := c.out.Load(url); err != nil {
				c.logger.Warn("failed to load track", "mode", c.mode, "url", url, "error", err)
				return
			}
			c.loaded, c.loadedURL = c.mode, url
		}
		return
	}

	if url == c.loadedURL && !c.out.Paused() {
		// Already audible: settle in place, no reload
		c.pending = nil
		c.loaded = c.mode
		if c.stage != StageIdle {
			c.setStageLocked(StageIdle)
		}
		c.fadeToLocked(c.effectiveVolume(), nil)
		return
	}

	c.beginSwitchLocked()
}

// beginSwitchLocked starts (or restarts) the switch sequence toward c.mode.
func (c *Controller) beginSwitchLocked() {
	target := c.mode
	c.pending = nil
	c.switchID = newTransitionID(c.now())

	c.logger.Debug("switch sequence started", "switch_id", c.switchID, "from", c.loaded, "to", target)

	c.setStageLocked(StageFadingOut)
	c.fadeToLocked(0, func() { c.swapLocked(target) })
}

// swapLocked loads target's track at its remembered position and asks the
// output to play.
func (c *Controller) swapLocked(target atmosphere.Mode) {
	c.setStageLocked(StageSwapping)

	c.snapshotLocked()

	url := c.manifest.TrackURL(target)
	if err := c.out.Load(url); err != nil {
		c.logger.Warn("failed to load track", "switch_id", c.switchID, "mode", target, "url", url, "error", err)
		c.out.Pause()
		c.setStageLocked(StageIdle)
		return
	}
	c.loaded, c.loadedURL = target, url

	if err := c.out.Seek(c.positions[target]); err != nil {
		c.logger.Warn("failed to restore position", "mode", target, "position", c.positions[target], "error", err)
	}

	c.setStageLocked(StageStarting)
	c.pending = c.out.Play()
	c.pollPlayLocked()
}

// pollPlayLocked moves from Starting to FadingIn once the play request is
// accepted. A refusal leaves the controller idle and silent.
func (c *Controller) pollPlayLocked() {
	if c.pending == nil || !c.pending.Ready() {
		return
	}
	result := c.pending
	c.pending = nil

	if err := result.Err(); err != nil {
		c.logger.Warn("playback start rejected", "switch_id", c.switchID, "mode", c.loaded, "error", err)
		c.setStageLocked(StageIdle)
		return
	}

	c.setStageLocked(StageFadingIn)
	c.fadeToLocked(c.effectiveVolume(), func() { c.setStageLocked(StageIdle) })
}

// retargetLocked applies a changed volume or mute flag to the live output.
func (c *Controller) retargetLocked() {
	switch c.stage {
	case StageIdle:
		c.glide = nil
		c.out.SetVolume(c.effectiveVolume())
	case StageFadingIn:
		if c.glide != nil {
			c.glide.target = c.effectiveVolume()
		}
	}
}

// fadeToLocked replaces any active glide with one toward target.
func (c *Controller) fadeToLocked(target float64, onDone func()) {
	c.glide = &glide{target: target, onDone: onDone}
}

func (c *Controller) setStageLocked(s Stage) {
	if s == c.stage {
		return
	}
	t := Transition{ID: c.switchID, From: c.stage, To: s, Mode: c.mode, At: c.now()}
	c.stage = s
	c.queued = append(c.queued, t)
	c.logger.Debug("stage changed", "switch_id", t.ID, "from", t.From, "to", t.To, "mode", t.Mode)
}

func (c *Controller) effectiveVolume() float64 {
	if c.muted {
		return 0
	}
	return c.volume
}

// unlockAndNotify releases mu and then delivers queued transitions.
func (c *Controller) unlockAndNotify() {
	queued := c.queued
	c.queued = nil
	listeners := c.listeners
	c.mu.Unlock()

	for _, t := range queued {
		for _, fn := range listeners {
			fn(t)
		}
	}
}

// clamp bounds v to [0, 1]; NaN becomes 0.
func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, 0), 1)
}

func newTransitionID(at time.Time) string {
	id, err := ulid.New(ulid.Timestamp(at), rand.Reader)
	if err != nil {
		return ""
	}
	return id.String()
}
