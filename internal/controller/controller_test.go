package controller

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomadstudio/atmos/internal/atmosphere"
)

var (
	silenceURL = atmosphere.DefaultSilenceTrack
	windURL    = atmosphere.DefaultWindTrack
	oceanURL   = atmosphere.DefaultOceanTrack
)

func TestGlideStep(t *testing.T) {
	tests := []struct {
		name      string
		from, to  float64
		wantTicks int
	}{
		{"full fade out", 0.3, 0, 6},
		{"full fade in", 0, 0.3, 6},
		{"already there", 0.3, 0.3, 1},
		{"max range", 0, 1, 20},
		{"partial", 0.15, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.from
			n := 0
			for {
				n++
				var done bool
				v, done = GlideStep(v, tt.to, 0.05, 0.05)
				if done {
					break
				}
				require.Less(t, n, 100)
			}
			assert.Equal(t, tt.wantTicks, n)
			assert.Equal(t, tt.to, v)
		})
	}
}

func TestGlideStep_NoOvershoot(t *testing.T) {
	v, done := GlideStep(0.45, 0.5, 0.1, 0.01)
	assert.False(t, done)
	assert.Equal(t, 0.5, v)

	v, done = GlideStep(v, 0.5, 0.1, 0.01)
	assert.True(t, done)
	assert.Equal(t, 0.5, v)
}

func TestController_GlideCompletesOnce(t *testing.T) {
	c, out, _ := newTestController(t)
	out.SetVolume(0.3)

	calls := 0
	c.mu.Lock()
	c.fadeToLocked(0, func() { calls++ })
	c.mu.Unlock()

	ticks(c, 5)
	assert.Equal(t, 0, calls)
	assert.Greater(t, out.Volume(), 0.0)

	c.tick()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0.0, out.Volume())

	ticks(c, 3)
	assert.Equal(t, 1, calls)
}

func TestController_ReplacedGlideNeverCompletes(t *testing.T) {
	c, out, _ := newTestController(t)
	out.SetVolume(0.3)

	first, second := 0, 0
	c.mu.Lock()
	c.fadeToLocked(0, func() { first++ })
	c.mu.Unlock()
	ticks(c, 2)

	c.mu.Lock()
	c.fadeToLocked(0.3, func() { second++ })
	c.mu.Unlock()
	ticks(c, 20)

	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestController_NotStarted(t *testing.T) {
	c, out, rec := newTestController(t)

	c.SetMode(atmosphere.ModeWind)

	assert.Equal(t, windURL, out.Source())
	assert.True(t, out.Paused())
	assert.Equal(t, 0.0, out.Volume())
	assert.Empty(t, rec.transitions)

	// Volume and mute are stored but not applied
	c.SetVolume(0.7)
	c.SetMuted(true)
	ticks(c, 10)

	st := c.Status()
	assert.False(t, st.Started)
	assert.Equal(t, atmosphere.ModeWind, st.Mode)
	assert.InDelta(t, 0.7, st.Volume, 1e-9)
	assert.True(t, st.Muted)
	assert.Equal(t, 0.0, out.Volume())
}

func TestController_Start(t *testing.T) {
	c, out, rec := newTestController(t)

	c.Start()
	n := settle(t, c)

	// One tick to confirm silence, six to fade in
	assert.Equal(t, 7, n)
	assert.Equal(t, []Stage{StageFadingOut, StageSwapping, StageStarting, StageFadingIn, StageIdle}, rec.stages())
	assert.Equal(t, silenceURL, out.Source())
	assert.False(t, out.Paused())
	assert.InDelta(t, 0.3, out.Volume(), 1e-9)

	st := c.Status()
	assert.True(t, st.Started)
	assert.True(t, st.Playing)
	assert.False(t, st.StartedAt.IsZero())
	assert.NotEmpty(t, st.TransitionID)

	t.Run("idempotent", func(t *testing.T) {
		rec.reset()
		loads := len(out.loads)

		c.Start()
		ticks(c, 10)

		assert.Empty(t, rec.transitions)
		assert.Len(t, out.loads, loads)
	})
}

func TestController_SwitchSequence(t *testing.T) {
	c, out, rec := newTestController(t)
	startPlaying(t, c)

	out.advance(42 * time.Second)
	c.sample()
	rec.reset()
	loadsBefore := len(out.loads)

	c.SetMode(atmosphere.ModeWind)
	assert.Equal(t, StageFadingOut, c.Status().Stage)

	ticks(c, 5)
	assert.Equal(t, StageFadingOut, c.Status().Stage)
	assert.Equal(t, silenceURL, out.Source())

	// Sixth tick reaches silence: swap, seek, play, begin fade-in
	c.tick()
	assert.Equal(t, StageFadingIn, c.Status().Stage)
	assert.Equal(t, windURL, out.Source())
	assert.Equal(t, 0.0, out.Volume())

	settle(t, c)

	assert.Equal(t, []Stage{StageFadingOut, StageSwapping, StageStarting, StageFadingIn, StageIdle}, rec.stages())
	assert.Equal(t, windURL, out.Source())
	assert.Equal(t, loadsBefore+1, len(out.loads))
	assert.InDelta(t, 0.3, out.Volume(), 1e-9)
	assert.Equal(t, 42*time.Second, c.positions[atmosphere.ModeSilence])
	assert.Equal(t, time.Duration(0), out.seeks[len(out.seeks)-1])

	// Every transition of one switch shares its id
	for _, tr := range rec.transitions {
		assert.Equal(t, rec.transitions[0].ID, tr.ID)
		assert.Equal(t, atmosphere.ModeWind, tr.Mode)
	}
}

func TestController_SameModeDoesNotSwitch(t *testing.T) {
	c, out, rec := newTestController(t)
	startPlaying(t, c)
	rec.reset()
	loads := len(out.loads)

	c.SetMode(atmosphere.ModeSilence)
	n := settle(t, c)

	assert.Equal(t, 1, n)
	assert.Empty(t, rec.transitions)
	assert.Len(t, out.loads, loads)
	assert.InDelta(t, 0.3, out.Volume(), 1e-9)
}

func TestController_ResumesPosition(t *testing.T) {
	c, out, _ := newTestController(t)
	startPlaying(t, c)

	// Play SILENCE for a while, sampled every 100ms
	for range 100 {
		out.advance(100 * time.Millisecond)
		c.sample()
	}
	played := out.Position()
	out.advance(60 * time.Millisecond) // unsampled remainder

	c.SetMode(atmosphere.ModeWind)
	settle(t, c)
	for range 30 {
		out.advance(100 * time.Millisecond)
		c.sample()
	}
	assert.Equal(t, 3*time.Second, c.positions[atmosphere.ModeWind])

	c.SetMode(atmosphere.ModeSilence)
	settle(t, c)

	assert.Equal(t, silenceURL, out.Source())
	resumed := out.seeks[len(out.seeks)-1]
	assert.InDelta(t, float64(played), float64(resumed), float64(100*time.Millisecond))
	assert.GreaterOrEqual(t, resumed, played)

	c.SetMode(atmosphere.ModeWind)
	settle(t, c)
	assert.Equal(t, 3*time.Second, out.seeks[len(out.seeks)-1])
}

func TestController_PreemptMidSwitch(t *testing.T) {
	c, out, rec := newTestController(t)
	startPlaying(t, c)
	rec.reset()

	c.SetMode(atmosphere.ModeWind)
	ticks(c, 3)
	firstID := c.Status().TransitionID

	c.SetMode(atmosphere.ModeOcean)
	assert.NotEqual(t, firstID, c.Status().TransitionID)

	// The fade-out restarts from the current level, 0.15
	ticks(c, 2)
	assert.Equal(t, StageFadingOut, c.Status().Stage)
	c.tick()
	assert.Equal(t, StageFadingIn, c.Status().Stage)

	settle(t, c)

	assert.Equal(t, []string{silenceURL, oceanURL}, out.loads)
	assert.Equal(t, oceanURL, out.Source())
	assert.InDelta(t, 0.3, out.Volume(), 1e-9)
	assert.Equal(t, StageIdle, rec.stages()[len(rec.stages())-1])
}

func TestController_RapidTogglingKeepsOneGlide(t *testing.T) {
	c, out, _ := newTestController(t)
	startPlaying(t, c)

	modes := []atmosphere.Mode{atmosphere.ModeWind, atmosphere.ModeOcean, atmosphere.ModeSilence, atmosphere.ModeWind}
	for i := range 40 {
		c.SetMode(modes[i%len(modes)])
		c.tick()
	}
	settle(t, c)

	assert.Equal(t, windURL, out.Source())
	assert.InDelta(t, 0.3, out.Volume(), 1e-9)
	assert.Nil(t, c.glide)
}

func TestController_ReselectDuringFadeOut(t *testing.T) {
	c, out, rec := newTestController(t)
	startPlaying(t, c)
	rec.reset()

	c.SetMode(atmosphere.ModeWind)
	ticks(c, 2)

	// SILENCE is still loaded and audible: settle back up in place
	c.SetMode(atmosphere.ModeSilence)
	settle(t, c)

	assert.Equal(t, []Stage{StageFadingOut, StageIdle}, rec.stages())
	assert.Equal(t, []string{silenceURL}, out.loads)
	assert.InDelta(t, 0.3, out.Volume(), 1e-9)
}

func TestController_PlayRejected(t *testing.T) {
	c, out, rec := newTestController(t)
	out.playErr = errors.New("autoplay blocked")

	c.Start()
	settle(t, c)

	st := c.Status()
	assert.Equal(t, StageIdle, st.Stage)
	assert.False(t, st.Playing)
	assert.Equal(t, 0.0, out.Volume())
	assert.Equal(t, []Stage{StageFadingOut, StageSwapping, StageStarting, StageIdle}, rec.stages())

	// Silent samples do not touch positions
	out.pos = 5 * time.Second
	c.sample()
	assert.Equal(t, time.Duration(0), c.positions[atmosphere.ModeSilence])

	// A later request recovers
	out.playErr = nil
	c.SetMode(atmosphere.ModeSilence)
	settle(t, c)

	assert.True(t, c.Status().Playing)
	assert.InDelta(t, 0.3, out.Volume(), 1e-9)
}

func TestController_LoadFailure(t *testing.T) {
	c, out, _ := newTestController(t)
	startPlaying(t, c)

	out.loadErr = errors.New("missing asset")
	c.SetMode(atmosphere.ModeOcean)
	settle(t, c)

	assert.Equal(t, StageIdle, c.Status().Stage)
	assert.True(t, out.Paused())
	assert.Equal(t, silenceURL, out.Source())

	out.loadErr = nil
	c.SetMode(atmosphere.ModeOcean)
	settle(t, c)
	assert.Equal(t, oceanURL, out.Source())
	assert.False(t, out.Paused())
}

func TestController_DeferredPlay(t *testing.T) {
	c, out, _ := newTestController(t)
	out.deferPlay = true

	c.Start()
	c.tick()
	assert.Equal(t, StageStarting, c.Status().Stage)

	ticks(c, 3)
	assert.Equal(t, StageStarting, c.Status().Stage)

	out.resolve(0, nil)
	c.tick()
	assert.Equal(t, StageFadingIn, c.Status().Stage)

	settle(t, c)
	assert.InDelta(t, 0.3, out.Volume(), 1e-9)
}

func TestController_StalePlayResultIgnored(t *testing.T) {
	c, out, _ := newTestController(t)
	out.deferPlay = true

	c.Start()
	c.tick()
	require.Equal(t, StageStarting, c.Status().Stage)

	// Preempt while the first play request is outstanding
	c.SetMode(atmosphere.ModeOcean)
	c.tick()
	require.Equal(t, StageStarting, c.Status().Stage)
	require.Len(t, out.pending, 2)

	out.pending[0].Resolve(nil)
	ticks(c, 3)
	assert.Equal(t, StageStarting, c.Status().Stage)

	out.resolve(1, nil)
	settle(t, c)
	assert.Equal(t, oceanURL, out.Source())
	assert.InDelta(t, 0.3, out.Volume(), 1e-9)
}

func TestController_DeferredRejection(t *testing.T) {
	c, out, _ := newTestController(t)
	out.deferPlay = true

	c.Start()
	c.tick()
	out.resolve(0, errors.New("not allowed"))
	c.tick()

	assert.Equal(t, StageIdle, c.Status().Stage)
	assert.Equal(t, 0.0, out.Volume())
}

func TestController_SetVolumeClamps(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.5, 1},
		{-0.2, 0},
		{0.42, 0.42},
		{math.NaN(), 0},
		{math.Inf(1), 1},
	}

	for _, tt := range tests {
		c, out, _ := newTestController(t)
		startPlaying(t, c)

		c.SetVolume(tt.in)
		assert.InDelta(t, tt.want, c.Status().Volume, 1e-9, "input %v", tt.in)
		assert.InDelta(t, tt.want, out.Volume(), 1e-9, "input %v", tt.in)
	}
}

func TestController_SetVolumeIdleIsDirect(t *testing.T) {
	c, out, _ := newTestController(t)
	startPlaying(t, c)

	c.SetVolume(0.8)
	assert.InDelta(t, 0.8, out.Volume(), 1e-9)
	assert.Nil(t, c.glide)
}

func TestController_SetVolumeDuringSwitch(t *testing.T) {
	t.Run("fading in retargets", func(t *testing.T) {
		c, out, _ := newTestController(t)
		c.Start()
		ticks(c, 3) // swap, then two steps up
		require.Equal(t, StageFadingIn, c.Status().Stage)
		require.InDelta(t, 0.1, out.Volume(), 1e-9)

		c.SetVolume(0.6)
		assert.InDelta(t, 0.1, out.Volume(), 1e-9)

		settle(t, c)
		assert.InDelta(t, 0.6, out.Volume(), 1e-9)
	})

	t.Run("fading out keeps heading to silence", func(t *testing.T) {
		c, out, _ := newTestController(t)
		startPlaying(t, c)

		c.SetMode(atmosphere.ModeWind)
		ticks(c, 2)
		c.SetVolume(0.6)
		assert.InDelta(t, 0.2, out.Volume(), 1e-9)

		settle(t, c)
		assert.Equal(t, windURL, out.Source())
		assert.InDelta(t, 0.6, out.Volume(), 1e-9)
	})
}

func TestController_Mute(t *testing.T) {
	c, out, _ := newTestController(t)
	startPlaying(t, c)

	c.SetMuted(true)
	assert.Equal(t, 0.0, out.Volume())
	assert.InDelta(t, 0.3, c.Status().Volume, 1e-9)
	assert.True(t, c.Status().Muted)

	// Volume changes while muted are remembered, not applied
	c.SetVolume(0.5)
	assert.Equal(t, 0.0, out.Volume())

	c.SetMuted(false)
	assert.Equal(t, 0.5, out.Volume())

	assert.True(t, c.ToggleMute())
	assert.Equal(t, 0.0, out.Volume())
	assert.False(t, c.ToggleMute())
	assert.Equal(t, 0.5, out.Volume())
}

func TestController_ConcurrentToggleMute(t *testing.T) {
	c, out, _ := newTestController(t)
	startPlaying(t, c)

	const n = 64
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		mutes int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.ToggleMute() {
				mu.Lock()
				mutes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Every toggle lands: half of them muted, and an even count ends unmuted
	assert.Equal(t, n/2, mutes)
	assert.False(t, c.Status().Muted)
	c.mu.Lock()
	assert.InDelta(t, 0.3, out.Volume(), 1e-9)
	c.mu.Unlock()
}

func TestController_MutedSwitchStaysSilent(t *testing.T) {
	c, out, _ := newTestController(t)
	startPlaying(t, c)

	c.SetMuted(true)
	c.SetMode(atmosphere.ModeOcean)
	settle(t, c)

	assert.Equal(t, oceanURL, out.Source())
	assert.Equal(t, 0.0, out.Volume())

	c.SetMuted(false)
	assert.InDelta(t, 0.3, out.Volume(), 1e-9)
}

func TestController_UnknownModeIgnored(t *testing.T) {
	c, out, rec := newTestController(t)
	startPlaying(t, c)
	rec.reset()

	c.SetMode(atmosphere.Mode(42))
	ticks(c, 10)

	assert.Equal(t, atmosphere.ModeSilence, c.Status().Mode)
	assert.Empty(t, rec.transitions)
	assert.Equal(t, silenceURL, out.Source())
}

func TestController_SetManifest(t *testing.T) {
	c, out, _ := newTestController(t)
	startPlaying(t, c)
	c.SetMode(atmosphere.ModeWind)
	settle(t, c)
	out.advance(10 * time.Second)
	c.sample()

	t.Run("other mode changed", func(t *testing.T) {
		loads := len(out.loads)
		c.SetManifest(atmosphere.DefaultManifest().WithTrack(atmosphere.ModeOcean, "/srv/surf.ogg"))
		ticks(c, 10)
		assert.Len(t, out.loads, loads)
	})

	t.Run("current mode changed", func(t *testing.T) {
		m := atmosphere.DefaultManifest().
			WithTrack(atmosphere.ModeOcean, "/srv/surf.ogg").
			WithTrack(atmosphere.ModeWind, "/srv/gale.ogg")
		c.SetManifest(m)
		settle(t, c)

		assert.Equal(t, "/srv/gale.ogg", out.Source())
		assert.Equal(t, time.Duration(0), out.seeks[len(out.seeks)-1])
		assert.InDelta(t, 0.3, out.Volume(), 1e-9)
	})
}

func TestController_ListenerMayCallBack(t *testing.T) {
	c, _, _ := newTestController(t)

	var seen []Stage
	c.OnTransition(func(tr Transition) {
		seen = append(seen, c.Status().Stage)
	})

	c.Start()
	settle(t, c)
	assert.NotEmpty(t, seen)
}

func TestController_Close(t *testing.T) {
	c, out, _ := newTestController(t)
	startPlaying(t, c)

	require.NoError(t, c.Close())
	assert.True(t, out.closed)
	assert.True(t, out.Paused())
	assert.False(t, c.Status().Playing)

	// Everything after close is inert
	c.SetMode(atmosphere.ModeOcean)
	c.tick()
	assert.Equal(t, silenceURL, out.Source())
	assert.NoError(t, c.Close())
}

func TestController_Run(t *testing.T) {
	out := newFakeOutput()
	opts := DefaultOptions()
	opts.GlideInterval = time.Millisecond
	opts.SampleInterval = time.Millisecond
	c := New(out, opts, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	c.Start()
	require.Eventually(t, func() bool {
		st := c.Status()
		return st.Playing && st.Stage == StageIdle
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "fading-out", StageFadingOut.String())
	assert.Equal(t, "unknown", Stage(99).String())
	assert.False(t, StageIdle.Switching())
	assert.True(t, StageStarting.Switching())
}
