package controller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nomadstudio/atmos/internal/atmosphere"
	"github.com/nomadstudio/atmos/internal/audio"
)

// fakeOutput is an in-memory Output. Position only moves when advance is
// called, which keeps tests deterministic.
type fakeOutput struct {
	src    string
	pos    time.Duration
	paused bool
	volume float64
	closed bool

	loads []string
	seeks []time.Duration

	loadErr   error
	playErr   error
	deferPlay bool
	pending   []*audio.PlayResult
}

func newFakeOutput() *fakeOutput {
	return &fakeOutput{paused: true}
}

func (f *fakeOutput) Load(url string) error {
	if f.loadErr != nil {
		return f.loadErr
	}
	f.src = url
	f.pos = 0
	f.paused = true
	f.loads = append(f.loads, url)
	return nil
}

func (f *fakeOutput) Source() string { return f.src }

func (f *fakeOutput) Seek(pos time.Duration) error {
	f.pos = pos
	f.seeks = append(f.seeks, pos)
	return nil
}

func (f *fakeOutput) Position() time.Duration { return f.pos }

func (f *fakeOutput) Play() *audio.PlayResult {
	if f.deferPlay {
		r := audio.NewPlayResult()
		f.pending = append(f.pending, r)
		return r
	}
	if f.playErr != nil {
		return audio.Resolved(f.playErr)
	}
	f.paused = false
	return audio.Resolved(nil)
}

// resolve completes the i-th deferred play request.
func (f *fakeOutput) resolve(i int, err error) {
	if err == nil {
		f.paused = false
	}
	f.pending[i].Resolve(err)
}

func (f *fakeOutput) Pause()          { f.paused = true }
func (f *fakeOutput) Paused() bool    { return f.paused }
func (f *fakeOutput) Volume() float64 { return f.volume }

func (f *fakeOutput) SetVolume(v float64) {
	f.volume = min(max(v, 0), 1)
}

func (f *fakeOutput) Close() error {
	f.closed = true
	return nil
}

// advance simulates playback time passing.
func (f *fakeOutput) advance(d time.Duration) {
	if !f.paused {
		f.pos += d
	}
}

// recorder collects stage transitions.
type recorder struct {
	transitions []Transition
}

func (r *recorder) stages() []Stage {
	var out []Stage
	for _, t := range r.transitions {
		out = append(out, t.To)
	}
	return out
}

func (r *recorder) reset() {
	r.transitions = nil
}

func newTestController(t *testing.T) (*Controller, *fakeOutput, *recorder) {
	t.Helper()

	out := newFakeOutput()
	c := New(out, DefaultOptions(), nil)
	rec := &recorder{}
	c.OnTransition(func(tr Transition) {
		rec.transitions = append(rec.transitions, tr)
	})
	return c, out, rec
}

// settle ticks until no glide is active and the controller is idle,
// returning the number of ticks taken.
func settle(t *testing.T, c *Controller) int {
	t.Helper()

	for i := 1; i <= 100; i++ {
		c.tick()
		c.mu.Lock()
		idle := c.glide == nil && c.stage == StageIdle
		c.mu.Unlock()
		if idle {
			return i
		}
	}
	require.FailNow(t, "controller did not settle")
	return 0
}

// startPlaying starts the session on SILENCE and waits for the fade-in.
func startPlaying(t *testing.T, c *Controller) {
	t.Helper()

	c.Start()
	settle(t, c)
	require.Equal(t, atmosphere.ModeSilence, c.Status().Mode)
}

func ticks(c *Controller, n int) {
	for range n {
		c.tick()
	}
}
