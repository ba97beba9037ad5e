package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomadstudio/atmos/internal/atmosphere"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.InDelta(t, 0.3, cfg.Audio.Volume, 1e-9)
	assert.False(t, cfg.Audio.Muted)
	assert.False(t, cfg.Audio.Autostart)
	assert.Equal(t, "SILENCE", cfg.Audio.Mode)
	assert.True(t, cfg.Audio.WatchAssets)
	assert.InDelta(t, 0.05, cfg.Glide.Step, 1e-9)
	assert.InDelta(t, 0.05, cfg.Glide.Threshold, 1e-9)
	assert.Equal(t, 50*time.Millisecond, cfg.Glide.Interval.Duration())
	assert.Equal(t, 100*time.Millisecond, cfg.Glide.SampleInterval.Duration())
	assert.True(t, cfg.TUI.ShowHelp)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/atmos.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Audio.Mode, cfg.Audio.Mode)
}

func TestLoadConfig_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "atmos.toml")

	content := `
[audio]
volume = 0.6
muted = true
mode = "water"
autostart = true
assets_dir = "/srv/atmos"

[glide]
step = 0.1
threshold = 0.02
interval = "25ms"
sample_interval = "250"

[tracks]
wind = "/srv/atmos/gale.ogg"

[tui]
show_help = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.InDelta(t, 0.6, cfg.Audio.Volume, 1e-9)
	assert.True(t, cfg.Audio.Muted)
	assert.True(t, cfg.Audio.Autostart)
	assert.Equal(t, atmosphere.ModeOcean, cfg.InitialMode())
	assert.Equal(t, "/srv/atmos", cfg.Audio.AssetsDir)
	assert.InDelta(t, 0.1, cfg.Glide.Step, 1e-9)
	assert.InDelta(t, 0.02, cfg.Glide.Threshold, 1e-9)
	assert.Equal(t, 25*time.Millisecond, cfg.Glide.Interval.Duration())
	assert.Equal(t, 250*time.Millisecond, cfg.Glide.SampleInterval.Duration())
	assert.False(t, cfg.TUI.ShowHelp)
	assert.True(t, cfg.TUI.ShowPages)

	m := cfg.Manifest()
	assert.Equal(t, "/srv/atmos/gale.ogg", m.TrackURL(atmosphere.ModeWind))
	assert.Equal(t, atmosphere.DefaultOceanTrack, m.TrackURL(atmosphere.ModeOcean))
}

func TestLoadConfig_ClampsVolume(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "atmos.toml")
	require.NoError(t, os.WriteFile(path, []byte("[audio]\nvolume = 1.5\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.Audio.Volume)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", "[audio\nvolume = "},
		{"unknown mode", "[audio]\nmode = \"thunder\"\n"},
		{"zero step", "[glide]\nstep = 0.0\n"},
		{"bad interval", "[glide]\ninterval = \"soon\"\n"},
		{"zero sample interval", "[glide]\nsample_interval = \"0s\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "atmos.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "atmos.toml")

	cfg := DefaultConfig()
	cfg.Audio.Mode = "WIND"
	cfg.Glide.Interval = Duration(75 * time.Millisecond)
	cfg.Clipboard.Command = "wl-copy --primary"
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, atmosphere.ModeWind, loaded.InitialMode())
	assert.Equal(t, 75*time.Millisecond, loaded.Glide.Interval.Duration())
	assert.Equal(t, "wl-copy --primary", loaded.Clipboard.Command)
}

func TestConfigPath_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_DATA_HOME", "/xdg/data")

	assert.Equal(t, "/xdg/config/atmos/atmos.toml", ConfigPath())
	assert.Equal(t, "/xdg/data/atmos/assets", DataPath())
}
