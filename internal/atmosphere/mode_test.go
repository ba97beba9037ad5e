package atmosphere

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input string
		want  Mode
	}{
		{"SILENCE", ModeSilence},
		{"silence", ModeSilence},
		{"Raw", ModeSilence},
		{"wind", ModeWind},
		{"atmosphere", ModeWind},
		{" OCEAN ", ModeOcean},
		{"water", ModeOcean},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMode_Unknown(t *testing.T) {
	_, err := ParseMode("thunder")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestMode_Accessors(t *testing.T) {
	assert.Equal(t, "OCEAN", ModeOcean.String())
	assert.Equal(t, "Water", ModeOcean.Label())
	assert.Equal(t, "W", ModeOcean.Icon())
	assert.Equal(t, "Mode(7)", Mode(7).String())
	assert.Equal(t, "?", Mode(-1).Icon())
	assert.False(t, ModeCount.Valid())
}

func TestMode_TextRoundTrip(t *testing.T) {
	var m Mode
	require.NoError(t, m.UnmarshalText([]byte("wind")))
	assert.Equal(t, ModeWind, m)

	text, err := m.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "WIND", string(text))

	_, err = Mode(9).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestManifest(t *testing.T) {
	m := DefaultManifest()

	assert.Equal(t, DefaultWindTrack, m.TrackURL(ModeWind))
	assert.Equal(t, "", m.TrackURL(Mode(5)))

	cfg, ok := m.Config(ModeOcean)
	require.True(t, ok)
	assert.Equal(t, BaseColor, cfg.Color)
	assert.InDelta(t, BaseMetalness, cfg.Metalness, 1e-9)

	t.Run("with track", func(t *testing.T) {
		custom := m.WithTrack(ModeOcean, "/tmp/waves.ogg")
		assert.Equal(t, "/tmp/waves.ogg", custom.TrackURL(ModeOcean))
		// Original is a value and stays unchanged.
		assert.Equal(t, DefaultOceanTrack, m.TrackURL(ModeOcean))
	})

	t.Run("empty url ignored", func(t *testing.T) {
		custom := m.WithTrack(ModeWind, "")
		assert.Equal(t, DefaultWindTrack, custom.TrackURL(ModeWind))
	})

	t.Run("chained on a returned value", func(t *testing.T) {
		assert.Equal(t, DefaultSilenceTrack, DefaultManifest().TrackURL(ModeSilence))
		assert.Equal(t, "/tmp/gust.wav",
			DefaultManifest().WithTrack(ModeWind, "/tmp/gust.wav").TrackURL(ModeWind))

		_, ok := DefaultManifest().Config(Mode(-1))
		assert.False(t, ok)
	})
}
